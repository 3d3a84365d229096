package govledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrValidation classifies malformed input. Nothing is mutated.
	ErrValidation = errors.New("validation error")

	// ErrState classifies operations that are not allowed in the current ledger state. Nothing is
	// mutated.
	ErrState = errors.New("state error")

	// ErrTransfer classifies failed outward transfers. The whole execution is rolled back.
	ErrTransfer = errors.New("transfer error")

	// ErrSignature classifies relay requests that fail verification.
	ErrSignature = errors.New("signature error")

	// ErrUnknownTarget is returned by a relayed call to an address without a registered target.
	ErrUnknownTarget = errors.New("no target registered at address")
)

// Reasons carried by StateError.
const (
	ReasonAlreadyExecuted      = "already executed"
	ReasonVotingClosed         = "voting period has ended"
	ReasonSafetyPeriod         = "safety period has not elapsed"
	ReasonNoMajority           = "for votes do not exceed against votes"
	ReasonInsufficientTreasury = "insufficient treasury balance"
	ReasonEmptyTreasury        = "treasury is empty"
)

// ValidationError is returned when an operation receives malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewProposalNotFoundError is returned when an operation references an unknown proposal.
func NewProposalNotFoundError(id uint64) *ValidationError {
	return NewValidationError("proposal id", fmt.Sprintf("proposal %d does not exist", id))
}

// StateError is returned when an operation is not permitted in the current state. ProposalID is
// 0 for errors that do not concern a single proposal.
type StateError struct {
	ProposalID uint64
	Reason     string
}

// NewStateError creates a new StateError.
func NewStateError(proposalID uint64, reason string) *StateError {
	return &StateError{ProposalID: proposalID, Reason: reason}
}

func (e *StateError) Error() string {
	if e.ProposalID == 0 {
		return "invalid state: " + e.Reason
	}

	return fmt.Sprintf("proposal %d: %s", e.ProposalID, e.Reason)
}

// Is matches ErrState.
func (e *StateError) Is(target error) bool {
	return target == ErrState
}

// TransferError is returned when the payout of an executed proposal fails.
type TransferError struct {
	ProposalID uint64
	Recipient  common.Address
	Amount     *big.Int
	Err        error
}

// NewTransferError creates a new TransferError.
func NewTransferError(proposalID uint64, recipient common.Address, amount *big.Int, err error) *TransferError {
	return &TransferError{ProposalID: proposalID, Recipient: recipient, Amount: amount, Err: err}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("proposal %d: transfer of %s to %s failed: %v", e.ProposalID, e.Amount, e.Recipient, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransfer.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}

// SignatureError is returned when a relay request cannot be executed because its signature, nonce
// or deadline does not check out.
type SignatureError struct {
	From   common.Address
	Reason string
}

// NewSignatureError creates a new SignatureError.
func NewSignatureError(from common.Address, reason string) *SignatureError {
	return &SignatureError{From: from, Reason: reason}
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid request from %s: %s", e.From, e.Reason)
}

// Is matches ErrSignature.
func (e *SignatureError) Is(target error) bool {
	return target == ErrSignature
}
