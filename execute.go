package govledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/govledger/internal/state"
	"github.com/smartcontractkit/govledger/types"
)

// ExecuteProposal pays out a proposal once its safety period has elapsed, provided the for votes
// hold the majority and the treasury can cover the amount. It succeeds at most once per proposal.
//
// The proposal is marked executed and the treasury debited before the transfer runs, so calls made
// by the transferer observe the proposal as executed. If the transfer fails the whole operation is
// discarded, including the executed mark.
func (l *Ledger) ExecuteProposal(ctx context.Context, caller common.Address, id uint64) error {
	var (
		executed types.Proposal
		balance  *big.Int
	)
	err := l.state.Update(ctx, func(ctx context.Context, tx *state.Tx) error {
		p, err := mustReadProposal(tx, id)
		if err != nil {
			return err
		}
		if p.Executed {
			return NewStateError(id, ReasonAlreadyExecuted)
		}

		now, err := l.now()
		if err != nil {
			return err
		}
		if executableAt, ok := l.executableAt(p); !ok || now < executableAt {
			return NewStateError(id, ReasonSafetyPeriod)
		}
		if !p.Passed() {
			return NewStateError(id, ReasonNoMajority)
		}

		treasury, err := readBig(tx, treasuryKey)
		if err != nil {
			return err
		}
		if treasury.Cmp(p.Amount) < 0 {
			return NewStateError(id, ReasonInsufficientTreasury)
		}

		p.Executed = true
		if err = writeProposal(tx, p); err != nil {
			return err
		}
		balance = treasury.Sub(treasury, p.Amount)
		writeBig(tx, treasuryKey, balance)

		if err = l.bank.Transfer(ctx, p.Recipient, new(big.Int).Set(p.Amount)); err != nil {
			return NewTransferError(id, p.Recipient, p.Amount, err)
		}

		tx.Emit(types.ProposalExecuted{
			ID:        id,
			Success:   true,
			Amount:    new(big.Int).Set(p.Amount),
			Recipient: p.Recipient,
		})
		executed = p

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrState) || errors.Is(err, ErrTransfer) {
			l.metrics.ProposalExecution(false)
			LoggerFrom(ctx).Warnf("Execution of proposal %d requested by %s rejected: %v", id, caller, err)
		}

		return err
	}

	l.metrics.ProposalExecution(true)
	l.metrics.SetTreasury(balance)
	LoggerFrom(ctx).Infof("Proposal %d executed by %s: transferred %s to %s",
		id, caller, executed.Amount, executed.Recipient)

	return nil
}
