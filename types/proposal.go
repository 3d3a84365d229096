package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Proposal is a request to transfer treasury funds to a recipient, together with its voting
// tally. Field order is part of the stored encoding.
type Proposal struct {
	ID           uint64         `json:"id"`
	Creator      common.Address `json:"creator"`
	Recipient    common.Address `json:"recipient"`
	Amount       *big.Int       `json:"amount"`
	Deadline     uint64         `json:"deadline"`
	ForVotes     uint64         `json:"forVotes"`
	AgainstVotes uint64         `json:"againstVotes"`
	AbstainVotes uint64         `json:"abstainVotes"`
	Executed     bool           `json:"executed"`
	CreatedAt    uint64         `json:"createdAt"`
}

// TotalVotes returns the number of voters currently counted in the tally.
func (p Proposal) TotalVotes() uint64 {
	return p.ForVotes + p.AgainstVotes + p.AbstainVotes
}

// Passed reports whether the for votes hold a strict majority over the against votes. Ties are
// not a majority.
func (p Proposal) Passed() bool {
	return p.ForVotes > p.AgainstVotes
}

// Tally returns a pointer to the counter tracking the given choice, or nil for ChoiceNone.
func (p *Proposal) Tally(c Choice) *uint64 {
	switch c {
	case ChoiceFor:
		return &p.ForVotes
	case ChoiceAgainst:
		return &p.AgainstVotes
	case ChoiceAbstain:
		return &p.AbstainVotes
	case ChoiceNone:
		return nil
	default:
		return nil
	}
}

// ProposalStatus is the observable phase of a proposal. It is derived from the proposal and the
// current time and is never stored.
type ProposalStatus string

const (
	// StatusOpen means the voting deadline has not been reached.
	StatusOpen ProposalStatus = "Open"
	// StatusPending means voting closed but the safety period has not elapsed.
	StatusPending ProposalStatus = "Pending"
	// StatusExecutable means the safety period elapsed and the for votes hold the majority.
	StatusExecutable ProposalStatus = "Executable"
	// StatusRejected means the safety period elapsed without a for majority.
	StatusRejected ProposalStatus = "Rejected"
	// StatusExecuted is terminal.
	StatusExecuted ProposalStatus = "Executed"
)
