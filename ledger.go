package govledger

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/govledger/internal/state"
	"github.com/smartcontractkit/govledger/internal/utils/safecast"
	"github.com/smartcontractkit/govledger/metrics"
	"github.com/smartcontractkit/govledger/types"
)

var _ Target = (*Ledger)(nil)

// Ledger holds the treasury and the proposals that spend it. Every mutating operation runs as a
// single frame of the underlying state machine: it commits completely or leaves no trace.
type Ledger struct {
	state            *state.Machine
	address          common.Address
	bank             Transferer
	clock            clock.Clock
	metrics          *metrics.Metrics
	safetyPeriod     uint64
	threshold        ProposalThreshold
	trustedForwarder common.Address
}

// NewLedger creates a ledger on sm. address identifies the ledger as a call target.
func NewLedger(sm *state.Machine, address common.Address, opts ...Option) (*Ledger, error) {
	o := newOptions(opts)

	if o.safetyPeriod < 0 {
		return nil, NewValidationError("safety period", "must not be negative")
	}
	if o.threshold != ThresholdNonEmpty && o.threshold != ThresholdContribution {
		return nil, NewValidationError("proposal threshold", fmt.Sprintf("unknown threshold %q", o.threshold))
	}

	bank := o.transferer
	if bank == nil {
		bank = NewAccountBook(sm)
	}

	return &Ledger{
		state:            sm,
		address:          address,
		bank:             bank,
		clock:            o.clock,
		metrics:          o.metrics,
		safetyPeriod:     uint64(o.safetyPeriod / time.Second),
		threshold:        o.threshold,
		trustedForwarder: o.trustedForwarder,
	}, nil
}

// Address returns the address the ledger is reachable at as a call target.
func (l *Ledger) Address() common.Address {
	return l.address
}

// IsTrustedForwarder reports whether calls from addr carry their originator.
func (l *Ledger) IsTrustedForwarder(addr common.Address) bool {
	return l.trustedForwarder != (common.Address{}) && addr == l.trustedForwarder
}

// SafetyPeriod returns the delay between a proposal's deadline and its earliest execution.
func (l *Ledger) SafetyPeriod() time.Duration {
	return time.Duration(l.safetyPeriod) * time.Second
}

// Fund adds amount to the treasury.
func (l *Ledger) Fund(ctx context.Context, from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return NewValidationError("amount", "must be greater than zero")
	}

	var balance *big.Int
	err := l.state.Update(ctx, func(_ context.Context, tx *state.Tx) error {
		bal, err := readBig(tx, treasuryKey)
		if err != nil {
			return err
		}
		balance = bal.Add(bal, amount)
		writeBig(tx, treasuryKey, balance)

		contributed, err := readBig(tx, contributionKey(from))
		if err != nil {
			return err
		}
		writeBig(tx, contributionKey(from), contributed.Add(contributed, amount))

		tx.Emit(types.FundsReceived{From: from, Amount: new(big.Int).Set(amount)})

		return nil
	})
	if err != nil {
		return err
	}

	l.metrics.SetTreasury(balance)
	LoggerFrom(ctx).Infof("Treasury received %s from %s, balance %s", amount, from, balance)

	return nil
}

// CreateProposal records a proposal to pay amount to recipient, open for voting until deadline
// (unix seconds), and returns its id.
func (l *Ledger) CreateProposal(
	ctx context.Context, creator, recipient common.Address, amount *big.Int, deadline uint64,
) (uint64, error) {
	if recipient == (common.Address{}) {
		return 0, NewValidationError("recipient", "must not be the zero address")
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, NewValidationError("amount", "must be greater than zero")
	}

	var id uint64
	err := l.state.Update(ctx, func(_ context.Context, tx *state.Tx) error {
		now, err := l.now()
		if err != nil {
			return err
		}
		if deadline <= now {
			return NewValidationError("deadline", fmt.Sprintf("%d is not after the current time %d", deadline, now))
		}

		if err = l.checkThreshold(tx, creator); err != nil {
			return err
		}

		count, err := readUint64(tx, proposalCountKey)
		if err != nil {
			return err
		}
		id = count + 1

		p := types.Proposal{
			ID:        id,
			Creator:   creator,
			Recipient: recipient,
			Amount:    new(big.Int).Set(amount),
			Deadline:  deadline,
			CreatedAt: now,
		}
		if err = writeProposal(tx, p); err != nil {
			return err
		}
		writeUint64(tx, proposalCountKey, id)

		tx.Emit(types.ProposalCreated{
			ID:        id,
			Creator:   creator,
			Recipient: recipient,
			Amount:    new(big.Int).Set(amount),
			Deadline:  deadline,
		})

		return nil
	})
	if err != nil {
		return 0, err
	}

	l.metrics.ProposalCreated()
	LoggerFrom(ctx).Infof("Proposal %d created by %s: %s to %s, voting until %d", id, creator, amount, recipient, deadline)

	return id, nil
}

// checkThreshold applies the proposal creation gate.
func (l *Ledger) checkThreshold(r state.Reader, creator common.Address) error {
	treasury, err := readBig(r, treasuryKey)
	if err != nil {
		return err
	}
	if treasury.Sign() == 0 {
		return NewStateError(0, ReasonEmptyTreasury)
	}

	if l.threshold != ThresholdContribution {
		return nil
	}

	required := new(big.Int).Div(treasury, big.NewInt(proposerShareDivisor))
	contributed, err := readBig(r, contributionKey(creator))
	if err != nil {
		return err
	}
	if contributed.Cmp(required) < 0 {
		return NewStateError(0, fmt.Sprintf("%s contributed %s, at least %s is required to propose", creator, contributed, required))
	}

	return nil
}

// Vote records choice as the voter's current position on the proposal. A repeated vote replaces
// the previous one: the voter's single unit moves between counters.
func (l *Ledger) Vote(ctx context.Context, voter common.Address, id uint64, choice types.Choice) error {
	if !choice.IsCastable() {
		return NewValidationError("choice", fmt.Sprintf("%s cannot be cast", choice))
	}

	var tally types.Proposal
	err := l.state.Update(ctx, func(_ context.Context, tx *state.Tx) error {
		p, err := mustReadProposal(tx, id)
		if err != nil {
			return err
		}

		now, err := l.now()
		if err != nil {
			return err
		}
		if now >= p.Deadline {
			return NewStateError(id, ReasonVotingClosed)
		}

		prev, err := readChoice(tx, id, voter)
		if err != nil {
			return err
		}
		if counter := p.Tally(prev); counter != nil {
			*counter--
		}
		*p.Tally(choice)++

		if err = writeProposal(tx, p); err != nil {
			return err
		}
		writeChoice(tx, id, voter, choice)

		tx.Emit(types.VoteCast{
			ID:           id,
			Voter:        voter,
			Choice:       choice,
			ForVotes:     p.ForVotes,
			AgainstVotes: p.AgainstVotes,
			AbstainVotes: p.AbstainVotes,
		})
		tally = p

		return nil
	})
	if err != nil {
		return err
	}

	l.metrics.VoteCast(choice)
	LoggerFrom(ctx).Infof("Vote on proposal %d by %s: %s (for %d, against %d, abstain %d)",
		id, voter, choice, tally.ForVotes, tally.AgainstVotes, tally.AbstainVotes)

	return nil
}

// GetProposal returns the proposal with the given id.
func (l *Ledger) GetProposal(ctx context.Context, id uint64) (types.Proposal, error) {
	var p types.Proposal
	err := l.state.View(ctx, func(r state.Reader) error {
		var err error
		p, err = mustReadProposal(r, id)

		return err
	})

	return p, err
}

// GetVote returns the voter's current choice on the proposal, ChoiceNone if they have not voted.
func (l *Ledger) GetVote(ctx context.Context, id uint64, voter common.Address) (types.Choice, error) {
	var c types.Choice
	err := l.state.View(ctx, func(r state.Reader) error {
		if _, err := mustReadProposal(r, id); err != nil {
			return err
		}

		var err error
		c, err = readChoice(r, id, voter)

		return err
	})

	return c, err
}

// GetTreasuryBalance returns the funds available for execution.
func (l *Ledger) GetTreasuryBalance(ctx context.Context) (*big.Int, error) {
	var bal *big.Int
	err := l.state.View(ctx, func(r state.Reader) error {
		var err error
		bal, err = readBig(r, treasuryKey)

		return err
	})

	return bal, err
}

// ProposalCount returns the number of proposals created so far, which is also the latest id.
func (l *Ledger) ProposalCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := l.state.View(ctx, func(r state.Reader) error {
		var err error
		n, err = readUint64(r, proposalCountKey)

		return err
	})

	return n, err
}

// Contribution returns the total amount addr has funded.
func (l *Ledger) Contribution(ctx context.Context, addr common.Address) (*big.Int, error) {
	var c *big.Int
	err := l.state.View(ctx, func(r state.Reader) error {
		var err error
		c, err = readBig(r, contributionKey(addr))

		return err
	})

	return c, err
}

// ProposalStatus returns the phase the proposal is in at the current time. StatusExecutable does
// not account for the treasury balance, which is only checked at execution.
func (l *Ledger) ProposalStatus(ctx context.Context, id uint64) (types.ProposalStatus, error) {
	p, err := l.GetProposal(ctx, id)
	if err != nil {
		return "", err
	}

	now, err := l.now()
	if err != nil {
		return "", err
	}

	switch executableAt, ok := l.executableAt(p); {
	case p.Executed:
		return types.StatusExecuted, nil
	case now < p.Deadline:
		return types.StatusOpen, nil
	case !ok || now < executableAt:
		return types.StatusPending, nil
	case p.Passed():
		return types.StatusExecutable, nil
	default:
		return types.StatusRejected, nil
	}
}

// executableAt returns the earliest execution time of p. It is false when that time does not fit
// in a uint64, in which case the proposal can never be executed.
func (l *Ledger) executableAt(p types.Proposal) (uint64, bool) {
	if p.Deadline > math.MaxUint64-l.safetyPeriod {
		return 0, false
	}

	return p.Deadline + l.safetyPeriod, true
}

func (l *Ledger) now() (uint64, error) {
	return safecast.Int64ToUint64(l.clock.Now().Unix())
}
