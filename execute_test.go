package govledger

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/govledger/types"
)

func TestLedger_ExecuteProposal_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	creator, v1, v2, v3 := addr(1), addr(2), addr(3), addr(4)

	env.fund(t, 10)
	id := env.propose(t, creator, 3, 7*day)
	env.vote(t, v1, id, types.ChoiceFor)
	env.vote(t, v2, id, types.ChoiceFor)
	env.vote(t, v3, id, types.ChoiceAgainst)

	env.clock.Add(14 * day)
	require.NoError(t, env.ledger.ExecuteProposal(ctx, v1, id))

	p := env.proposal(t, id)
	assert.True(t, p.Executed)
	assert.Equal(t, int64(7), env.treasury(t).Int64())
	assert.Equal(t, int64(3), env.balanceOf(t, testRecipient).Int64())

	env.clock.Add(day)
	err := env.ledger.ExecuteProposal(ctx, v1, id)
	require.EqualError(t, err, "proposal 1: already executed")
	require.ErrorIs(t, err, ErrState)
	assert.Equal(t, int64(7), env.treasury(t).Int64())
	assert.Equal(t, int64(3), env.balanceOf(t, testRecipient).Int64())

	events := env.events(t)
	require.Len(t, events, 6)
	assert.Equal(t, []string{
		types.EventFundsReceived,
		types.EventProposalCreated,
		types.EventVoteCast,
		types.EventVoteCast,
		types.EventVoteCast,
		types.EventProposalExecuted,
	}, eventNames(events))
	assert.Equal(t, types.ProposalExecuted{
		ID:        id,
		Success:   true,
		Amount:    big.NewInt(3),
		Recipient: testRecipient,
	}, events[5])
}

func TestLedger_ExecuteProposal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		funded  int64
		amount  int64
		votes   []types.Choice
		advance time.Duration
		id      uint64
		wantErr string
		wantIs  error
	}{
		{
			name:    "success at the end of the safety period",
			funded:  10,
			amount:  10,
			votes:   []types.Choice{types.ChoiceFor},
			advance: day + DefaultSafetyPeriod,
			id:      1,
		},
		{
			name:    "success with abstentions",
			funded:  10,
			amount:  5,
			votes:   []types.Choice{types.ChoiceFor, types.ChoiceAbstain, types.ChoiceAbstain},
			advance: day + DefaultSafetyPeriod,
			id:      1,
		},
		{
			name:    "failure: one second before the safety period ends",
			funded:  10,
			amount:  5,
			votes:   []types.Choice{types.ChoiceFor},
			advance: day + DefaultSafetyPeriod - time.Second,
			id:      1,
			wantErr: "proposal 1: safety period has not elapsed",
			wantIs:  ErrState,
		},
		{
			name:    "failure: voting still open",
			funded:  10,
			amount:  5,
			votes:   []types.Choice{types.ChoiceFor},
			id:      1,
			wantErr: "proposal 1: safety period has not elapsed",
			wantIs:  ErrState,
		},
		{
			name:    "failure: tie",
			funded:  10,
			amount:  5,
			votes:   []types.Choice{types.ChoiceFor, types.ChoiceAgainst},
			advance: day + DefaultSafetyPeriod,
			id:      1,
			wantErr: "proposal 1: for votes do not exceed against votes",
			wantIs:  ErrState,
		},
		{
			name:    "failure: no votes",
			funded:  10,
			amount:  5,
			advance: day + DefaultSafetyPeriod,
			id:      1,
			wantErr: "proposal 1: for votes do not exceed against votes",
			wantIs:  ErrState,
		},
		{
			name:    "failure: only abstentions",
			funded:  10,
			amount:  5,
			votes:   []types.Choice{types.ChoiceAbstain},
			advance: day + DefaultSafetyPeriod,
			id:      1,
			wantErr: "proposal 1: for votes do not exceed against votes",
			wantIs:  ErrState,
		},
		{
			name:    "failure: treasury cannot cover the amount",
			funded:  10,
			amount:  11,
			votes:   []types.Choice{types.ChoiceFor},
			advance: day + DefaultSafetyPeriod,
			id:      1,
			wantErr: "proposal 1: insufficient treasury balance",
			wantIs:  ErrState,
		},
		{
			name:    "failure: unknown proposal",
			funded:  10,
			amount:  5,
			advance: day + DefaultSafetyPeriod,
			id:      2,
			wantErr: "invalid proposal id: proposal 2 does not exist",
			wantIs:  ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			env := newTestEnv(t)
			env.fund(t, tt.funded)
			id := env.propose(t, addr(1), tt.amount, day)
			for i, c := range tt.votes {
				env.vote(t, addr(int64(100+i)), id, c)
			}
			env.clock.Add(tt.advance)

			err := env.ledger.ExecuteProposal(ctx, addr(1), tt.id)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				require.ErrorIs(t, err, tt.wantIs)
				assert.False(t, env.proposal(t, id).Executed)
				assert.Equal(t, tt.funded, env.treasury(t).Int64())
				assert.Equal(t, int64(0), env.balanceOf(t, testRecipient).Int64())

				return
			}

			require.NoError(t, err)
			assert.True(t, env.proposal(t, id).Executed)
			assert.Equal(t, tt.funded-tt.amount, env.treasury(t).Int64())
			assert.Equal(t, tt.amount, env.balanceOf(t, testRecipient).Int64())
		})
	}
}

// A rejected proposal stays executable-in-name: execution keeps failing and the status reads
// rejected.
func TestLedger_ExecuteProposal_Rejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 10)
	id := env.propose(t, addr(1), 5, day)
	env.vote(t, addr(2), id, types.ChoiceAgainst)

	for _, wait := range []time.Duration{day + DefaultSafetyPeriod, 30 * day} {
		env.clock.Add(wait)
		err := env.ledger.ExecuteProposal(ctx, addr(1), id)
		require.ErrorIs(t, err, ErrState)

		status, serr := env.ledger.ProposalStatus(ctx, id)
		require.NoError(t, serr)
		assert.Equal(t, types.StatusRejected, status)
	}
}

func TestLedger_ExecuteProposal_CompetingForTreasury(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 10)

	first := env.propose(t, addr(1), 6, day)
	second := env.propose(t, addr(1), 6, day)
	env.vote(t, addr(2), first, types.ChoiceFor)
	env.vote(t, addr(2), second, types.ChoiceFor)
	env.clock.Add(day + DefaultSafetyPeriod)

	require.NoError(t, env.ledger.ExecuteProposal(ctx, addr(1), first))

	err := env.ledger.ExecuteProposal(ctx, addr(1), second)
	require.EqualError(t, err, "proposal 2: insufficient treasury balance")

	// topping up the treasury makes the second proposal executable
	env.fund(t, 2)
	require.NoError(t, env.ledger.ExecuteProposal(ctx, addr(1), second))
	assert.Equal(t, int64(0), env.treasury(t).Int64())
	assert.Equal(t, int64(12), env.balanceOf(t, testRecipient).Int64())
}

func TestLedger_ExecuteProposal_ZeroSafetyPeriod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t, WithSafetyPeriod(0))
	env.fund(t, 10)
	id := env.propose(t, addr(1), 5, day)
	env.vote(t, addr(2), id, types.ChoiceFor)

	env.clock.Add(day - time.Second)
	require.ErrorIs(t, env.ledger.ExecuteProposal(ctx, addr(1), id), ErrState)

	env.clock.Add(time.Second)
	require.NoError(t, env.ledger.ExecuteProposal(ctx, addr(1), id))
}

func TestLedger_ExecuteProposal_TransferFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	failing := true
	var paid []common.Address
	transferer := &fakeTransferer{fn: func(_ context.Context, to common.Address, _ *big.Int) error {
		if failing {
			return errors.New("recipient rejected funds")
		}
		paid = append(paid, to)

		return nil
	}}

	env := newTestEnv(t, WithTransferer(transferer))
	env.fund(t, 10)
	id := env.propose(t, addr(1), 4, day)
	env.vote(t, addr(2), id, types.ChoiceFor)
	env.clock.Add(day + DefaultSafetyPeriod)
	eventsBefore := len(env.events(t))

	err := env.ledger.ExecuteProposal(ctx, addr(1), id)
	require.EqualError(t, err, "proposal 1: transfer of 4 to "+testRecipient.Hex()+" failed: recipient rejected funds")
	require.ErrorIs(t, err, ErrTransfer)

	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, id, terr.ProposalID)

	assert.False(t, env.proposal(t, id).Executed)
	assert.Equal(t, int64(10), env.treasury(t).Int64())
	assert.Len(t, env.events(t), eventsBefore)

	failing = false
	require.NoError(t, env.ledger.ExecuteProposal(ctx, addr(1), id))
	assert.Equal(t, []common.Address{testRecipient}, paid)
	assert.Equal(t, int64(6), env.treasury(t).Int64())
}

// A transferer that calls back into the ledger observes the proposal as executed and the treasury
// already debited.
func TestLedger_ExecuteProposal_Reentrant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var (
		env          *testEnv
		reentryErr   error
		seenTreasury *big.Int
		calls        int
	)
	transferer := &fakeTransferer{fn: func(ctx context.Context, _ common.Address, _ *big.Int) error {
		calls++
		reentryErr = env.ledger.ExecuteProposal(ctx, testRecipient, 1)

		var err error
		seenTreasury, err = env.ledger.GetTreasuryBalance(ctx)

		return err
	}}

	env = newTestEnv(t, WithTransferer(transferer))
	env.fund(t, 10)
	id := env.propose(t, addr(1), 4, day)
	env.vote(t, addr(2), id, types.ChoiceFor)
	env.clock.Add(day + DefaultSafetyPeriod)

	require.NoError(t, env.ledger.ExecuteProposal(ctx, addr(1), id))

	assert.Equal(t, 1, calls)
	require.ErrorIs(t, reentryErr, ErrState)
	require.EqualError(t, reentryErr, "proposal 1: already executed")
	assert.Equal(t, int64(6), seenTreasury.Int64())
	assert.Equal(t, int64(6), env.treasury(t).Int64())
	assert.True(t, env.proposal(t, id).Executed)
}

// A transferer that reenters and then fails leaves no trace of either call.
func TestLedger_ExecuteProposal_ReentrantFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var env *testEnv
	transferer := &fakeTransferer{fn: func(ctx context.Context, _ common.Address, _ *big.Int) error {
		if err := env.ledger.Fund(ctx, testRecipient, big.NewInt(100)); err != nil {
			return err
		}

		return errors.New("boom")
	}}

	env = newTestEnv(t, WithTransferer(transferer))
	env.fund(t, 10)
	id := env.propose(t, addr(1), 4, day)
	env.vote(t, addr(2), id, types.ChoiceFor)
	env.clock.Add(day + DefaultSafetyPeriod)

	require.ErrorIs(t, env.ledger.ExecuteProposal(ctx, addr(1), id), ErrTransfer)
	assert.Equal(t, int64(10), env.treasury(t).Int64())

	contributed, err := env.ledger.Contribution(ctx, testRecipient)
	require.NoError(t, err)
	assert.Equal(t, int64(0), contributed.Int64())
}

func eventNames(events []types.Event) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.EventName())
	}

	return names
}
