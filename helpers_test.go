package govledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/govledger/internal/state"
	"github.com/smartcontractkit/govledger/internal/testutils"
	"github.com/smartcontractkit/govledger/types"
)

const day = 24 * time.Hour

var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Cmp(b) == 0
})

var (
	testLedgerAddr    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	testForwarderAddr = common.HexToAddress("0x0000000000000000000000000000000000f0f0f0")
	testRecipient     = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testFunder        = common.HexToAddress("0x00000000000000000000000000000000000000f1")

	testDomain = Domain{
		Name:              "GovernanceForwarder",
		Version:           "1",
		ChainID:           1337,
		VerifyingContract: testForwarderAddr,
	}
)

// testEnv is a ledger and forwarder deployed on a fresh in-memory state with a mock clock.
type testEnv struct {
	sm        *state.Machine
	clock     *clock.Mock
	ledger    *Ledger
	forwarder *Forwarder
	book      *AccountBook
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	sm := state.NewMemory()
	t.Cleanup(func() { require.NoError(t, sm.Close()) })

	c := testutils.NewMockClock()
	ledger, forwarder, err := Deploy(sm, testLedgerAddr, testDomain, append([]Option{WithClock(c)}, opts...)...)
	require.NoError(t, err)

	return &testEnv{
		sm:        sm,
		clock:     c,
		ledger:    ledger,
		forwarder: forwarder,
		book:      NewAccountBook(sm),
	}
}

// fund adds amount to the treasury from testFunder.
func (e *testEnv) fund(t *testing.T, amount int64) {
	t.Helper()

	require.NoError(t, e.ledger.Fund(context.Background(), testFunder, big.NewInt(amount)))
}

// propose creates a proposal paying amount to testRecipient with a voting period of votingPeriod.
func (e *testEnv) propose(t *testing.T, creator common.Address, amount int64, votingPeriod time.Duration) uint64 {
	t.Helper()

	deadline := uint64(e.clock.Now().Add(votingPeriod).Unix())
	id, err := e.ledger.CreateProposal(context.Background(), creator, testRecipient, big.NewInt(amount), deadline)
	require.NoError(t, err)

	return id
}

func (e *testEnv) vote(t *testing.T, voter common.Address, id uint64, c types.Choice) {
	t.Helper()

	require.NoError(t, e.ledger.Vote(context.Background(), voter, id, c))
}

func (e *testEnv) proposal(t *testing.T, id uint64) types.Proposal {
	t.Helper()

	p, err := e.ledger.GetProposal(context.Background(), id)
	require.NoError(t, err)

	return p
}

func (e *testEnv) treasury(t *testing.T) *big.Int {
	t.Helper()

	bal, err := e.ledger.GetTreasuryBalance(context.Background())
	require.NoError(t, err)

	return bal
}

func (e *testEnv) balanceOf(t *testing.T, addr common.Address) *big.Int {
	t.Helper()

	bal, err := e.book.BalanceOf(context.Background(), addr)
	require.NoError(t, err)

	return bal
}

func (e *testEnv) events(t *testing.T) []types.Event {
	t.Helper()

	logged, err := e.sm.EventsSince(0, 0)
	require.NoError(t, err)

	out := make([]types.Event, 0, len(logged))
	for _, l := range logged {
		out = append(out, l.Event)
	}

	return out
}

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}
