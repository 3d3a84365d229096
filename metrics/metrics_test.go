package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/govledger/types"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := New("govledger", reg)
	require.NoError(t, err)

	m.ProposalCreated()
	m.VoteCast(types.ChoiceFor)
	m.VoteCast(types.ChoiceFor)
	m.VoteCast(types.ChoiceAgainst)
	m.ProposalExecution(true)
	m.ProposalExecution(false)
	m.RelayExecuted(true)
	m.RelayExecuted(false)
	m.RelayRejected()
	m.SetTreasury(big.NewInt(42))

	assert.InDelta(t, 1, testutil.ToFloat64(m.proposalsCreated), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.votesCast.WithLabelValues("for")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.votesCast.WithLabelValues("against")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.executions.WithLabelValues(resultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.executions.WithLabelValues(resultRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.relays.WithLabelValues(resultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.relays.WithLabelValues(resultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.relays.WithLabelValues(resultRejected)), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(m.treasury), 0)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := New("govledger", reg)
	require.NoError(t, err)

	_, err = New("govledger", reg)
	require.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ProposalCreated()
		m.VoteCast(types.ChoiceAbstain)
		m.ProposalExecution(true)
		m.RelayExecuted(true)
		m.RelayRejected()
		m.SetTreasury(big.NewInt(1))
	})
}
