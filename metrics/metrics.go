// Package metrics exposes prometheus collectors for ledger and relay activity.
package metrics

import (
	"errors"
	"math/big"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smartcontractkit/govledger/types"
)

const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultRejected = "rejected"
)

// Metrics records ledger activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	proposalsCreated prometheus.Counter
	votesCast        *prometheus.CounterVec
	executions       *prometheus.CounterVec
	relays           *prometheus.CounterVec
	treasury         prometheus.Gauge
}

// New creates the collectors and registers them with registerer.
func New(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		proposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_created",
			Help:      "Number of proposals created",
		}),
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast",
			Help:      "Number of votes cast, including changed votes",
		}, []string{"choice"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposal_executions",
			Help:      "Number of proposal execution attempts by result",
		}, []string{"result"}),
		relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_requests",
			Help:      "Number of relay requests by result",
		}, []string{"result"}),
		treasury: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "treasury_balance",
			Help:      "Treasury balance after the last committed operation",
		}),
	}

	err := errors.Join(
		registerer.Register(m.proposalsCreated),
		registerer.Register(m.votesCast),
		registerer.Register(m.executions),
		registerer.Register(m.relays),
		registerer.Register(m.treasury),
	)

	return m, err
}

func (m *Metrics) ProposalCreated() {
	if m == nil {
		return
	}
	m.proposalsCreated.Inc()
}

func (m *Metrics) VoteCast(c types.Choice) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(c.String()).Inc()
}

// ProposalExecution records an execution attempt. Failed attempts are rejected operations.
func (m *Metrics) ProposalExecution(executed bool) {
	if m == nil {
		return
	}
	if executed {
		m.executions.WithLabelValues(resultSuccess).Inc()
	} else {
		m.executions.WithLabelValues(resultRejected).Inc()
	}
}

// RelayExecuted records a relayed request whose inner call succeeded or failed.
func (m *Metrics) RelayExecuted(success bool) {
	if m == nil {
		return
	}
	if success {
		m.relays.WithLabelValues(resultSuccess).Inc()
	} else {
		m.relays.WithLabelValues(resultFailure).Inc()
	}
}

// RelayRejected records a request that failed verification.
func (m *Metrics) RelayRejected() {
	if m == nil {
		return
	}
	m.relays.WithLabelValues(resultRejected).Inc()
}

// SetTreasury records the treasury balance. Large balances lose precision.
func (m *Metrics) SetTreasury(balance *big.Int) {
	if m == nil || balance == nil {
		return
	}
	f, _ := new(big.Float).SetInt(balance).Float64()
	m.treasury.Set(f)
}
