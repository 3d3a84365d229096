package govledger

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/govledger/metrics"
)

// DefaultSafetyPeriod is the delay between a proposal's voting deadline and the earliest time it
// may be executed.
const DefaultSafetyPeriod = 7 * 24 * time.Hour

// ProposalThreshold selects the gate applied to proposal creation.
type ProposalThreshold string

const (
	// ThresholdNonEmpty only requires a non-empty treasury.
	ThresholdNonEmpty ProposalThreshold = "nonempty"
	// ThresholdContribution requires the creator to have funded at least a tenth of the current
	// treasury.
	ThresholdContribution ProposalThreshold = "contribution"
)

// proposerShareDivisor expresses the 10% share required by ThresholdContribution.
const proposerShareDivisor = 10

type Option func(*options)

type options struct {
	clock            clock.Clock
	metrics          *metrics.Metrics
	safetyPeriod     time.Duration
	threshold        ProposalThreshold
	trustedForwarder common.Address
	transferer       Transferer
}

func newOptions(opts []Option) *options {
	o := &options{
		clock:        clock.New(),
		safetyPeriod: DefaultSafetyPeriod,
		threshold:    ThresholdNonEmpty,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithMetrics records activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSafetyPeriod overrides DefaultSafetyPeriod. Only whole seconds are significant.
func WithSafetyPeriod(d time.Duration) Option {
	return func(o *options) {
		o.safetyPeriod = d
	}
}

// WithProposalThreshold selects the proposal creation gate. Defaults to ThresholdNonEmpty.
func WithProposalThreshold(t ProposalThreshold) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithTrustedForwarder makes the ledger accept the originator appended to calls from addr.
func WithTrustedForwarder(addr common.Address) Option {
	return func(o *options) {
		o.trustedForwarder = addr
	}
}

// WithTransferer sets how executed proposals pay out. Defaults to an AccountBook on the ledger's
// own state.
func WithTransferer(t Transferer) Option {
	return func(o *options) {
		o.transferer = t
	}
}
