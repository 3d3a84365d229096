package govledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/govledger/internal/state"
)

// Deploy creates a forwarder bound to domain and a ledger at ledgerAddr that trusts it, on the
// same state machine, and registers the ledger as a forwarder target. Options apply to both; a
// WithTrustedForwarder option is overridden by the forwarder's address.
func Deploy(
	sm *state.Machine, ledgerAddr common.Address, domain Domain, opts ...Option,
) (*Ledger, *Forwarder, error) {
	forwarder, err := NewForwarder(sm, domain, opts...)
	if err != nil {
		return nil, nil, err
	}

	ledgerOpts := append(append([]Option{}, opts...), WithTrustedForwarder(forwarder.Address()))
	ledger, err := NewLedger(sm, ledgerAddr, ledgerOpts...)
	if err != nil {
		return nil, nil, err
	}
	forwarder.Register(ledgerAddr, ledger)

	return ledger, forwarder, nil
}
