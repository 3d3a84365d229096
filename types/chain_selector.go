package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"errors"
	"fmt"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ChainSelector is a unique identifier for a chain.
//
// These values are defined in the chain-selectors dependency.
// https://github.com/smartcontractkit/chain-selectors
type ChainSelector uint64

var (
	// ErrChainFamilyNotFound is returned when the chain family is not found for a selector
	ErrChainFamilyNotFound = errors.New("chain family not found")

	// ErrUnsupportedChainFamily is returned when the selector does not belong to an EVM chain.
	// Request digests are bound to an EVM chain id.
	ErrUnsupportedChainFamily = errors.New("unsupported chain family")
)

// ChainID resolves the EVM chain id that signed requests must be bound to.
func (sel ChainSelector) ChainID() (uint64, error) {
	family, err := chainsel.GetSelectorFamily(uint64(sel))
	if err != nil {
		return 0, fmt.Errorf("%w for selector %d", ErrChainFamilyNotFound, sel)
	}

	if family != chainsel.FamilyEVM {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedChainFamily, family)
	}

	return chainsel.ChainIdFromSelector(uint64(sel))
}
