package govledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// fakeSigner implements the Signer interface for testing purposes
type fakeSigner struct {
	addr common.Address
	sigB []byte
	err  error
}

// newFakeSigner creates a new fakeSigner. The args provided will be returned when SignTypedData is
// called.
func newFakeSigner(addr common.Address, sigB []byte, err error) Signer {
	return &fakeSigner{addr: addr, sigB: sigB, err: err}
}

// SignTypedData implements the Signer interface.
func (f *fakeSigner) SignTypedData(apitypes.TypedData) ([]byte, error) {
	return f.sigB, f.err
}

// GetAddress implements the Signer interface.
func (f *fakeSigner) GetAddress() (common.Address, error) {
	return f.addr, nil
}

// fakeTransferer runs fn in place of a transfer.
type fakeTransferer struct {
	fn func(ctx context.Context, to common.Address, amount *big.Int) error
}

// Transfer implements the Transferer interface.
func (f *fakeTransferer) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	return f.fn(ctx, to, amount)
}
