package govledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/govledger/internal/state"
)

// Transferer pays out executed proposals. It runs inside the execute operation; an error aborts
// the execution. Implementations that call back into the ledger must pass on ctx.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

var _ Transferer = (*AccountBook)(nil)

// AccountBook credits payouts to per-account balances kept in the ledger state.
type AccountBook struct {
	state *state.Machine
}

// NewAccountBook creates an AccountBook on sm.
func NewAccountBook(sm *state.Machine) *AccountBook {
	return &AccountBook{state: sm}
}

// Transfer credits amount to the balance of to.
func (b *AccountBook) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	return b.state.Update(ctx, func(_ context.Context, tx *state.Tx) error {
		bal, err := readBig(tx, balanceKey(to))
		if err != nil {
			return err
		}
		writeBig(tx, balanceKey(to), bal.Add(bal, amount))

		return nil
	})
}

// BalanceOf returns the amount credited to addr.
func (b *AccountBook) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal *big.Int
	err := b.state.View(ctx, func(r state.Reader) error {
		var err error
		bal, err = readBig(r, balanceKey(addr))

		return err
	})

	return bal, err
}
