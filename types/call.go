package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is an invocation of a Target. From is the transport-level caller: the account that
// submitted the call directly, or the forwarder when the call is relayed.
type Call struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   uint64
	Input []byte
}

// RelayResult is the outcome of a relayed request. A failed inner call is reported here and does
// not fail the relay itself.
type RelayResult struct {
	Nonce      uint64 `json:"nonce"`
	Success    bool   `json:"success"`
	ReturnData []byte `json:"returnData"`

	// Err is the error returned by the target when Success is false.
	Err error `json:"-"`
}
