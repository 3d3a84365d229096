package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MaxRequestDeadline is the largest deadline a ForwardRequest can carry. Deadlines are encoded
// as uint48 in the signed payload.
const MaxRequestDeadline = uint64(1)<<48 - 1

// ForwardRequest is an action signed off-ledger by From and submitted by a relayer.
type ForwardRequest struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *big.Int       `json:"value"`
	Gas      uint64         `json:"gas"`
	Nonce    uint64         `json:"nonce"`
	Deadline uint64         `json:"deadline"`
	Data     []byte         `json:"data"`
}

// forwardRequestJSON is used to encode the payload as a 0x-prefixed hex string.
type forwardRequestJSON struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *hexutil.Big   `json:"value"`
	Gas      hexutil.Uint64 `json:"gas"`
	Nonce    hexutil.Uint64 `json:"nonce"`
	Deadline hexutil.Uint64 `json:"deadline"`
	Data     hexutil.Bytes  `json:"data"`
}

// MarshalJSON implements the json.Marshaler interface.
func (r ForwardRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(forwardRequestJSON{
		From:     r.From,
		To:       r.To,
		Value:    (*hexutil.Big)(r.ValueOrZero()),
		Gas:      hexutil.Uint64(r.Gas),
		Nonce:    hexutil.Uint64(r.Nonce),
		Deadline: hexutil.Uint64(r.Deadline),
		Data:     r.Data,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *ForwardRequest) UnmarshalJSON(b []byte) error {
	var v forwardRequestJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*r = ForwardRequest{
		From:     v.From,
		To:       v.To,
		Value:    (*big.Int)(v.Value),
		Gas:      uint64(v.Gas),
		Nonce:    uint64(v.Nonce),
		Deadline: uint64(v.Deadline),
		Data:     v.Data,
	}

	return nil
}

// ValueOrZero returns the attached value, treating a nil value as zero.
func (r ForwardRequest) ValueOrZero() *big.Int {
	if r.Value == nil {
		return new(big.Int)
	}

	return r.Value
}

// SignedForwardRequest pairs a request with its signature for transport to a relayer.
type SignedForwardRequest struct {
	Request   ForwardRequest `json:"request"`
	Signature hexutil.Bytes  `json:"signature"`
}
