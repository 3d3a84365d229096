package govledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/go-playground/validator/v10"

	"github.com/smartcontractkit/govledger/types"
)

const (
	eip712DomainTypeName   = "EIP712Domain"
	forwardRequestTypeName = "ForwardRequest"
)

// The field order of these types is part of the signed payload and must match what off-ledger
// signers produce.
var (
	eip712DomainType = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	forwardRequestType = []apitypes.Type{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "gas", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint48"},
		{Name: "data", Type: "bytes"},
	}
)

// Domain binds signed requests to one forwarder deployment.
type Domain struct {
	Name              string         `json:"name" validate:"required"`
	Version           string         `json:"version" validate:"required"`
	ChainID           uint64         `json:"chainId" validate:"required"`
	VerifyingContract common.Address `json:"verifyingContract" validate:"required"`
}

// Validate checks that every field of the domain is set.
func (d Domain) Validate() error {
	return validator.New().Struct(d)
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(d.ChainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// forwardRequestTypedData builds the EIP-712 typed data a signer signs for req.
func forwardRequestTypedData(d Domain, req types.ForwardRequest) apitypes.TypedData {
	data := req.Data
	if data == nil {
		data = []byte{}
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			eip712DomainTypeName:   eip712DomainType,
			forwardRequestTypeName: forwardRequestType,
		},
		PrimaryType: forwardRequestTypeName,
		Domain:      d.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"from":     req.From.Hex(),
			"to":       req.To.Hex(),
			"value":    new(big.Int).Set(req.ValueOrZero()),
			"gas":      new(big.Int).SetUint64(req.Gas),
			"nonce":    new(big.Int).SetUint64(req.Nonce),
			"deadline": new(big.Int).SetUint64(req.Deadline),
			"data":     data,
		},
	}
}

// forwardRequestDigest returns the EIP-712 digest of req:
// keccak256(0x19 0x01 ‖ domainSeparator ‖ hashStruct(req)).
func forwardRequestDigest(d Domain, req types.ForwardRequest) (common.Hash, error) {
	if req.Deadline > types.MaxRequestDeadline {
		return common.Hash{}, fmt.Errorf("deadline %d exceeds uint48 range", req.Deadline)
	}

	hash, _, err := apitypes.TypedDataAndHash(forwardRequestTypedData(d, req))
	if err != nil {
		return common.Hash{}, fmt.Errorf("unable to hash forward request: %w", err)
	}

	return common.BytesToHash(hash), nil
}

// domainSeparator returns hashStruct(EIP712Domain) for d.
func domainSeparator(d Domain) (common.Hash, error) {
	td := apitypes.TypedData{
		Types:  apitypes.Types{eip712DomainTypeName: eip712DomainType},
		Domain: d.typedDataDomain(),
	}

	hash, err := td.HashStruct(eip712DomainTypeName, td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("unable to hash domain: %w", err)
	}

	return common.BytesToHash(hash), nil
}
