package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureBytesLength defines the length of the signature in bytes after summing the byte
	// values of R, S, and V.
	SignatureBytesLength = 65

	// SignatureComponentSize defines the size of each signature component (R and S) in bytes.
	SignatureComponentSize = 32

	// SignatureVOffset defines the offset to adjust the recovery id (v) if needed.
	SignatureVOffset = 27
)

// ErrMalleableSignature is returned for signatures that are not in canonical (low-s) form.
var ErrMalleableSignature = errors.New("signature is not in canonical form")

// Signature is a secp256k1 signature with an Ethereum style recovery id.
type Signature struct {
	R common.Hash
	S common.Hash
	V uint8
}

// NewSignatureFromBytes creates a new Signature from a byte slice of concatenated R, S, and V
// values. V is normalized to 27 or 28.
func NewSignatureFromBytes(sig []byte) (Signature, error) {
	if len(sig) != SignatureBytesLength {
		return Signature{}, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	v := sig[SignatureBytesLength-1]
	if v < SignatureVOffset {
		v += SignatureVOffset
	}

	return Signature{
		R: common.BytesToHash(sig[:SignatureComponentSize]),
		S: common.BytesToHash(sig[SignatureComponentSize:(SignatureBytesLength - 1)]),
		V: v,
	}, nil
}

// ParseSignature decodes a signature submitted for verification. V is kept as given, so only the
// 27 or 28 form of a signature recovers.
func ParseSignature(sig []byte) (Signature, error) {
	if len(sig) != SignatureBytesLength {
		return Signature{}, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	return Signature{
		R: common.BytesToHash(sig[:SignatureComponentSize]),
		S: common.BytesToHash(sig[SignatureComponentSize:(SignatureBytesLength - 1)]),
		V: sig[SignatureBytesLength-1],
	}, nil
}

// ToBytes returns the byte representation of the signature.
func (s Signature) ToBytes() []byte {
	return slices.Concat(
		s.R.Bytes(),
		s.S.Bytes(),
		[]byte{s.V},
	)
}

// Recover returns the address that produced the signature over hash.
//
// Only canonical signatures are accepted: the recovery id must be 27 or 28 and s must be in the
// lower half of the curve order, so every signer has exactly one valid signature per digest.
func (s Signature) Recover(hash common.Hash) (common.Address, error) {
	if s.V != SignatureVOffset && s.V != SignatureVOffset+1 {
		return common.Address{}, fmt.Errorf("invalid recovery id: %d", s.V)
	}
	recID := s.V - SignatureVOffset

	if !crypto.ValidateSignatureValues(recID, s.R.Big(), s.S.Big(), true) {
		return common.Address{}, ErrMalleableSignature
	}

	sig := slices.Concat(s.R.Bytes(), s.S.Bytes(), []byte{recID})

	pubKey, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
