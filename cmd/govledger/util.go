package govledger

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	"github.com/smartcontractkit/govledger/types"
)

func loadPrivateKey(envFile string) (*ecdsa.PrivateKey, error) {
	// Load .env file
	if err := godotenv.Load(envFile); err != nil {
		return nil, err
	}

	// Load PrivateKey
	pk := os.Getenv("PRIVATE_KEY")
	if pk == "" {
		return nil, fmt.Errorf("PRIVATE_KEY not found in %s", envFile)
	}

	// Convert to ecdsa
	return crypto.HexToECDSA(pk)
}

func loadSignedRequest(path string) (types.SignedForwardRequest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.SignedForwardRequest{}, fmt.Errorf("unable to read request: %w", err)
	}

	var signed types.SignedForwardRequest
	if err := json.Unmarshal(b, &signed); err != nil {
		return types.SignedForwardRequest{}, fmt.Errorf("unable to decode request %s: %w", path, err)
	}

	return signed, nil
}

// parseAddress parses the 0x-prefixed hex address given for flag.
func parseAddress(flag, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid --%s address %q", flag, s)
	}

	return common.HexToAddress(s), nil
}

// parseOptionalAddress is parseAddress treating an empty string as the zero address.
func parseOptionalAddress(flag, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}

	return parseAddress(flag, s)
}

// parseAmount parses a positive decimal or 0x-prefixed hex amount.
func parseAmount(s string) (*big.Int, error) {
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}

	return v, nil
}

// parseOptionalAmount parses a non-negative amount, treating an empty string as zero.
func parseOptionalAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}

	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	return v, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))

	return err
}
