package govledger

import (
	"fmt"

	"github.com/smartcontractkit/govledger/types"
)

// SignRequest signs req for submission to f and returns the signature with V set to 27 or 28.
func SignRequest(f *Forwarder, req types.ForwardRequest, signer Signer) ([]byte, error) {
	addr, err := signer.GetAddress()
	if err != nil {
		return nil, err
	}
	if addr != req.From {
		return nil, fmt.Errorf("signer %s cannot sign a request from %s", addr, req.From)
	}
	if req.Deadline > types.MaxRequestDeadline {
		return nil, NewValidationError("deadline", fmt.Sprintf("%d exceeds uint48 range", req.Deadline))
	}

	sigB, err := signer.SignTypedData(f.TypedData(req))
	if err != nil {
		return nil, err
	}

	sig, err := types.NewSignatureFromBytes(sigB)
	if err != nil {
		return nil, err
	}

	return sig.ToBytes(), nil
}
