package govledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/smartcontractkit/govledger/internal/state"
	"github.com/smartcontractkit/govledger/internal/utils/safecast"
	"github.com/smartcontractkit/govledger/metrics"
	"github.com/smartcontractkit/govledger/types"
)

// Target receives calls forwarded by a Forwarder.
type Target interface {
	Execute(ctx context.Context, call types.Call) ([]byte, error)
}

// Forwarder verifies requests signed off-ledger and forwards them to their target on behalf of
// the signer. Each signer has a nonce that is consumed by every executed request, so a signed
// request can be executed at most once.
type Forwarder struct {
	state   *state.Machine
	domain  Domain
	clock   clock.Clock
	metrics *metrics.Metrics

	mu      sync.RWMutex
	targets map[common.Address]Target
}

// NewForwarder creates a forwarder whose requests are bound to domain. Only the clock and metrics
// options apply.
func NewForwarder(sm *state.Machine, domain Domain, opts ...Option) (*Forwarder, error) {
	if err := domain.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forwarder domain: %w", err)
	}

	o := newOptions(opts)

	return &Forwarder{
		state:   sm,
		domain:  domain,
		clock:   o.clock,
		metrics: o.metrics,
		targets: make(map[common.Address]Target),
	}, nil
}

// Address returns the verifying contract address of the forwarder's domain. Forwarded calls come
// from this address.
func (f *Forwarder) Address() common.Address {
	return f.domain.VerifyingContract
}

// Domain returns the domain requests are bound to.
func (f *Forwarder) Domain() Domain {
	return f.domain
}

// Register makes target reachable at addr.
func (f *Forwarder) Register(addr common.Address, target Target) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.targets[addr] = target
}

// TypedData returns the EIP-712 typed data a signer signs for req.
func (f *Forwarder) TypedData(req types.ForwardRequest) apitypes.TypedData {
	return forwardRequestTypedData(f.domain, req)
}

// Digest returns the EIP-712 digest of req.
func (f *Forwarder) Digest(req types.ForwardRequest) (common.Hash, error) {
	return forwardRequestDigest(f.domain, req)
}

// DomainSeparator returns the EIP-712 domain separator of the forwarder.
func (f *Forwarder) DomainSeparator() (common.Hash, error) {
	return domainSeparator(f.domain)
}

// GetNonce returns the nonce the next request from identity must carry.
func (f *Forwarder) GetNonce(ctx context.Context, identity common.Address) (uint64, error) {
	var nonce uint64
	err := f.state.View(ctx, func(r state.Reader) error {
		var err error
		nonce, err = readUint64(r, nonceKey(identity))

		return err
	})

	return nonce, err
}

// Verify reports whether req can be executed now: sig was produced by req.From over the request,
// the request carries the signer's current nonce, and its deadline has not passed. It never
// fails; any error reads as false.
func (f *Forwarder) Verify(ctx context.Context, req types.ForwardRequest, sig []byte) bool {
	err := f.state.View(ctx, func(r state.Reader) error {
		return f.validate(r, req, sig)
	})

	return err == nil
}

// Execute verifies req and forwards it to its target with req.From appended to the payload. value
// is the amount attached by the relayer and must equal req.Value.
//
// The signer's nonce is consumed before the forwarded call runs. A failing forwarded call is
// rolled back on its own and reported in the result; the relay itself still commits.
func (f *Forwarder) Execute(
	ctx context.Context, req types.ForwardRequest, sig []byte, value *big.Int,
) (types.RelayResult, error) {
	if value == nil {
		value = new(big.Int)
	}

	var result types.RelayResult
	err := f.state.Update(ctx, func(ctx context.Context, tx *state.Tx) error {
		if err := f.validate(tx, req, sig); err != nil {
			return err
		}
		if value.Cmp(req.ValueOrZero()) != 0 {
			return NewValidationError("value", fmt.Sprintf("attached %s does not match requested %s", value, req.ValueOrZero()))
		}

		writeUint64(tx, nonceKey(req.From), req.Nonce+1)

		ret, callErr := f.call(ctx, req)
		result = types.RelayResult{
			Nonce:      req.Nonce,
			Success:    callErr == nil,
			ReturnData: ret,
			Err:        callErr,
		}

		tx.Emit(types.RelayExecuted{
			From:    req.From,
			To:      req.To,
			Nonce:   req.Nonce,
			Success: result.Success,
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSignature) {
			f.metrics.RelayRejected()
		}
		LoggerFrom(ctx).Warnf("Relay request from %s to %s rejected: %v", req.From, req.To, err)

		return types.RelayResult{}, err
	}

	f.metrics.RelayExecuted(result.Success)
	if result.Success {
		LoggerFrom(ctx).Infof("Relayed request %d from %s to %s", req.Nonce, req.From, req.To)
	} else {
		LoggerFrom(ctx).Warnf("Relayed request %d from %s to %s failed: %v", req.Nonce, req.From, req.To, result.Err)
	}

	return result, nil
}

// validate returns a SignatureError describing why req cannot be executed, or nil.
func (f *Forwarder) validate(r state.Reader, req types.ForwardRequest, sig []byte) error {
	now, err := safecast.Int64ToUint64(f.clock.Now().Unix())
	if err != nil {
		return err
	}
	if now > req.Deadline {
		return NewSignatureError(req.From, fmt.Sprintf("request expired at %d", req.Deadline))
	}

	signer, err := f.recoverSigner(req, sig)
	if err != nil {
		return NewSignatureError(req.From, err.Error())
	}
	if signer != req.From {
		return NewSignatureError(req.From, fmt.Sprintf("signed by %s", signer))
	}

	nonce, err := readUint64(r, nonceKey(req.From))
	if err != nil {
		return err
	}
	if nonce != req.Nonce {
		return NewSignatureError(req.From, fmt.Sprintf("nonce %d does not match current nonce %d", req.Nonce, nonce))
	}

	return nil
}

func (f *Forwarder) recoverSigner(req types.ForwardRequest, sig []byte) (common.Address, error) {
	digest, err := f.Digest(req)
	if err != nil {
		return common.Address{}, err
	}

	s, err := types.ParseSignature(sig)
	if err != nil {
		return common.Address{}, err
	}

	return s.Recover(digest)
}

// call runs the forwarded call in its own frame, so a failing target leaves no writes behind.
func (f *Forwarder) call(ctx context.Context, req types.ForwardRequest) ([]byte, error) {
	f.mu.RLock()
	target, ok := f.targets[req.To]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownTarget, req.To)
	}

	call := types.Call{
		From:  f.Address(),
		To:    req.To,
		Value: new(big.Int).Set(req.ValueOrZero()),
		Gas:   req.Gas,
		Input: slices.Concat(req.Data, req.From.Bytes()),
	}

	ctx = withRelayedCall(ctx, relayedCall{forwarder: call.From, from: req.From})

	var ret []byte
	err := f.state.Update(ctx, func(ctx context.Context, _ *state.Tx) error {
		var err error
		ret, err = target.Execute(ctx, call)

		return err
	})

	return ret, err
}

type relayedCallKey struct{}

// relayedCall marks a context as carrying a call forwarded on behalf of from. Only the forwarder
// sets it, so targets can tell a relayed originator from bytes any caller could append.
type relayedCall struct {
	forwarder common.Address
	from      common.Address
}

func withRelayedCall(ctx context.Context, rc relayedCall) context.Context {
	return context.WithValue(ctx, relayedCallKey{}, &rc)
}

// withoutRelayedCall clears the mark, so calls made further down are not attributed to the
// originator again.
func withoutRelayedCall(ctx context.Context) context.Context {
	return context.WithValue(ctx, relayedCallKey{}, (*relayedCall)(nil))
}

func relayedCallFrom(ctx context.Context) (relayedCall, bool) {
	rc, _ := ctx.Value(relayedCallKey{}).(*relayedCall)
	if rc == nil {
		return relayedCall{}, false
	}

	return *rc, true
}
