package govledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/govledger/internal/utils/safecast"
	"github.com/smartcontractkit/govledger/types"
)

const ledgerABIJSON = `[
	{"type":"function","name":"fund","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"createProposal","stateMutability":"nonpayable",
		"inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"deadline","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"vote","stateMutability":"nonpayable",
		"inputs":[{"name":"proposalId","type":"uint256"},{"name":"choice","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"executeProposal","stateMutability":"nonpayable",
		"inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]}
]`

// LedgerABI describes the calldata accepted by Ledger.Execute.
var LedgerABI = mustParseABI(ledgerABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}

	return parsed
}

// PackFund encodes a call to fund().
func PackFund() ([]byte, error) {
	return LedgerABI.Pack("fund")
}

// PackCreateProposal encodes a call to createProposal(address,uint256,uint256).
func PackCreateProposal(recipient common.Address, amount *big.Int, deadline uint64) ([]byte, error) {
	return LedgerABI.Pack("createProposal", recipient, amount, new(big.Int).SetUint64(deadline))
}

// PackVote encodes a call to vote(uint256,uint8).
func PackVote(id uint64, choice types.Choice) ([]byte, error) {
	return LedgerABI.Pack("vote", new(big.Int).SetUint64(id), uint8(choice))
}

// PackExecuteProposal encodes a call to executeProposal(uint256).
func PackExecuteProposal(id uint64) ([]byte, error) {
	return LedgerABI.Pack("executeProposal", new(big.Int).SetUint64(id))
}

// UnpackProposalID decodes the return data of createProposal.
func UnpackProposalID(ret []byte) (uint64, error) {
	out, err := LedgerABI.Unpack("createProposal", ret)
	if err != nil {
		return 0, err
	}
	id, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected return type %T", out[0])
	}

	return safecast.BigToUint64(id)
}

// Execute runs an ABI-encoded call against the ledger. A call with no input and a positive value
// funds the treasury.
//
// When the call comes from the trusted forwarder the last 20 bytes of the input are the address of
// the account that signed the relayed request, and that account is the caller of the operation.
func (l *Ledger) Execute(ctx context.Context, call types.Call) ([]byte, error) {
	sender, input := l.msgSender(ctx, call)
	ctx = withoutRelayedCall(ctx)
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	if len(input) == 0 {
		if value.Sign() > 0 {
			return nil, l.Fund(ctx, sender, value)
		}

		return nil, NewValidationError("calldata", "empty call without value")
	}
	if len(input) < 4 {
		return nil, NewValidationError("calldata", "shorter than a method selector")
	}

	method, err := LedgerABI.MethodById(input[:4])
	if err != nil {
		return nil, NewValidationError("calldata", "unknown method selector "+hexutil.Encode(input[:4]))
	}
	if !method.IsPayable() && value.Sign() > 0 {
		return nil, NewValidationError("value", method.Name+" is not payable")
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, NewValidationError("calldata", fmt.Sprintf("unable to decode %s arguments: %v", method.Name, err))
	}

	switch method.Name {
	case "fund":
		return nil, l.Fund(ctx, sender, value)

	case "createProposal":
		recipient, _ := args[0].(common.Address)
		amount, _ := args[1].(*big.Int)
		deadline, err := uintArg("deadline", args[2])
		if err != nil {
			return nil, err
		}

		id, err := l.CreateProposal(ctx, sender, recipient, amount, deadline)
		if err != nil {
			return nil, err
		}

		return method.Outputs.Pack(new(big.Int).SetUint64(id))

	case "vote":
		id, err := uintArg("proposal id", args[0])
		if err != nil {
			return nil, err
		}
		choice, _ := args[1].(uint8)

		return nil, l.Vote(ctx, sender, id, types.Choice(choice))

	case "executeProposal":
		id, err := uintArg("proposal id", args[0])
		if err != nil {
			return nil, err
		}

		return nil, l.ExecuteProposal(ctx, sender, id)

	default:
		return nil, NewValidationError("calldata", "unsupported method "+method.Name)
	}
}

// msgSender resolves the caller of an operation and strips the appended originator from relayed
// calls. The appended address is honored only for a call the trusted forwarder is relaying for
// exactly that originator.
func (l *Ledger) msgSender(ctx context.Context, call types.Call) (common.Address, []byte) {
	if !l.IsTrustedForwarder(call.From) || len(call.Input) < common.AddressLength {
		return call.From, call.Input
	}

	rc, ok := relayedCallFrom(ctx)
	n := len(call.Input) - common.AddressLength
	originator := common.BytesToAddress(call.Input[n:])
	if !ok || rc.forwarder != call.From || rc.from != originator {
		return call.From, call.Input
	}

	return originator, call.Input[:n]
}

func uintArg(name string, arg any) (uint64, error) {
	v, ok := arg.(*big.Int)
	if !ok {
		return 0, NewValidationError(name, fmt.Sprintf("unexpected type %T", arg))
	}

	u, err := safecast.BigToUint64(v)
	if err != nil {
		return 0, NewValidationError(name, err.Error())
	}

	return u, nil
}
