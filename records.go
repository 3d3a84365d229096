package govledger

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/smartcontractkit/govledger/internal/state"
	"github.com/smartcontractkit/govledger/types"
)

// Key layout of the ledger state. All keys share the machine's key space with the event log, whose
// prefixes ("e", "E") are reserved.
var (
	proposalPrefix     = []byte("p")
	votePrefix         = []byte("v")
	noncePrefix        = []byte("n")
	contributionPrefix = []byte("f")
	balancePrefix      = []byte("b")
	treasuryKey        = []byte("t")
	proposalCountKey   = []byte("c")
)

func proposalKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(slices.Clone(proposalPrefix), id)
}

func voteKey(id uint64, voter common.Address) []byte {
	return slices.Concat(votePrefix, binary.BigEndian.AppendUint64(nil, id), voter.Bytes())
}

func nonceKey(addr common.Address) []byte {
	return slices.Concat(noncePrefix, addr.Bytes())
}

func contributionKey(addr common.Address) []byte {
	return slices.Concat(contributionPrefix, addr.Bytes())
}

func balanceKey(addr common.Address) []byte {
	return slices.Concat(balancePrefix, addr.Bytes())
}

func readProposal(r state.Reader, id uint64) (types.Proposal, bool, error) {
	b, ok, err := r.Get(proposalKey(id))
	if err != nil || !ok {
		return types.Proposal{}, false, err
	}

	var p types.Proposal
	if err := rlp.DecodeBytes(b, &p); err != nil {
		return types.Proposal{}, false, fmt.Errorf("unable to decode proposal %d: %w", id, err)
	}

	return p, true, nil
}

// mustReadProposal reads a proposal, failing with a ValidationError when it does not exist.
func mustReadProposal(r state.Reader, id uint64) (types.Proposal, error) {
	p, ok, err := readProposal(r, id)
	if err != nil {
		return types.Proposal{}, err
	}
	if !ok {
		return types.Proposal{}, NewProposalNotFoundError(id)
	}

	return p, nil
}

func writeProposal(tx *state.Tx, p types.Proposal) error {
	b, err := rlp.EncodeToBytes(&p)
	if err != nil {
		return fmt.Errorf("unable to encode proposal %d: %w", p.ID, err)
	}
	tx.Put(proposalKey(p.ID), b)

	return nil
}

func readChoice(r state.Reader, id uint64, voter common.Address) (types.Choice, error) {
	b, ok, err := r.Get(voteKey(id, voter))
	if err != nil || !ok {
		return types.ChoiceNone, err
	}
	if len(b) != 1 {
		return types.ChoiceNone, fmt.Errorf("corrupt vote record for proposal %d", id)
	}

	return types.Choice(b[0]), nil
}

func writeChoice(tx *state.Tx, id uint64, voter common.Address, c types.Choice) {
	tx.Put(voteKey(id, voter), []byte{byte(c)})
}

func readUint64(r state.Reader, key []byte) (uint64, error) {
	b, ok, err := r.Get(key)
	if err != nil || !ok {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("corrupt counter at key %x", key)
	}

	return binary.BigEndian.Uint64(b), nil
}

func writeUint64(tx *state.Tx, key []byte, v uint64) {
	tx.Put(key, binary.BigEndian.AppendUint64(nil, v))
}

func readBig(r state.Reader, key []byte) (*big.Int, error) {
	b, ok, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}

	return new(big.Int).SetBytes(b), nil
}

func writeBig(tx *state.Tx, key []byte, v *big.Int) {
	tx.Put(key, v.Bytes())
}
