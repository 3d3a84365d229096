package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a record emitted by a committed operation.
type Event interface {
	EventName() string
}

const (
	EventProposalCreated  = "ProposalCreated"
	EventVoteCast         = "VoteCast"
	EventProposalExecuted = "ProposalExecuted"
	EventFundsReceived    = "FundsReceived"
	EventRelayExecuted    = "RelayExecuted"
)

type ProposalCreated struct {
	ID        uint64         `json:"id"`
	Creator   common.Address `json:"creator"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
	Deadline  uint64         `json:"deadline"`
}

func (ProposalCreated) EventName() string { return EventProposalCreated }

type VoteCast struct {
	ID           uint64         `json:"id"`
	Voter        common.Address `json:"voter"`
	Choice       Choice         `json:"choice"`
	ForVotes     uint64         `json:"forVotes"`
	AgainstVotes uint64         `json:"againstVotes"`
	AbstainVotes uint64         `json:"abstainVotes"`
}

func (VoteCast) EventName() string { return EventVoteCast }

type ProposalExecuted struct {
	ID        uint64         `json:"id"`
	Success   bool           `json:"success"`
	Amount    *big.Int       `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

func (ProposalExecuted) EventName() string { return EventProposalExecuted }

type FundsReceived struct {
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
}

func (FundsReceived) EventName() string { return EventFundsReceived }

type RelayExecuted struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Nonce   uint64         `json:"nonce"`
	Success bool           `json:"success"`
}

func (RelayExecuted) EventName() string { return EventRelayExecuted }

// LoggedEvent is an event together with its position in the append-only log.
type LoggedEvent struct {
	Seq   uint64 `json:"seq"`
	Event Event  `json:"-"`
}

// envelope is the stored form of an event.
type envelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// EncodeEvent serializes an event with its name so it can be decoded without knowing its type.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{Name: ev.EventName(), Data: data})
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("unable to unmarshal event: %w", err)
	}

	switch env.Name {
	case EventProposalCreated:
		return decodeAs[ProposalCreated](env)
	case EventVoteCast:
		return decodeAs[VoteCast](env)
	case EventProposalExecuted:
		return decodeAs[ProposalExecuted](env)
	case EventFundsReceived:
		return decodeAs[FundsReceived](env)
	case EventRelayExecuted:
		return decodeAs[RelayExecuted](env)
	default:
		return nil, fmt.Errorf("unknown event %q", env.Name)
	}
}

func decodeAs[T Event](env envelope) (Event, error) {
	var ev T
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return nil, fmt.Errorf("unable to unmarshal %s: %w", env.Name, err)
	}

	return ev, nil
}
