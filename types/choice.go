package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"encoding/json"
	"fmt"
)

// Choice is a voter's current position on a proposal.
type Choice uint8

const (
	// ChoiceNone means the voter has not voted on the proposal.
	ChoiceNone Choice = iota
	ChoiceFor
	ChoiceAgainst
	ChoiceAbstain
)

var choiceNames = map[Choice]string{
	ChoiceNone:    "none",
	ChoiceFor:     "for",
	ChoiceAgainst: "against",
	ChoiceAbstain: "abstain",
}

// StringToChoice converts the lowercase name of a choice to a Choice.
var StringToChoice = map[string]Choice{
	"none":    ChoiceNone,
	"for":     ChoiceFor,
	"against": ChoiceAgainst,
	"abstain": ChoiceAbstain,
}

// ParseChoice parses the lowercase name of a choice.
func ParseChoice(s string) (Choice, error) {
	c, ok := StringToChoice[s]
	if !ok {
		return ChoiceNone, fmt.Errorf("unknown vote choice: %q", s)
	}

	return c, nil
}

// IsCastable reports whether the choice can be submitted as a vote. ChoiceNone only describes the
// absence of a vote.
func (c Choice) IsCastable() bool {
	return c == ChoiceFor || c == ChoiceAgainst || c == ChoiceAbstain
}

func (c Choice) String() string {
	if name, ok := choiceNames[c]; ok {
		return name
	}

	return fmt.Sprintf("choice(%d)", uint8(c))
}

// MarshalJSON implements the json.Marshaler interface.
func (c Choice) MarshalJSON() ([]byte, error) {
	name, ok := choiceNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown vote choice: %d", uint8(c))
	}

	return json.Marshal(name)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (c *Choice) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseChoice(s)
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}
