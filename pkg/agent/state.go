package agent

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/papercomputeco/switchyard/pkg/storage"
)

// State is the record threaded through one run of the conversational
// workflow. Each node documents the fields it reads and writes.
type State struct {
	// Input is the user's line for this turn. Written by the caller.
	Input string `mapstructure:"input" json:"input"`

	// Route is the route key chosen by the classify node.
	Route string `mapstructure:"route" json:"route,omitempty"`

	// Context holds the recalled texts, joined with ContextSeparator.
	Context string `mapstructure:"context" json:"context,omitempty"`

	// Reply is the last agent reply recorded during the run.
	Reply string `mapstructure:"reply" json:"reply,omitempty"`

	// History is loaded by the history node at the end of a run.
	History []storage.Record `mapstructure:"-" json:"history,omitempty"`

	// Turn is the 1-based turn number within a session.
	Turn int `mapstructure:"turn" json:"turn,omitempty"`
}

// MissingFieldError is returned by State accessors when a field a node
// requires has not been written.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("state field %q is not set", e.Field)
}

// RequireInput returns the trimmed user input.
func (s *State) RequireInput() (string, error) {
	in := strings.TrimSpace(s.Input)
	if in == "" {
		return "", MissingFieldError{Field: "input"}
	}
	return in, nil
}

// RouteKey returns the route chosen for this turn. It is the decision
// function of the classify node's conditional edge.
func (s *State) RouteKey() (string, error) {
	if s.Route == "" {
		return "", MissingFieldError{Field: "route"}
	}
	return s.Route, nil
}

// DecodeState builds an initial State from loosely typed values, such as
// key=value pairs given on the command line. Unknown keys are an error.
func DecodeState(values map[string]any) (*State, error) {
	state := &State{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           state,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("creating state decoder: %w", err)
	}

	if err := decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}

	return state, nil
}
