package agent

import (
	"context"
	"fmt"
)

// Responder produces the agent's reply for a routed turn.
type Responder interface {
	Respond(ctx context.Context, route string, state *State) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, route string, state *State) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, route string, state *State) (string, error) {
	return f(ctx, route, state)
}

// EchoResponder replies with the route, the question and the recalled
// context. It needs no model and is the default for the CLI.
type EchoResponder struct{}

func (EchoResponder) Respond(_ context.Context, route string, state *State) (string, error) {
	if state.Context == "" {
		return fmt.Sprintf("[%s] %s", route, state.Input), nil
	}
	return fmt.Sprintf("[%s] %s (related: %s)", route, state.Input, state.Context), nil
}
