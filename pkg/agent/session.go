package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/switchyard/pkg/graph"
	"github.com/papercomputeco/switchyard/pkg/logger"
)

// ExitCommand ends a session when entered on its own line.
const ExitCommand = "exit"

// Renderer writes the prompt and the outcome of each turn.
type Renderer interface {
	Prompt(w io.Writer) error
	Turn(w io.Writer, state *State) error
}

// PlainRenderer writes an unstyled prompt and the turn's reply.
type PlainRenderer struct{}

func (PlainRenderer) Prompt(w io.Writer) error {
	_, err := io.WriteString(w, "> ")
	return err
}

func (PlainRenderer) Turn(w io.Writer, state *State) error {
	_, err := fmt.Fprintln(w, state.Reply)
	return err
}

// Session runs the workflow once per line of input. Memory is shared across
// turns through the workflow's collaborators; every turn gets a new State.
type Session struct {
	ID string

	runnable *graph.Runnable[*State]
	renderer Renderer
	logger   *slog.Logger
	turns    int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRenderer replaces the PlainRenderer.
func WithRenderer(r Renderer) SessionOption {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger.OrNop(l)
	}
}

// NewSession returns a session over a compiled workflow.
func NewSession(r *graph.Runnable[*State], opts ...SessionOption) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		runnable: r,
		renderer: PlainRenderer{},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("session", s.ID)
	return s
}

// MaxLineSize is the longest input line Run accepts.
const MaxLineSize = 1024 * 1024

// Run reads lines from in until EOF or ExitCommand and writes replies to out.
// Blank lines are skipped. A failed turn ends the session with its error.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.renderer.Prompt(out); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, ExitCommand) {
			s.logger.Debug("session ended by user", "turns", s.turns)
			return nil
		}

		s.turns++
		state, err := s.Turn(ctx, line, s.turns)
		if err != nil {
			return err
		}
		if err := s.renderer.Turn(out, state); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	s.logger.Debug("session ended at end of input", "turns", s.turns)
	return nil
}

// Turns returns the number of lines the session has run.
func (s *Session) Turns() int {
	return s.turns
}

// Turn runs the workflow once for a single line.
func (s *Session) Turn(ctx context.Context, line string, turn int) (*State, error) {
	runID := uuid.NewString()
	log := s.logger.With("run", runID, "turn", turn)

	state, path, err := s.runnable.InvokePath(ctx, &State{Input: line, Turn: turn})
	if err != nil {
		log.Error("turn failed", "path", path, "error", err)
		return state, fmt.Errorf("turn %d: %w", turn, err)
	}

	log.Debug("turn completed", "route", state.Route, "path", path)
	return state, nil
}
