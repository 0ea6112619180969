// Package agent wires the conversational workflow: a graph that records the
// user's line, classifies it with help from recalled memory, answers on the
// chosen branch and loads the durable history.
//
//	input -> classify -(finance|weather|general)-> <branch> -> history -> END
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/switchyard/pkg/graph"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/storage"
)

// Node names of the workflow.
const (
	NodeInput    = "input"
	NodeClassify = "classify"
	NodeFinance  = "finance"
	NodeWeather  = "weather"
	NodeGeneral  = "general"
	NodeHistory  = "history"
)

// ContextSeparator joins recalled texts in State.Context.
const ContextSeparator = " | "

// DefaultRecallK is the number of texts recalled by the classify node.
const DefaultRecallK = 2

// Memory is the subset of memory.Memory the workflow nodes use.
type Memory interface {
	Record(ctx context.Context, role storage.Role, text string) (storage.Record, error)
	Recall(ctx context.Context, query string, k int) ([]string, error)
	History(ctx context.Context) ([]storage.Record, error)
}

// Config holds the collaborators of the workflow.
type Config struct {
	Memory    Memory
	Responder Responder
	Router    *Router

	// RecallK defaults to DefaultRecallK.
	RecallK int

	Logger *slog.Logger

	// GraphOptions are passed to Compile.
	GraphOptions []graph.Option
}

// Workflow holds the node operations.
type Workflow struct {
	memory    Memory
	responder Responder
	router    *Router
	recallK   int
	logger    *slog.Logger
}

// New validates cfg and returns the workflow.
func New(cfg Config) (*Workflow, error) {
	if cfg.Memory == nil {
		return nil, errors.New("workflow requires a memory")
	}

	w := &Workflow{
		memory:    cfg.Memory,
		responder: cfg.Responder,
		router:    cfg.Router,
		recallK:   cfg.RecallK,
		logger:    logger.OrNop(cfg.Logger),
	}
	if w.responder == nil {
		w.responder = EchoResponder{}
	}
	if w.router == nil {
		w.router = NewRouter(nil, nil)
	}
	if w.recallK <= 0 {
		w.recallK = DefaultRecallK
	}

	return w, nil
}

// Graph returns the uncompiled workflow definition.
func (w *Workflow) Graph() (*graph.Graph[*State], error) {
	g := graph.New[*State]()

	nodes := []struct {
		name string
		fn   graph.NodeFunc[*State]
	}{
		{NodeInput, w.input},
		{NodeClassify, w.classify},
		{NodeFinance, w.answer(RouteFinance)},
		{NodeWeather, w.answer(RouteWeather)},
		{NodeGeneral, w.answer(RouteGeneral)},
		{NodeHistory, w.history},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.name, n.fn); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntryPoint(NodeInput); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeInput, NodeClassify); err != nil {
		return nil, err
	}

	decide := func(s *State) (string, error) {
		return s.RouteKey()
	}
	routes := map[string]string{
		RouteFinance: NodeFinance,
		RouteWeather: NodeWeather,
		RouteGeneral: NodeGeneral,
	}
	if err := g.AddConditionalEdge(NodeClassify, decide, routes); err != nil {
		return nil, err
	}

	for _, branch := range []string{NodeFinance, NodeWeather, NodeGeneral} {
		if err := g.AddEdge(branch, NodeHistory); err != nil {
			return nil, err
		}
	}
	if err := g.AddEdge(NodeHistory, graph.END); err != nil {
		return nil, err
	}

	return g, nil
}

// Build compiles the workflow described by cfg.
func Build(cfg Config) (*graph.Runnable[*State], error) {
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}

	g, err := w.Graph()
	if err != nil {
		return nil, fmt.Errorf("defining workflow: %w", err)
	}

	opts := append([]graph.Option{graph.WithLogger(w.logger)}, cfg.GraphOptions...)
	return g.Compile(opts...)
}

// input records the user's line. Reads Input.
func (w *Workflow) input(ctx context.Context, s *State) (*State, error) {
	in, err := s.RequireInput()
	if err != nil {
		return s, err
	}

	if _, err := w.memory.Record(ctx, storage.RoleUser, in); err != nil {
		return s, err
	}
	return s, nil
}

// classify recalls similar texts and picks the route. Reads Input, writes
// Context, Route and Reply.
func (w *Workflow) classify(ctx context.Context, s *State) (*State, error) {
	in, err := s.RequireInput()
	if err != nil {
		return s, err
	}

	similar, err := w.memory.Recall(ctx, in, w.recallK)
	if err != nil {
		return s, err
	}

	s.Context = strings.Join(similar, ContextSeparator)
	s.Route = w.router.Classify(in)
	w.logger.Debug("classified input", "route", s.Route, "results", len(similar))

	reply := fmt.Sprintf("route: %s", s.Route)
	if s.Context != "" {
		reply = fmt.Sprintf("route: %s; context: %s", s.Route, s.Context)
	}
	if _, err := w.memory.Record(ctx, storage.RoleAgent, reply); err != nil {
		return s, err
	}
	s.Reply = reply

	return s, nil
}

// answer returns the operation of a branch node. Writes Reply.
func (w *Workflow) answer(route string) graph.NodeFunc[*State] {
	return func(ctx context.Context, s *State) (*State, error) {
		reply, err := w.responder.Respond(ctx, route, s)
		if err != nil {
			return s, fmt.Errorf("responding on %s: %w", route, err)
		}

		if _, err := w.memory.Record(ctx, storage.RoleAgent, reply); err != nil {
			return s, err
		}
		s.Reply = reply

		return s, nil
	}
}

// history loads the durable conversation. Writes History.
func (w *Workflow) history(ctx context.Context, s *State) (*State, error) {
	records, err := w.memory.History(ctx)
	if err != nil {
		return s, err
	}

	s.History = records
	return s, nil
}
