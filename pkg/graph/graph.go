// Package graph is a small state-machine interpreter for conversational
// workflows.
//
// A Graph registers named nodes, a single entry point and one outgoing rule
// per node: either a fixed edge to another node (or END), or a conditional
// edge whose decision function reads the state and returns a route key that
// is looked up in a route table. Compile validates the definition and
// returns a Runnable that threads one state value through the nodes until a
// rule leads to END.
//
// Loops are legal. The engine does not detect them; node logic or a caller
// supplied step limit (WithStepLimit) bounds a run.
//
//	g := graph.New[*State]()
//	_ = g.AddNode("route", route)
//	_ = g.AddNode("finance", finance)
//	_ = g.SetEntryPoint("route")
//	_ = g.AddConditionalEdge("route", decide, map[string]string{"finance": "finance"})
//	_ = g.AddEdge("finance", graph.END)
//	r, err := g.Compile()
package graph

import (
	"context"
	"errors"
)

// END is the terminal marker. It is always a valid edge destination and can
// never be registered as a node.
const END = "__end__"

// NodeFunc is the operation of a node. It may read and write any part of the
// state and returns the state handed to the next node.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// DecideFunc reads the state and returns a route key.
type DecideFunc[S any] func(state S) (string, error)

type rule[S any] struct {
	// to is the destination of a fixed edge.
	to string

	// decide and routes are set for a conditional edge.
	decide DecideFunc[S]
	routes map[string]string
}

func (r rule[S]) conditional() bool {
	return r.decide != nil
}

// Graph is a mutable workflow definition. It is not safe for concurrent use.
type Graph[S any] struct {
	nodes map[string]NodeFunc[S]
	order []string
	rules map[string]rule[S]
	entry string
}

// New returns an empty graph over state type S.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes: make(map[string]NodeFunc[S]),
		rules: make(map[string]rule[S]),
	}
}

// AddNode registers a node.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) error {
	if name == "" || name == END {
		return ErrInvalidNodeName
	}
	if fn == nil {
		return errors.New("node function cannot be nil")
	}
	if _, ok := g.nodes[name]; ok {
		return DuplicateNodeError{Node: name}
	}

	g.nodes[name] = fn
	g.order = append(g.order, name)
	return nil
}

// SetEntryPoint designates the first node of every run. Setting END is
// accepted here and rejected by Compile.
func (g *Graph[S]) SetEntryPoint(name string) error {
	if name != END {
		if _, ok := g.nodes[name]; !ok {
			return UnknownNodeError{Node: name}
		}
	}

	g.entry = name
	return nil
}

// AddEdge adds a fixed edge from one node to another node or END.
func (g *Graph[S]) AddEdge(from, to string) error {
	if err := g.checkSource(from); err != nil {
		return err
	}
	if err := g.checkDestination(to); err != nil {
		return err
	}

	g.rules[from] = rule[S]{to: to}
	return nil
}

// AddConditionalEdge adds a conditional edge. After from runs, decide is
// called with the state and its key selects the destination in routes.
func (g *Graph[S]) AddConditionalEdge(from string, decide DecideFunc[S], routes map[string]string) error {
	if err := g.checkSource(from); err != nil {
		return err
	}
	if decide == nil {
		return errors.New("decision function cannot be nil")
	}
	if len(routes) == 0 {
		return errors.New("conditional edge needs at least one route")
	}

	table := make(map[string]string, len(routes))
	for key, to := range routes {
		if err := g.checkDestination(to); err != nil {
			return err
		}
		table[key] = to
	}

	g.rules[from] = rule[S]{decide: decide, routes: table}
	return nil
}

func (g *Graph[S]) checkSource(from string) error {
	if _, ok := g.nodes[from]; !ok {
		return UnknownNodeError{Node: from}
	}
	if _, ok := g.rules[from]; ok {
		return DuplicateEdgeError{From: from}
	}
	return nil
}

func (g *Graph[S]) checkDestination(to string) error {
	if to == END {
		return nil
	}
	if _, ok := g.nodes[to]; !ok {
		return UnknownNodeError{Node: to}
	}
	return nil
}

// Compile validates the graph and returns a Runnable over a snapshot of it.
// Later changes to g do not affect the returned Runnable.
func (g *Graph[S]) Compile(opts ...Option) (*Runnable[S], error) {
	if len(g.nodes) == 0 {
		return nil, ErrEmptyGraph
	}

	switch g.entry {
	case "":
		return nil, ErrNoEntryPoint
	case END:
		return nil, ErrEmptyGraph
	}

	for _, name := range g.order {
		if _, ok := g.rules[name]; !ok {
			return nil, MissingEdgeError{Node: name}
		}
	}

	r := &Runnable[S]{
		entry: g.entry,
		order: append([]string(nil), g.order...),
		nodes: make(map[string]NodeFunc[S], len(g.nodes)),
		rules: make(map[string]rule[S], len(g.rules)),
	}
	for name, fn := range g.nodes {
		r.nodes[name] = fn
	}
	for name, rl := range g.rules {
		if rl.conditional() {
			table := make(map[string]string, len(rl.routes))
			for k, v := range rl.routes {
				table[k] = v
			}
			rl.routes = table
		}
		r.rules[name] = rl
	}

	r.configure(opts...)
	r.diagnostics = r.findUnreachable()
	for _, d := range r.diagnostics {
		r.logger.Warn("graph diagnostic", "node", d.Node, "diagnostic", d.Message)
	}

	return r, nil
}
