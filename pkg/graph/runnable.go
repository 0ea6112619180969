package graph

import (
	"context"
	"sort"
	"time"

	"github.com/papercomputeco/switchyard/pkg/logger"
)

// Diagnostic is a non-fatal finding about a compiled graph.
type Diagnostic struct {
	Node    string
	Message string
}

// Runnable is a validated, immutable workflow. It is safe for concurrent use
// as long as the node operations are; each Invoke threads its own state.
type Runnable[S any] struct {
	config

	entry       string
	order       []string
	nodes       map[string]NodeFunc[S]
	rules       map[string]rule[S]
	diagnostics []Diagnostic
}

func (r *Runnable[S]) configure(opts ...Option) {
	r.logger = logger.Nop()
	for _, opt := range opts {
		opt(&r.config)
	}
}

// Entry returns the entry point.
func (r *Runnable[S]) Entry() string {
	return r.entry
}

// Nodes returns the node names in registration order.
func (r *Runnable[S]) Nodes() []string {
	return append([]string(nil), r.order...)
}

// Diagnostics returns the findings collected by Compile, such as nodes that
// cannot be reached from the entry point.
func (r *Runnable[S]) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), r.diagnostics...)
}

// Invoke runs the workflow from the entry point and returns the final state.
func (r *Runnable[S]) Invoke(ctx context.Context, state S) (S, error) {
	out, _, err := r.InvokePath(ctx, state)
	return out, err
}

// InvokePath runs the workflow and also returns the visited node names in
// execution order. A completed run's path ends with END. On error the path
// ends with the node that failed, or whose routing failed, and the state is
// the one the last successful node returned.
func (r *Runnable[S]) InvokePath(ctx context.Context, state S) (S, []string, error) {
	var (
		current = r.entry
		path    []string
		steps   int
	)

	for current != END {
		if err := ctx.Err(); err != nil {
			return state, path, err
		}
		if r.stepLimit > 0 && steps >= r.stepLimit {
			return state, path, StepLimitError{Limit: r.stepLimit, Node: current}
		}

		path = append(path, current)
		steps++

		next, err := r.step(ctx, current, state)
		if err != nil {
			return state, path, err
		}
		state = next

		to, err := r.next(ctx, current, state)
		if err != nil {
			return state, path, err
		}
		current = to
	}

	path = append(path, END)
	r.logger.Debug("graph run completed", "steps", steps)
	return state, path, nil
}

func (r *Runnable[S]) step(ctx context.Context, node string, state S) (S, error) {
	r.enter(ctx, node)
	r.logger.Debug("entering node", "node", node)

	start := time.Now()
	out, err := r.nodes[node](ctx, state)
	elapsed := time.Since(start)

	r.leave(ctx, node, elapsed, err)
	if err != nil {
		r.logger.Debug("node failed", "node", node, "error", err)
		return state, &NodeError{Node: node, Err: err}
	}
	return out, nil
}

func (r *Runnable[S]) next(ctx context.Context, from string, state S) (string, error) {
	rl := r.rules[from]
	if !rl.conditional() {
		return rl.to, nil
	}

	key, err := rl.decide(state)
	if err != nil {
		return "", &NodeError{Node: from, Err: err}
	}

	to, ok := rl.routes[key]
	if !ok {
		return "", UnmappedRouteError{Node: from, Key: key}
	}

	r.route(ctx, from, key, to)
	r.logger.Debug("route resolved", "node", from, "route", key, "next", to)
	return to, nil
}

// findUnreachable walks every possible edge from the entry point and reports
// nodes the walk never reaches.
func (r *Runnable[S]) findUnreachable() []Diagnostic {
	seen := map[string]bool{r.entry: true}
	queue := []string{r.entry}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, to := range r.successors(node) {
			if to == END || seen[to] {
				continue
			}
			seen[to] = true
			queue = append(queue, to)
		}
	}

	var out []Diagnostic
	for _, name := range r.order {
		if !seen[name] {
			out = append(out, Diagnostic{Node: name, Message: "unreachable from entry point " + r.entry})
		}
	}
	return out
}

// successors returns the possible destinations of a node, sorted by route key
// for conditional edges.
func (r *Runnable[S]) successors(node string) []string {
	rl := r.rules[node]
	if !rl.conditional() {
		return []string{rl.to}
	}

	keys := make([]string, 0, len(rl.routes))
	for k := range rl.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, rl.routes[k])
	}
	return out
}
