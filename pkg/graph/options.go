package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/switchyard/pkg/logger"
)

// Hooks observe a run. Every field is optional. Hooks are called on the
// goroutine running Invoke.
type Hooks struct {
	// OnNodeEnter is called before a node operation runs.
	OnNodeEnter func(ctx context.Context, node string)

	// OnNodeLeave is called after a node operation returns.
	OnNodeLeave func(ctx context.Context, node string, elapsed time.Duration, err error)

	// OnRoute is called when a conditional edge resolves a route key.
	OnRoute func(ctx context.Context, from, key, to string)
}

// Option configures a Runnable at compile time.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	hooks     []Hooks
	stepLimit int
}

// WithLogger sets the logger used for run tracing and compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger.OrNop(l)
	}
}

// WithHooks adds run observers. It may be passed more than once.
func WithHooks(h Hooks) Option {
	return func(c *config) {
		c.hooks = append(c.hooks, h)
	}
}

// WithStepLimit bounds the number of node executions in a single run.
// Zero or a negative limit means unbounded.
func WithStepLimit(n int) Option {
	return func(c *config) {
		c.stepLimit = n
	}
}

func (c *config) enter(ctx context.Context, node string) {
	for _, h := range c.hooks {
		if h.OnNodeEnter != nil {
			h.OnNodeEnter(ctx, node)
		}
	}
}

func (c *config) leave(ctx context.Context, node string, elapsed time.Duration, err error) {
	for _, h := range c.hooks {
		if h.OnNodeLeave != nil {
			h.OnNodeLeave(ctx, node, elapsed, err)
		}
	}
}

func (c *config) route(ctx context.Context, from, key, to string) {
	for _, h := range c.hooks {
		if h.OnRoute != nil {
			h.OnRoute(ctx, from, key, to)
		}
	}
}
