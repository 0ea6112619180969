// Package runcmder provides the run command: a single workflow invocation
// from an initial state given on the command line.
package runcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/agent"
	"github.com/papercomputeco/switchyard/pkg/app"
	"github.com/papercomputeco/switchyard/pkg/cliui"
	"github.com/papercomputeco/switchyard/pkg/config"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/session"
)

type runCommander struct {
	configDir string
	debug     bool
	cfg       *config.Config

	sets    []string
	mermaid bool
	json    bool

	out io.Writer
	err io.Writer
}

const runLongDesc string = `Run the workflow once.

The initial state is built from key=value pairs given with --set. Any
positional arguments are joined into the input field. Unknown state keys are
rejected. The run records its turns in memory exactly like a chat turn.

The visited path and the final reply are printed. With --mermaid the workflow
is rendered as a Mermaid flowchart with the visited nodes highlighted; with
--json the final state is printed as JSON.

Examples:
  switchyard run what is the bitcoin price
  switchyard run --set input="will it rain tomorrow" --set turn=1
  switchyard run --mermaid "hola"`

const runShortDesc string = "Run the workflow once"

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run [input...]",
		Short: runShortDesc,
		Long:  runLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.ResolveCommand(cmd, append(config.RuntimeFlags, config.FlagRecallK)...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()

			values, err := parseSets(cmder.sets)
			if err != nil {
				return err
			}
			if _, ok := values["input"]; !ok && len(args) > 0 {
				values["input"] = strings.Join(args, " ")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return cmder.run(ctx, values)
		},
	}

	config.AddRuntimeFlags(cmd)
	config.AddIntFlag(cmd, config.Flags, config.FlagRecallK, new(int))
	cmd.Flags().StringArrayVar(&cmder.sets, "set", nil, "Initial state value as key=value (repeatable)")
	cmd.Flags().BoolVar(&cmder.mermaid, "mermaid", false, "Print the workflow as Mermaid with the visited path")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the final state as JSON")

	return cmd
}

// parseSets turns key=value pairs into a state value map.
func parseSets(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", s)
		}
		values[key] = value
	}
	return values, nil
}

func (c *runCommander) run(ctx context.Context, values map[string]any) error {
	state, err := agent.DecodeState(values)
	if err != nil {
		return err
	}
	if _, err := state.RequireInput(); err != nil {
		return fmt.Errorf("nothing to run: %w", err)
	}

	sm, err := session.NewManager(c.configDir)
	if err != nil {
		return err
	}
	lock, err := sm.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(c.err))

	a, err := app.Open(ctx, app.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	final, path, err := a.Workflow.InvokePath(ctx, state)
	if err != nil {
		return fmt.Errorf("running workflow (path %s): %w", strings.Join(path, " -> "), err)
	}

	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	}

	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.KeyStyle.Render("Path:"), strings.Join(path, " -> "))
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Route:"), cliui.RouteStyle.Render(final.Route))
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Reply:"), cliui.ValueStyle.Render(final.Reply))

	if c.mermaid {
		fmt.Fprintln(c.out, a.Workflow.Mermaid(path...))
	}

	return nil
}
