// Package chatcmder provides the chat command: the interactive conversation
// loop over the switchyard workflow.
package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/agent"
	"github.com/papercomputeco/switchyard/pkg/app"
	"github.com/papercomputeco/switchyard/pkg/cliui"
	"github.com/papercomputeco/switchyard/pkg/config"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/session"
)

type chatCommander struct {
	configDir string
	debug     bool
	cfg       *config.Config

	in  io.Reader
	out io.Writer
	err io.Writer
}

const chatLongDesc string = `Start an interactive conversation.

Every line you enter runs the workflow once: the line is recorded in memory,
similar turns are recalled to build context, a route is chosen by keyword
(finance, weather or general), the branch replies and the reply is recorded.
Memory persists across sessions in the configured store.

Type "exit" or send EOF (Ctrl-D) to end the session.

A session holds an exclusive lock on the .switchyard/ directory and writes a
JSON log to session.log next to config.toml.

Examples:
  switchyard chat
  switchyard chat --storage memory
  switchyard chat --embedding-provider ollama --embedding-dimensions 768 -k 3`

const chatShortDesc string = "Start an interactive conversation"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.ResolveCommand(cmd, append(config.RuntimeFlags, config.FlagRecallK)...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddRuntimeFlags(cmd)
	config.AddIntFlag(cmd, config.Flags, config.FlagRecallK, new(int))

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	sm, err := session.NewManager(c.configDir)
	if err != nil {
		return err
	}

	lock, err := sm.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	logFile, err := sm.OpenLog()
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logger.Session(c.debug, c.err, logFile)

	var a *app.App
	err = cliui.Step(c.err, "Opening memory", func() error {
		var openErr error
		a, openErr = app.Open(ctx, app.Options{
			Config:    c.cfg,
			ConfigDir: c.configDir,
			Logger:    log,
		})
		return openErr
	})
	if err != nil {
		return err
	}
	defer a.Close()

	// The metrics server logs through logFile, so it must stop before the
	// deferred close above runs.
	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	metricsDone := make(chan struct{})
	defer func() {
		cancelMetrics()
		<-metricsDone
	}()
	go func() {
		defer close(metricsDone)
		if err := a.ServeMetrics(metricsCtx); err != nil {
			log.Warn("metrics server stopped", "err", err)
		}
	}()

	s := agent.NewSession(a.Workflow,
		agent.WithRenderer(renderer{}),
		agent.WithSessionLogger(log),
	)

	state := &session.State{
		ID:        s.ID,
		PID:       os.Getpid(),
		Storage:   c.cfg.Storage.Provider,
		StartedAt: time.Now(),
	}
	if err := sm.SaveState(state); err != nil {
		log.Warn("could not save session state", "err", err)
	}

	fmt.Fprintf(c.out, "\n  %s %s\n  %s\n\n",
		cliui.HeaderStyle.Render("switchyard"),
		cliui.DimStyle.Render(fmt.Sprintf("(%d turns in memory)", a.Memory.Len())),
		cliui.DimStyle.Render(`Type "exit" to quit.`),
	)

	runErr := s.Run(ctx, c.in, c.out)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	state.Turns = s.Turns()
	state.EndedAt = time.Now()
	if err := sm.SaveState(state); err != nil {
		log.Warn("could not save session state", "err", err)
	}

	log.Info("session ended",
		slog.String("session", s.ID),
		slog.Int("turns", s.Turns()),
	)

	return runErr
}

// renderer styles the conversation for a terminal.
type renderer struct{}

func (renderer) Prompt(w io.Writer) error {
	_, err := fmt.Fprint(w, cliui.UserStyle.Render("you> "))
	return err
}

func (renderer) Turn(w io.Writer, state *agent.State) error {
	_, err := fmt.Fprintf(w, "%s %s %s\n\n",
		cliui.AgentStyle.Render("switchyard>"),
		cliui.RouteStyle.Render("["+state.Route+"]"),
		state.Reply,
	)
	return err
}
