// Package recallcmder provides the recall command, a similarity search over
// the turns recorded in memory.
package recallcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/app"
	"github.com/papercomputeco/switchyard/pkg/cliui"
	"github.com/papercomputeco/switchyard/pkg/config"
	"github.com/papercomputeco/switchyard/pkg/logger"
)

const recallLongDesc string = `Find the turns most similar to a query.

The query is embedded with the configured provider and compared against every
recorded turn. Results are printed nearest first with their squared Euclidean
distance and sequence id.

Examples:
  switchyard recall "bitcoin price"
  switchyard recall -k 5 "rain tomorrow"`

const recallShortDesc string = "Find turns similar to a query"

func NewRecallCmd() *cobra.Command {
	var (
		cfg *config.Config
		k   int
	)

	cmd := &cobra.Command{
		Use:   "recall <query...>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.ResolveCommand(cmd, append(config.RuntimeFlags, config.FlagRecallK)...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			ctx := cmd.Context()
			a, err := app.Open(ctx, app.Options{
				Config:    cfg,
				ConfigDir: configDir,
				Logger:    logger.New(logger.WithDebug(debug), logger.WithPretty(true), logger.WithWriter(cmd.ErrOrStderr())),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			matches, err := a.Memory.RecallMatches(ctx, query, cfg.Memory.RecallK)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No turns recorded yet."))
				return nil
			}

			fmt.Fprintln(w)
			for i, m := range matches {
				fmt.Fprintf(w, "  %s %s  %s\n",
					cliui.KeyStyle.Render(fmt.Sprintf("%d.", i+1)),
					cliui.DimStyle.Render(fmt.Sprintf("seq %d, distance %.4f", m.Seq, m.Distance)),
					m.Text,
				)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	config.AddRuntimeFlags(cmd)
	config.AddIntFlag(cmd, config.Flags, config.FlagRecallK, &k)

	return cmd
}
