// Package historycmder provides the history command, which prints the
// structured conversation log in sequence order.
package historycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/app"
	"github.com/papercomputeco/switchyard/pkg/cliui"
	"github.com/papercomputeco/switchyard/pkg/config"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/utils"
)

type historyCommander struct {
	configDir string
	debug     bool
	cfg       *config.Config

	truncate int
	last     int
	json     bool
}

const historyLongDesc string = `Print the conversation log.

Every turn recorded in memory is printed in sequence order with its role.
Use --last to limit the output to the most recent records and --truncate to
shorten long turns. --json prints the records as a JSON array.

Examples:
  switchyard history
  switchyard history --last 10 --truncate 80
  switchyard history --json`

const historyShortDesc string = "Print the conversation log"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.ResolveCommand(cmd, config.RuntimeFlags...)
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

			return cmder.run(cmd)
		},
	}

	config.AddRuntimeFlags(cmd)
	cmd.Flags().IntVar(&cmder.truncate, "truncate", 0, "Truncate turns longer than this many bytes (0 disables)")
	cmd.Flags().IntVar(&cmder.last, "last", 0, "Only print the most recent records (0 prints all)")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print records as JSON")

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(cmd.ErrOrStderr()))

	a, err := app.Open(ctx, app.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Memory.History(ctx)
	if err != nil {
		return err
	}
	if c.last > 0 && len(records) > c.last {
		records = records[len(records)-c.last:]
	}

	if c.json {
		if records == nil {
			records = []storage.Record{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	printRecords(cmd.OutOrStdout(), records, c.truncate)
	return nil
}

func printRecords(w io.Writer, records []storage.Record, truncate int) {
	if len(records) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No turns recorded yet."))
		return
	}

	fmt.Fprintln(w)
	for _, rec := range records {
		content := rec.Content
		if truncate > 0 {
			content = utils.Truncate(content, truncate)
		}

		role := cliui.AgentStyle.Render(string(rec.Role))
		if rec.Role == storage.RoleUser {
			role = cliui.UserStyle.Render(string(rec.Role))
		}

		fmt.Fprintf(w, "  %s  %-5s  %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%4s", strconv.FormatInt(rec.Seq, 10))),
			role,
			content,
		)
	}
	fmt.Fprintln(w)
}
