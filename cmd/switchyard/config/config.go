// Package configcmder provides the config command for managing persistent
// switchyard configuration stored in the .switchyard/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/cliui"
	"github.com/papercomputeco/switchyard/pkg/config"
)

const configLongDesc string = `Manage persistent switchyard configuration.

Configuration is stored as config.toml in the .switchyard/ directory and
provides default values for command flags. SWITCHYARD_ environment variables
override the file, and CLI flags always take precedence over both.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.cache_size,
  memory.recall_k, routing.finance_keywords, routing.weather_keywords,
  graph.max_steps, metrics.listen

Use subcommands to manage configuration values:
  switchyard config init [--preset name]   Write a fresh config.toml
  switchyard config set <key> <value>      Set a configuration value
  switchyard config get <key>              Get a configuration value
  switchyard config list                   List all configuration values

Examples:
  switchyard config init --preset ollama
  switchyard config set storage.provider postgres
  switchyard config set routing.weather_keywords "weather,rain,snow"
  switchyard config get embedding.model
  switchyard config list`

const configShortDesc string = "Manage persistent switchyard configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validKeyArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
