// Package switchyardcmder is the root switchyard command.
package switchyardcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/switchyard/cmd/switchyard/chat"
	configcmder "github.com/papercomputeco/switchyard/cmd/switchyard/config"
	graphcmder "github.com/papercomputeco/switchyard/cmd/switchyard/graph"
	historycmder "github.com/papercomputeco/switchyard/cmd/switchyard/history"
	recallcmder "github.com/papercomputeco/switchyard/cmd/switchyard/recall"
	runcmder "github.com/papercomputeco/switchyard/cmd/switchyard/run"
	versioncmder "github.com/papercomputeco/switchyard/cmd/version"
)

const switchyardLongDesc string = `Switchyard is a stateful workflow graph for conversational agents with
hybrid memory: a durable, ordered log of every turn plus a vector index used
to recall similar turns while routing.

Get started:
  switchyard chat                        Start a conversation
  switchyard run --set input="..."       Run the workflow once
  switchyard history                     Print the conversation log
  switchyard recall "bitcoin" -k 3       Find similar turns
  switchyard graph                       Render the workflow as Mermaid`

const switchyardShortDesc string = "Switchyard - workflow graphs with hybrid memory"

func NewSwitchyardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "switchyard",
		Short:         switchyardShortDesc,
		Long:          switchyardLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .switchyard/ directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(graphcmder.NewGraphCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
