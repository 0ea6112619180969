// Package graphcmder provides the graph command, which renders the
// conversational workflow as a Mermaid flowchart.
package graphcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/agent"
	"github.com/papercomputeco/switchyard/pkg/embeddings/hashing"
	"github.com/papercomputeco/switchyard/pkg/memory"
	"github.com/papercomputeco/switchyard/pkg/storage/inmemory"
)

const graphLongDesc string = `Render the workflow as a Mermaid flowchart.

The workflow is compiled against a throwaway in-memory store, so no
configuration or stored memory is needed. Compile diagnostics, such as nodes
unreachable from the entry point, are printed as Mermaid comments.

Use --highlight to style nodes as visited, for example to document a path.

Examples:
  switchyard graph
  switchyard graph --highlight input,classify,weather,history > workflow.mmd`

const graphShortDesc string = "Render the workflow as Mermaid"

func NewGraphCmd() *cobra.Command {
	var highlight []string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: graphShortDesc,
		Long:  graphLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			embedder := hashing.NewEmbedder(hashing.DefaultDimensions)
			driver, err := inmemory.NewDriver(embedder.Dimensions())
			if err != nil {
				return err
			}

			mem, err := memory.Open(cmd.Context(), driver, embedder)
			if err != nil {
				return err
			}
			defer mem.Close()

			runnable, err := agent.Build(agent.Config{Memory: mem})
			if err != nil {
				return fmt.Errorf("compiling workflow: %w", err)
			}

			w := cmd.OutOrStdout()
			for _, d := range runnable.Diagnostics() {
				fmt.Fprintf(w, "%%%% %s: %s\n", d.Node, d.Message)
			}
			fmt.Fprint(w, runnable.Mermaid(highlight...))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "Nodes to style as visited")

	return cmd
}
