// Package graphcmder provides the graph commands for building and reading
// the k-nearest-neighbor graph of the wiki.
package graphcmder

import (
	"github.com/spf13/cobra"
)

const graphLongDesc string = `Build and inspect the page similarity graph.

The graph links every page to its k nearest other pages under the
configured distance metric. Snapshots are written to the configured graph
store (file, s3 or neo4j) and replace the previous snapshot atomically.

Use subcommands to build or show the graph:
  lightwiki graph build    Compute and save a new snapshot
  lightwiki graph show     Print the current snapshot`

const graphShortDesc string = "Build and inspect the page similarity graph"

func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: graphShortDesc,
		Long:  graphLongDesc,
	}

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}
