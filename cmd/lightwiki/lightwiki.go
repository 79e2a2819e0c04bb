// Package lightwikicmder
package lightwikicmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/config"
	graphcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/graph"
	ingestcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/ingest"
	searchcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/search"
	versioncmder "github.com/papercomputeco/lightwiki/cmd/version"
)

const lightwikiLongDesc string = `lightwiki is semantic search and a similarity graph for your wiki.

Pages are embedded once with an embedding provider and stored alongside
their metadata. Search ranks every page against a query by meaning, and
the graph links each page to its closest neighbors.

Get started using:
  lightwiki ingest pages.json      Embed scraped pages
  lightwiki search "<query>"       Search pages by meaning
  lightwiki graph build            Build the similarity graph
  lightwiki config list            Show configuration`

const lightwikiShortDesc string = "lightwiki - Semantic wiki search"

func NewLightwikiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lightwiki",
		Short:        lightwikiShortDesc,
		Long:         lightwikiLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .lightwiki/ config directory")

	// Add subcommands
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(graphcmder.NewGraphCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
