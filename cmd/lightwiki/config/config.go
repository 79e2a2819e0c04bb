// Package configcmder provides the config command for managing persistent
// lightwiki configuration stored in the .lightwiki/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lightwiki/pkg/cliui"
	"github.com/papercomputeco/lightwiki/pkg/config"
)

const configLongDesc string = `Manage persistent lightwiki configuration.

Configuration is stored as config.toml in the .lightwiki/ directory and
provides default values for command flags. CLI flags and LIGHTWIKI_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn, storage.blob_format,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  index.metric, index.workers, search.top_k,
  graph.k, graph.layout, graph.store, graph.path, graph.endpoint,
  graph.bucket, graph.object_key, graph.neo4j_uri, graph.neo4j_user

Use subcommands to get, set, or list configuration values:
  lightwiki config set <key> <value>    Set a configuration value
  lightwiki config get <key>            Get a configuration value
  lightwiki config list                 List all configuration values

Examples:
  lightwiki config set index.metric euclidean
  lightwiki config set embedding.model nomic-embed-text
  lightwiki config get search.top_k
  lightwiki config list`

const configShortDesc string = "Manage persistent lightwiki configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
