// Package searchcmder provides the search command for similarity search over
// wiki pages.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lightwiki/cmd/lightwiki/backend"
	"github.com/papercomputeco/lightwiki/pkg/cliui"
	"github.com/papercomputeco/lightwiki/pkg/config"
	"github.com/papercomputeco/lightwiki/pkg/search"
)

type searchCommander struct {
	query   string
	quiet   bool
	json    bool
	timeout time.Duration

	settings *backend.Settings
	logger   *slog.Logger
	out      io.Writer
}

const searchLongDesc string = `Search wiki pages by meaning.

The query is embedded with the configured embedding provider and ranked
against every stored page embedding with exact nearest-neighbor search.
Results are resolved to page titles from the pages database.

Use --quiet to output only page ids, one per line, or --json for the full
result set.

Example:
  lightwiki search "graph neural networks"
  lightwiki search "attention mechanisms" --top 10
  lightwiki search "retrieval" --metric euclidean --json
  lightwiki search "transformers" --quiet --top 1`

const searchShortDesc string = "Search wiki pages"

var searchFlags = append([]string{config.FlagTopK, config.FlagMetric}, backend.ConnectionFlags...)

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.settings, err = backend.LoadSettings(cmd, searchFlags...)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()
			var err error
			if cmder.logger, err = cmder.settings.Logger(); err != nil {
				return err
			}
			defer cmder.settings.Close()
			return cmder.run(cmd.Context())
		},
	}

	config.AddFlags(cmd, config.Flags, searchFlags...)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only page ids, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Output results as JSON")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 0, "Abort the search after this long (0 for no limit)")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := backend.WithTimeout(ctx, c.timeout)
	defer cancel()

	cfg := c.settings.Config
	metric, err := backend.Metric(cfg)
	if err != nil {
		return err
	}

	b, err := backend.Open(ctx, cfg, c.settings.ConfigDir, c.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	store, err := b.LoadStore(ctx)
	if err != nil {
		return err
	}

	embedder, err := backend.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	engine := search.NewEngine(store.Snapshot(),
		search.WithMetric(metric),
		search.WithEmbedder(embedder),
		search.WithLogger(c.logger),
	)

	neighbors, err := engine.SearchText(ctx, c.query, int(cfg.Search.TopK))
	if err != nil {
		return err
	}

	output, err := search.Resolve(ctx, c.query, neighbors, b.Pages, c.logger)
	if err != nil {
		return err
	}

	return c.print(output)
}

func (c *searchCommander) print(output *search.Output) error {
	switch {
	case c.json:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)

	case c.quiet:
		for _, r := range output.Results {
			fmt.Fprintln(c.out, r.ID)
		}
		return nil
	}

	if output.Count == 0 {
		fmt.Fprintln(c.out, "No results found.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, r := range output.Results {
		title := r.Title
		if !r.Resolved {
			title = cliui.DimStyle.Render("(no page metadata)")
		} else {
			title = cliui.TitleStyle.Render(title)
		}

		fmt.Fprintf(c.out, "  %s  %s  %s\n",
			cliui.HeaderStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.FormatDistance(r.Distance),
			title,
		)
		fmt.Fprintf(c.out, "      %s", cliui.DimStyle.Render(r.ID))
		if r.URL != "" {
			fmt.Fprintf(c.out, "  %s", cliui.DimStyle.Render(r.URL))
		}
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out)

	return nil
}
