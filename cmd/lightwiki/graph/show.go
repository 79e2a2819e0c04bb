package graphcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lightwiki/cmd/lightwiki/backend"
	"github.com/papercomputeco/lightwiki/pkg/cliui"
	"github.com/papercomputeco/lightwiki/pkg/config"
	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/graph/filestore"
)

type showCommander struct {
	raw    bool
	follow bool

	settings *backend.Settings
	logger   *slog.Logger
	out      io.Writer
}

const showLongDesc string = `Show the current graph snapshot.

Prints each page and its nearest neighbors. Use --raw to print the stored
snapshot verbatim as canonical JSON, suitable for piping into a
visualizer. Use --follow with the file store to print every new snapshot
as it is saved.

Examples:
  lightwiki graph show
  lightwiki graph show --raw > graph.json
  lightwiki graph show --follow`

const showShortDesc string = "Show the current graph snapshot"

var showFlags = []string{config.FlagGraphStore, config.FlagGraphPath}

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.raw && cmder.follow {
				return errors.New("--raw and --follow cannot be used together")
			}
			var err error
			cmder.settings, err = backend.LoadSettings(cmd, showFlags...)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			var err error
			if cmder.logger, err = cmder.settings.Logger(); err != nil {
				return err
			}
			defer cmder.settings.Close()
			return cmder.run(cmd.Context())
		},
	}

	config.AddFlags(cmd, config.Flags, showFlags...)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the stored snapshot verbatim")
	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Print new snapshots as they are saved (file store only)")

	return cmd
}

func (c *showCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := backend.OpenGraphStore(ctx, c.settings.Config, c.settings.ConfigDir, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.follow {
		fs, ok := store.(*filestore.Store)
		if !ok {
			return fmt.Errorf("--follow requires the file graph store, got %q", c.settings.Config.Graph.Store)
		}

		fmt.Fprintf(c.out, "%s\n", cliui.DimStyle.Render("Watching "+fs.Path()))
		err := fs.Watch(ctx, func(g *graph.Graph) {
			c.printGraph(g)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if c.raw {
		data, err := store.LoadRaw(ctx)
		if err != nil {
			return noSnapshotHint(err)
		}
		_, err = c.out.Write(data)
		return err
	}

	g, err := store.Load(ctx)
	if err != nil {
		return noSnapshotHint(err)
	}
	c.printGraph(g)
	return nil
}

func (c *showCommander) printGraph(g *graph.Graph) {
	fmt.Fprintf(c.out, "\n%s %s  %s %d  %s %d  %s %d\n\n",
		cliui.HeaderStyle.Render("Graph"),
		cliui.KeyStyle.Render(g.Metric.String()),
		cliui.DimStyle.Render("k"), g.K,
		cliui.DimStyle.Render("dimensions"), g.Dimensions,
		cliui.DimStyle.Render("nodes"), len(g.Nodes),
	)

	zones := graph.Components(g)
	stats := zones.Stats()
	fmt.Fprintf(c.out, "%s %d  %s %d  %s %d  %s %.1f  %s %.3f\n\n",
		cliui.HeaderStyle.Render("Zones"), stats.Count,
		cliui.DimStyle.Render("largest"), stats.Largest,
		cliui.DimStyle.Render("smallest"), stats.Smallest,
		cliui.DimStyle.Render("average"), stats.Average,
		cliui.DimStyle.Render("connectivity ratio"), stats.ConnectivityRatio,
	)

	for _, n := range g.Nodes {
		fmt.Fprintf(c.out, "  %s  %s\n",
			cliui.TitleStyle.Render(n.ID),
			cliui.DimStyle.Render(fmt.Sprintf("zone %d", zones.Of(n.ID))),
		)
		for _, e := range n.Neighbors {
			fmt.Fprintf(c.out, "      %s  %s\n", cliui.FormatDistance(e.Distance), e.ID)
		}
	}
	fmt.Fprintln(c.out)
}

func noSnapshotHint(err error) error {
	if errors.Is(err, graph.ErrNoSnapshot) {
		return fmt.Errorf("%w: run \"lightwiki graph build\" first", err)
	}
	return err
}
