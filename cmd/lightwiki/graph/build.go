package graphcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lightwiki/cmd/lightwiki/backend"
	"github.com/papercomputeco/lightwiki/pkg/cliui"
	"github.com/papercomputeco/lightwiki/pkg/config"
	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

type buildCommander struct {
	timeout time.Duration

	settings *backend.Settings
	logger   *slog.Logger
	out      io.Writer
}

const buildLongDesc string = `Build the page similarity graph.

Loads every stored page embedding, links each page to its k nearest
other pages and saves the result to the configured graph store. With
--k 0 the neighbor count is picked from the corpus size. --layout also
computes 3D node positions for visualization.

Examples:
  lightwiki graph build
  lightwiki graph build --k 8 --layout
  lightwiki graph build --metric euclidean --workers 4
  lightwiki graph build --graph-store s3 --timeout 5m`

const buildShortDesc string = "Build and save the page similarity graph"

var buildFlags = append([]string{
	config.FlagGraphK,
	config.FlagMetric,
	config.FlagWorkers,
	config.FlagGraphLayout,
	config.FlagGraphStore,
	config.FlagGraphPath,
}, backend.ConnectionFlags...)

func newBuildCmd() *cobra.Command {
	cmder := &buildCommander{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: buildShortDesc,
		Long:  buildLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.settings, err = backend.LoadSettings(cmd, buildFlags...)
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

	config.AddFlags(cmd, config.Flags, buildFlags...)
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 0, "Abort the build after this long (0 for no limit)")
	backend.AddLogFileFlag(cmd)

	return cmd
}

func (c *buildCommander) run(ctx context.Context) error {
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

	store, err := backend.OpenGraphStore(ctx, cfg, c.settings.ConfigDir, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var snap *vector.Snapshot
	if err := cliui.Step(c.out, "Loading embeddings", func() error {
		s, err := b.LoadStore(ctx)
		if err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	}); err != nil {
		return err
	}

	builder := graph.NewBuilder(
		graph.WithK(int(cfg.Graph.K)),
		graph.WithMetric(metric),
		graph.WithWorkers(int(cfg.Index.Workers)),
		graph.WithLayout(cfg.Graph.Layout),
		graph.WithLogger(c.logger),
	)

	start := time.Now()
	var g *graph.Graph
	if err := cliui.Step(c.out, fmt.Sprintf("Building graph over %d pages", snap.Len()), func() error {
		g, err = builder.Build(ctx, snap)
		return err
	}); err != nil {
		return err
	}

	if err := cliui.Step(c.out, "Saving snapshot", func() error {
		return store.Save(ctx, g)
	}); err != nil {
		return err
	}

	elapsed := time.Since(start)
	edges := len(g.Edges())
	zones := graph.Components(g).Stats()
	c.logger.Info("graph built",
		"nodes", len(g.Nodes),
		"edges", edges,
		"zones", zones.Count,
		"largest_zone", zones.Largest,
		"k", g.K,
		"metric", g.Metric.String(),
		"elapsed", elapsed,
	)

	fmt.Fprintf(c.out, "\n  %s %s nodes, %s edges, %s zones, k=%d, %s in %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(fmt.Sprint(len(g.Nodes))),
		cliui.ValueStyle.Render(fmt.Sprint(edges)),
		cliui.ValueStyle.Render(fmt.Sprint(zones.Count)),
		g.K,
		g.Metric,
		cliui.FormatDuration(elapsed),
	)

	return nil
}
