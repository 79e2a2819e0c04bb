// Package neo4j persists graph snapshots in a Neo4j database as
// (:Page)-[:NEIGHBOR {distance, rank}]->(:Page) relationships plus a single
// :KNNGraph metadata node.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
)

const (
	clearQuery = `
MATCH (n) WHERE n:Page OR n:KNNGraph
DETACH DELETE n`

	pagesQuery = `
UNWIND $pages AS page
CREATE (p:Page {id: page.id})
SET p.x = page.x, p.y = page.y, p.z = page.z`

	edgesQuery = `
UNWIND $edges AS edge
MATCH (a:Page {id: edge.source}), (b:Page {id: edge.target})
CREATE (a)-[:NEIGHBOR {distance: edge.distance, rank: edge.rank}]->(b)`

	metaQuery = `
CREATE (:KNNGraph {metric: $metric, k: $k, dimensions: $dimensions})`

	loadMetaQuery = `
MATCH (g:KNNGraph)
RETURN g.metric AS metric, g.k AS k, g.dimensions AS dimensions`

	loadPagesQuery = `
MATCH (p:Page)
OPTIONAL MATCH (p)-[r:NEIGHBOR]->(q:Page)
WITH p, r, q ORDER BY r.rank
RETURN p.id AS id, p.x AS x, p.y AS y, p.z AS z,
       collect(CASE WHEN q IS NULL THEN NULL ELSE {id: q.id, distance: r.distance} END) AS neighbors
ORDER BY id`
)

// Config holds the connection settings.
type Config struct {
	URI      string
	Username string
	Password string

	// Database selects a database on multi-database servers. Empty uses the
	// server default.
	Database string
}

// Store keeps the graph snapshot in Neo4j. Save runs in one write transaction,
// so readers see either the previous or the new snapshot.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("neo4j uri is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: neo4j connectivity: %w", vector.ErrStorage, err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		logger:   logger,
	}, nil
}

// Save replaces the stored graph with g.
func (s *Store) Save(ctx context.Context, g *graph.Graph) error {
	params := toParams(g)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, clearQuery, nil); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, pagesQuery, map[string]any{"pages": params.pages}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, edgesQuery, map[string]any{"edges": params.edges}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, metaQuery, params.meta)
		return nil, err
	})
	if err != nil {
		return wrapErr(ctx, "storing graph", err)
	}

	s.logger.Debug("saved graph snapshot",
		"nodes", len(params.pages),
		"edges", len(params.edges),
	)
	return nil
}

// Load reads the stored graph back.
func (s *Store) Load(ctx context.Context) (*graph.Graph, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		metaRes, err := tx.Run(ctx, loadMetaQuery, nil)
		if err != nil {
			return nil, err
		}
		if !metaRes.Next(ctx) {
			if err := metaRes.Err(); err != nil {
				return nil, err
			}
			return nil, graph.ErrNoSnapshot
		}
		meta := metaRes.Record().AsMap()

		pagesRes, err := tx.Run(ctx, loadPagesQuery, nil)
		if err != nil {
			return nil, err
		}
		var rows []map[string]any
		for pagesRes.Next(ctx) {
			rows = append(rows, pagesRes.Record().AsMap())
		}
		if err := pagesRes.Err(); err != nil {
			return nil, err
		}

		return fromRows(meta, rows)
	})
	if err != nil {
		if errors.Is(err, graph.ErrNoSnapshot) || errors.Is(err, vector.ErrDecode) {
			return nil, err
		}
		return nil, wrapErr(ctx, "loading graph", err)
	}

	g, _ := result.(*graph.Graph)
	return g, nil
}

// LoadRaw returns the canonical encoding of the stored graph.
func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	g, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Encode(g)
}

// Close closes the driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

type saveParams struct {
	pages []map[string]any
	edges []map[string]any
	meta  map[string]any
}

func toParams(g *graph.Graph) saveParams {
	p := saveParams{
		pages: make([]map[string]any, 0, len(g.Nodes)),
		edges: []map[string]any{},
		meta: map[string]any{
			"metric":     g.Metric.String(),
			"k":          int64(g.K),
			"dimensions": int64(g.Dimensions),
		},
	}

	for _, n := range g.Nodes {
		page := map[string]any{"id": n.ID, "x": nil, "y": nil, "z": nil}
		if n.Position != nil {
			page["x"], page["y"], page["z"] = n.Position.X, n.Position.Y, n.Position.Z
		}
		p.pages = append(p.pages, page)
	}

	for _, e := range g.Edges() {
		p.edges = append(p.edges, map[string]any{
			"source":   e.Source,
			"target":   e.Target,
			"distance": e.Distance,
			"rank":     int64(e.Rank),
		})
	}
	return p
}

func fromRows(meta map[string]any, rows []map[string]any) (*graph.Graph, error) {
	metricName, _ := meta["metric"].(string)
	metric, err := distance.ParseMetric(metricName)
	if err != nil || metricName == "" {
		return nil, fmt.Errorf("%w: neo4j graph: bad metric %q", vector.ErrDecode, metricName)
	}
	k, ok := meta["k"].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: neo4j graph: missing k", vector.ErrDecode)
	}
	dims, ok := meta["dimensions"].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: neo4j graph: missing dimensions", vector.ErrDecode)
	}

	g := &graph.Graph{
		Metric:     metric,
		K:          int(k),
		Dimensions: int(dims),
		Nodes:      make([]graph.Node, 0, len(rows)),
	}

	for _, row := range rows {
		id, _ := row["id"].(string)
		node := graph.Node{ID: id, Neighbors: []graph.Edge{}}

		x, xok := row["x"].(float64)
		y, yok := row["y"].(float64)
		z, zok := row["z"].(float64)
		if xok && yok && zok {
			node.Position = &graph.Position{X: x, Y: y, Z: z}
		}

		neighbors, _ := row["neighbors"].([]any)
		for _, raw := range neighbors {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: neo4j graph: malformed neighbor of %q", vector.ErrDecode, id)
			}
			nid, _ := m["id"].(string)
			dist, ok := m["distance"].(float64)
			if !ok {
				return nil, fmt.Errorf("%w: neo4j graph: missing distance on %q -> %q", vector.ErrDecode, id, nid)
			}
			node.Neighbors = append(node.Neighbors, graph.Edge{ID: nid, Distance: dist})
		}

		g.Nodes = append(g.Nodes, node)
	}

	if err := graph.Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

func wrapErr(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%w: %s: %w", vector.ErrStorage, op, err)
}
