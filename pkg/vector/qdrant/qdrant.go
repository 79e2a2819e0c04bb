// Package qdrant provides a Qdrant embedding backend over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

const (
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "lightwiki"

	// DefaultPageSize is the number of points fetched per scroll request.
	DefaultPageSize = 256

	// payloadDocID holds the document id. Qdrant point ids must be integers
	// or UUIDs, so the point id is derived from it.
	payloadDocID = "doc_id"
)

// pointNamespace seeds the UUIDv5 point ids derived from document ids.
var pointNamespace = uuid.MustParse("6f1c1a4e-58b5-4c8e-9d2a-3e0b8f7a1c55")

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Addr is the gRPC host:port, e.g. "localhost:6334".
	Addr string

	// Collection defaults to DefaultCollection.
	Collection string

	// Dimensions, when non-zero, creates the collection with cosine distance
	// if it does not exist yet.
	Dimensions uint

	// PageSize defaults to DefaultPageSize.
	PageSize uint32
}

// Driver implements vector.Source and vector.Sink on a Qdrant collection.
// Records returned by LoadAll are in vector.FormatRaw.
type Driver struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	pageSize    uint32
	logger      *slog.Logger
}

// New connects to Qdrant and, when c.Dimensions is set, ensures the
// collection exists.
func New(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Addr == "" {
		return nil, errors.New("qdrant address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}

	conn, err := grpc.NewClient(c.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant connect: %w", vector.ErrStorage, err)
	}

	d := &Driver{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  c.Collection,
		pageSize:    c.PageSize,
		logger:      logger,
	}

	if c.Dimensions > 0 {
		if err := d.ensureCollection(ctx, c.Dimensions); err != nil {
			conn.Close()
			return nil, err
		}
	}

	logger.Info("connected to qdrant", "addr", c.Addr, "collection", c.Collection)
	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dim uint) error {
	exists, err := d.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: d.collection,
	})
	if err != nil {
		return d.wrapErr(ctx, "checking collection", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = d.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return d.wrapErr(ctx, "creating collection", err)
	}

	d.logger.Info("created qdrant collection", "collection", d.collection, "dimensions", dim)
	return nil
}

// Upsert stores documents with their embeddings.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	_, err := d.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: d.collection,
		Points:         toPoints(docs),
	})
	if err != nil {
		return d.wrapErr(ctx, "upserting points", err)
	}

	d.logger.Debug("upserted points to qdrant", "count", len(docs))
	return nil
}

// LoadAll scrolls the whole collection and returns every embedding in
// vector.FormatRaw.
func (d *Driver) LoadAll(ctx context.Context) ([]vector.Record, error) {
	var (
		records []vector.Record
		offset  *pb.PointId
	)

	for {
		limit := d.pageSize
		resp, err := d.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: d.collection,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
			WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, d.wrapErr(ctx, "scrolling points", err)
		}

		page, err := fromPoints(resp.GetResult())
		if err != nil {
			return nil, err
		}
		records = append(records, page...)

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	d.logger.Debug("loaded embeddings from qdrant", "rows", len(records))
	return records, nil
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.conn.Close()
}

func (d *Driver) wrapErr(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%w: qdrant %s: %w", vector.ErrStorage, op, err)
}

// PointID returns the stable point id used for a document id.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func toPoints(docs []vector.Document) []*pb.PointStruct {
	points := make([]*pb.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(doc.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: doc.Embedding}}},
			Payload: map[string]*pb.Value{
				payloadDocID: {Kind: &pb.Value_StringValue{StringValue: doc.ID}},
			},
		}
	}
	return points
}

// fromPoints converts scrolled points into raw-format records. Points missing
// the document id payload or a dense vector fail with ErrDecode.
func fromPoints(points []*pb.RetrievedPoint) ([]vector.Record, error) {
	records := make([]vector.Record, 0, len(points))
	for _, pt := range points {
		id := pt.GetPayload()[payloadDocID].GetStringValue()
		if id == "" {
			return nil, fmt.Errorf("%w: qdrant point %s has no %s payload",
				vector.ErrDecode, pt.GetId().GetUuid(), payloadDocID)
		}

		out := pt.GetVectors().GetVector()
		data := out.GetDense().GetData()
		if len(data) == 0 {
			data = out.GetData()
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: qdrant point for document %s has no dense vector", vector.ErrDecode, id)
		}

		records = append(records, vector.Record{ID: id, Blob: vector.FormatRaw.Encode(data)})
	}
	return records, nil
}

var (
	_ vector.Source = (*Driver)(nil)
	_ vector.Sink   = (*Driver)(nil)
)
