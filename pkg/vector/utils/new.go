// Package vectorutils builds embedding backends from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/chroma"
	"github.com/papercomputeco/lightwiki/pkg/vector/qdrant"
	"github.com/papercomputeco/lightwiki/pkg/vector/sqlitevec"
)

// Driver is an embedding backend that can be both read and written.
type Driver interface {
	vector.Source
	vector.Sink
}

type NewVectorDriverOpts struct {
	ProviderType string
	TargetURL    string
	Collection   string
	Dimensions   uint
	Logger       *slog.Logger
}

// Providers lists the dedicated vector backends NewVectorDriver accepts.
var Providers = []string{"sqlite-vec", "chroma", "qdrant"}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (Driver, error) {
	switch o.ProviderType {
	case "sqlite-vec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		return qdrant.New(ctx, qdrant.Config{
			Addr:       o.TargetURL,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("%w: unsupported vector store provider: %s", vector.ErrInvalidArgument, o.ProviderType)
	}
}
