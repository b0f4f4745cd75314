package entity

import (
	"context"

	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
)

// Repository lists stored entities.
type Repository interface {
	List(ctx context.Context, kind, token string, pageSize int) (result.Page[*jsondoc.Object], error)
}

// BulkWriter is the dual-writer all creates go through.
type BulkWriter interface {
	Create(ctx context.Context, kind string, items []*jsondoc.Object) (dombatch.Summary, error)
}

// SchemaReader resolves entity kinds.
type SchemaReader interface {
	Get(kind string) (schema.Schema, error)
	Kinds() []string
}

// ListingIndexer creates the per-kind listing index over entities.
type ListingIndexer interface {
	EnsureIndex(ctx context.Context, kind string) (bool, error)
}

// SearchIndexer creates the per-kind index over index documents.
type SearchIndexer interface {
	EnsureIndex(ctx context.Context, s schema.Schema) (bool, error)
}
