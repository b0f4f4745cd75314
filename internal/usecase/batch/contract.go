package batch

import (
	"context"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
)

// EntityWriter stores entities.
type EntityWriter interface {
	Create(ctx context.Context, kind string, e *jsondoc.Object) error
}

// IndexWriter stores index documents.
type IndexWriter interface {
	Create(ctx context.Context, kind string, doc *jsondoc.Object) error
}

// SchemaReader resolves entity kinds.
type SchemaReader interface {
	Get(kind string) (schema.Schema, error)
}
