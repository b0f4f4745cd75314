package search

import (
	"context"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	"github.com/kailas-cloud/entidex/internal/query"
)

// IndexReader runs compiled queries over index documents.
type IndexReader interface {
	// Refs returns one page of entity ids in index order and the token of
	// the next page.
	Refs(ctx context.Context, kind string, c query.Compiled, token string, pageSize int) ([]string, string, error)
	Count(ctx context.Context, kind string, c query.Compiled) (int64, error)
	Facet(ctx context.Context, kind string, c query.Compiled, f query.FacetRef) (result.Facet, error)
}

// EntityReader loads entities by id.
type EntityReader interface {
	BatchGet(ctx context.Context, kind string, ids []string) ([]*jsondoc.Object, error)
}

// SchemaReader resolves entity kinds.
type SchemaReader interface {
	Get(kind string) (schema.Schema, error)
}

// Compiler renders requests into store queries.
type Compiler interface {
	Compile(req request.Request, s schema.Schema) (query.Compiled, error)
}
