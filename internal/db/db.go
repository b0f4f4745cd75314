package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/entidex/internal/query"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	DocumentStore
	Querier
	IndexManager
	// Dialect renders compiled queries for this backend.
	Dialect() query.Dialect
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Item is one stored JSON document.
type Item struct {
	ID           string
	Kind         string
	PartitionKey string
	Body         []byte
}

// DocumentStore provides point writes and unordered multi-reads.
type DocumentStore interface {
	// Create stores item in container. An existing id yields ErrKeyExists.
	Create(ctx context.Context, container string, item Item) error
	// BatchGet returns the bodies of the items with the given ids whose kind
	// matches. Order is unspecified and missing ids are skipped.
	BatchGet(ctx context.Context, container string, ids []string, kind string) ([][]byte, error)
}

// PageQuery selects one page of documents matching a compiled predicate.
type PageQuery struct {
	Container string
	// Kind restricts results to items stored with this kind; empty matches all.
	Kind  string
	Query query.Compiled
	// Select projects the listed top-level body fields; empty returns whole bodies.
	Select []string
	// Token resumes a previous page.
	Token string
	// MaxItems bounds the page; 0 returns every match.
	MaxItems int
}

// Page is one page of raw JSON bodies.
type Page struct {
	Items [][]byte
	// ContinuationToken is empty on the last page.
	ContinuationToken string
}

// CountQuery counts every document matching a predicate.
type CountQuery struct {
	Container string
	Kind      string
	Query     query.Compiled
}

// FacetQuery groups the documents matching a predicate by the value at Path.
type FacetQuery struct {
	Container string
	Kind      string
	Query     query.Compiled
	Path      string
}

// FacetBucket is one distinct value and the number of documents holding it.
type FacetBucket struct {
	Value string
	Count int64
}

// Querier runs compiled queries.
type Querier interface {
	QueryPage(ctx context.Context, q *PageQuery) (*Page, error)
	Count(ctx context.Context, q *CountQuery) (int64, error)
	Facets(ctx context.Context, q *FacetQuery) ([]FacetBucket, error)
}

// IndexManager provides secondary index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}
