package entity

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/domain"
	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
)

// ExportPageSize is the page size Export walks the store with.
const ExportPageSize = 100

// Service handles entity creation, listing, export and storage setup.
type Service struct {
	repo            Repository
	bulk            BulkWriter
	schemas         SchemaReader
	listing         ListingIndexer
	search          SearchIndexer
	defaultPageSize int
	maxPageSize     int
}

// New creates an entity service.
func New(repo Repository, bulk BulkWriter, schemas SchemaReader, listing ListingIndexer, search SearchIndexer) *Service {
	return &Service{
		repo:    repo,
		bulk:    bulk,
		schemas: schemas,
		listing: listing,
		search:  search,
	}
}

// WithPagination configures page size limits. A zero default keeps an
// absent page size meaning "all"; a zero max leaves page sizes unbounded.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize >= 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize >= 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Create stores one entity through the bulk path and returns it with its
// assigned id. An index write failure does not fail the create.
func (s *Service) Create(ctx context.Context, kind string, e *jsondoc.Object) (*jsondoc.Object, error) {
	sum, err := s.bulk.Create(ctx, kind, []*jsondoc.Object{e})
	if err != nil {
		return nil, err
	}
	if len(sum.Results) != 1 {
		return nil, fmt.Errorf("bulk create returned %d results for one entity", len(sum.Results))
	}
	r := sum.Results[0]
	if err := r.EntityErr(); err != nil {
		return nil, err
	}
	return r.Entity(), nil
}

// BulkCreate stores items. Per-item failures are reported in the summary.
func (s *Service) BulkCreate(ctx context.Context, kind string, items []*jsondoc.Object) (dombatch.Summary, error) {
	if len(items) == 0 {
		return dombatch.Summary{}, fmt.Errorf("%w: no entities", domain.ErrInvalidRequest)
	}
	return s.bulk.Create(ctx, kind, items)
}

// List returns one page of kind entities ordered by id. pageSize 0 means
// the configured default.
func (s *Service) List(
	ctx context.Context, kind, token string, pageSize int,
) (result.Page[*jsondoc.Object], error) {
	if _, err := s.schemas.Get(kind); err != nil {
		return result.Page[*jsondoc.Object]{}, err
	}
	switch {
	case pageSize < 0:
		return result.Page[*jsondoc.Object]{}, fmt.Errorf("%w: pageSize must be positive", domain.ErrInvalidRequest)
	case pageSize == 0:
		pageSize = s.defaultPageSize
	case s.maxPageSize > 0 && pageSize > s.maxPageSize:
		return result.Page[*jsondoc.Object]{}, fmt.Errorf("%w: pageSize exceeds maximum of %d",
			domain.ErrInvalidRequest, s.maxPageSize)
	}
	page, err := s.repo.List(ctx, kind, token, pageSize)
	if err != nil {
		return result.Page[*jsondoc.Object]{}, fmt.Errorf("list entities: %w", err)
	}
	return page, nil
}

// Export walks every kind entity in id order, ExportPageSize at a time,
// and hands each to fn. It stops at the first error and returns the number
// of entities handed over.
func (s *Service) Export(ctx context.Context, kind string, fn func(*jsondoc.Object) error) (int, error) {
	if _, err := s.schemas.Get(kind); err != nil {
		return 0, err
	}
	n := 0
	token := ""
	for {
		page, err := s.repo.List(ctx, kind, token, ExportPageSize)
		if err != nil {
			return n, fmt.Errorf("export page %d: %w", n/ExportPageSize, err)
		}
		for _, e := range page.Items() {
			if err := fn(e); err != nil {
				return n, err
			}
			n++
		}
		token = page.ContinuationToken()
		if token == "" {
			return n, nil
		}
	}
}

// IndexStatus reports what Init did for one kind.
type IndexStatus struct {
	Kind string
	// ListingCreated is false when the entity listing index existed.
	ListingCreated bool
	// SearchCreated is false when the index document index existed.
	SearchCreated bool
}

// Init ensures the storage indexes of every configured kind. It is safe
// to run repeatedly.
func (s *Service) Init(ctx context.Context) ([]IndexStatus, error) {
	kinds := s.schemas.Kinds()
	out := make([]IndexStatus, 0, len(kinds))
	for _, kind := range kinds {
		sch, err := s.schemas.Get(kind)
		if err != nil {
			return out, err
		}
		st := IndexStatus{Kind: kind}
		if st.ListingCreated, err = s.listing.EnsureIndex(ctx, kind); err != nil {
			return out, fmt.Errorf("init %s listing index: %w", kind, err)
		}
		if st.SearchCreated, err = s.search.EnsureIndex(ctx, sch); err != nil {
			return out, fmt.Errorf("init %s search index: %w", kind, err)
		}
		out = append(out, st)
	}
	return out, nil
}
