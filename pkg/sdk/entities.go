package entidex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
)

// EntityService manages the entities of one kind.
type EntityService struct {
	kind string
	svc  entityUseCase
	obs  *observer
}

// Create stores one entity and its index document and returns the stored
// entity. An entity without an "id" gets a generated one.
func (s *EntityService) Create(ctx context.Context, entity []byte) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("create", start, err) }()

	e, err := parseEntity(entity)
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	created, err := s.svc.Create(ctx, s.kind, e)
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	out, err := created.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return out, nil
}

// BulkCreate stores many entities. Each item reports its entity and index
// outcome separately. On cancellation the result still covers every item,
// with unwritten ones skipped.
func (s *EntityService) BulkCreate(ctx context.Context, entities []json.RawMessage) (_ BulkResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("bulk_create", start, err) }()

	items := make([]*jsondoc.Object, len(entities))
	for i, raw := range entities {
		e, perr := parseEntity(raw)
		if perr != nil {
			return BulkResult{}, fmt.Errorf("bulk create: item %d: %w", i, perr)
		}
		items[i] = e
	}
	sum, err := s.svc.BulkCreate(ctx, s.kind, items)
	if err != nil {
		return toBulkResult(sum), fmt.Errorf("bulk create: %w", err)
	}
	return toBulkResult(sum), nil
}

// List returns one page of entities in storage order. pageSize 0 uses the
// configured default.
func (s *EntityService) List(ctx context.Context, token string, pageSize int) (_ Page, err error) {
	start := time.Now()
	defer func() { s.obs.observe("list", start, err) }()

	p, err := s.svc.List(ctx, s.kind, token, pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("list entities: %w", err)
	}
	return toPage(p)
}

// Export calls fn with every entity of the kind, page by page, and returns
// how many it passed. An error from fn stops the export.
func (s *EntityService) Export(ctx context.Context, fn func(json.RawMessage) error) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("export", start, err) }()

	n, err := s.svc.Export(ctx, s.kind, func(e *jsondoc.Object) error {
		raw, err := e.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode entity: %w", err)
		}
		return fn(raw)
	})
	if err != nil {
		return n, fmt.Errorf("export: %w", err)
	}
	return n, nil
}
