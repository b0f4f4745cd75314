package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/entidex/internal/domain"
	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/observe"
)

// Defaults for the bulk writer.
const (
	MaxBatchSize       = 1000
	DefaultConcurrency = 16
)

// Service is the bulk dual-writer: every entity is written together with
// its index document. The two writes are independent; a failed index write
// leaves the entity stored but unsearchable.
type Service struct {
	entities     EntityWriter
	index        IndexWriter
	schemas      SchemaReader
	observer     observe.Observer
	newID        func() string
	maxBatchSize int
	concurrency  int
}

// New creates a bulk writer.
func New(entities EntityWriter, index IndexWriter, schemas SchemaReader) *Service {
	return &Service{
		entities:     entities,
		index:        index,
		schemas:      schemas,
		observer:     observe.Nop{},
		newID:        uuid.NewString,
		maxBatchSize: MaxBatchSize,
		concurrency:  DefaultConcurrency,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithConcurrency bounds the number of write pairs in flight.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithObserver sets the event sink.
func (s *Service) WithObserver(o observe.Observer) *Service {
	if o != nil {
		s.observer = o
	}
	return s
}

// WithIDGenerator replaces the uuid generator.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	if gen != nil {
		s.newID = gen
	}
	return s
}

// pair is one prepared entity with its index document.
type pair struct {
	id      string
	entity  *jsondoc.Object
	indexID string
	index   *jsondoc.Object
	// buildErr is the transform failure; the entity is still written.
	buildErr error
}

// Create writes items as kind entities. Summary.Created counts successful
// entity writes; index outcomes are reported per item only. Cancelling ctx
// stops issuing writes and returns the context error with the results so
// far.
func (s *Service) Create(ctx context.Context, kind string, items []*jsondoc.Object) (dombatch.Summary, error) {
	start := time.Now()
	if len(items) > s.maxBatchSize {
		return dombatch.Summary{}, fmt.Errorf("%w: batch size %d exceeds %d",
			domain.ErrInvalidRequest, len(items), s.maxBatchSize)
	}
	sch, err := s.schemas.Get(kind)
	if err != nil {
		return dombatch.Summary{}, fmt.Errorf("get schema: %w", err)
	}

	results := make([]dombatch.Result, len(items))
	pairs := make([]*pair, len(items))
	for i, item := range items {
		p, err := s.prepare(item)
		if err != nil {
			results[i] = dombatch.NewRejected(p.id, err)
			continue
		}
		p.index, p.buildErr = sch.BuildIndex(p.entity, p.indexID)
		pairs[i] = p
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, p := range pairs {
		if p == nil {
			continue
		}
		if ctx.Err() != nil {
			results[i] = dombatch.NewSkipped(p.id, ctx.Err())
			continue
		}
		g.Go(func() error {
			// The slot may have been granted after cancellation.
			if err := ctx.Err(); err != nil {
				results[i] = dombatch.NewSkipped(p.id, err)
				return nil
			}
			results[i] = s.write(ctx, kind, p)
			return nil
		})
	}
	_ = g.Wait()

	summary := dombatch.Summarize(results)
	err = ctx.Err()
	if err != nil {
		err = fmt.Errorf("bulk create %s: %w", kind, err)
	}
	s.observer.BulkDone(ctx, observe.BulkEvent{
		Kind:     kind,
		Total:    len(items),
		Created:  summary.Created,
		Duration: time.Since(start),
		Err:      err,
	})
	return summary, err
}

// prepare clones item and assigns its id and the index document id.
func (s *Service) prepare(item *jsondoc.Object) (*pair, error) {
	if item == nil {
		return &pair{}, fmt.Errorf("%w: entity is null", domain.ErrInvalidRequest)
	}
	e := item.Clone()
	v, ok := e.Get("id")
	if !ok || v.IsNull() {
		e.Set("id", jsondoc.String(s.newID()))
		v, _ = e.Get("id")
	}
	id, ok := v.AsString()
	if !ok || id == "" {
		return &pair{id: v.Text()}, fmt.Errorf("%w: entity id must be a non-empty string", domain.ErrInvalidRequest)
	}
	return &pair{id: id, entity: e, indexID: s.newID()}, nil
}

// write issues the entity and index writes of p concurrently.
func (s *Service) write(ctx context.Context, kind string, p *pair) dombatch.Result {
	var entityErr, indexErr error
	var g errgroup.Group
	g.Go(func() error {
		entityErr = s.entities.Create(ctx, kind, p.entity)
		return nil
	})
	if p.buildErr != nil {
		indexErr = fmt.Errorf("build index document: %w", p.buildErr)
	} else {
		g.Go(func() error {
			indexErr = s.index.Create(ctx, kind, p.index)
			return nil
		})
	}
	_ = g.Wait()

	s.observer.BulkItem(ctx, observe.BulkItemEvent{
		Kind:      kind,
		EntityID:  p.id,
		IndexID:   p.indexID,
		EntityErr: entityErr,
		IndexErr:  indexErr,
	})
	return dombatch.NewResult(p.entity, p.id, p.indexID, entityErr, indexErr)
}
