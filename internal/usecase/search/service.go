package search

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	"github.com/kailas-cloud/entidex/internal/observe"
	"github.com/kailas-cloud/entidex/internal/query"
)

// DefaultCacheSize is the number of compiled queries kept by default.
const DefaultCacheSize = 512

// Service is the two-phase search executor. Phase 1 pages through the
// index for entity ids; phase 2 loads the entities in one batch read and
// restores the index order.
type Service struct {
	index    IndexReader
	entities EntityReader
	schemas  SchemaReader
	compiler Compiler
	cache    *lru.Cache[string, query.Compiled]
	observer observe.Observer

	defaultPageSize int
}

// New creates a search executor with a DefaultCacheSize compile cache.
func New(index IndexReader, entities EntityReader, schemas SchemaReader, compiler Compiler) *Service {
	s := &Service{
		index:    index,
		entities: entities,
		schemas:  schemas,
		compiler: compiler,
		observer: observe.Nop{},
	}
	return s.WithCacheSize(DefaultCacheSize)
}

// WithCacheSize resizes the compile cache; size <= 0 disables it.
func (s *Service) WithCacheSize(size int) *Service {
	if size <= 0 {
		s.cache = nil
		return s
	}
	c, err := lru.New[string, query.Compiled](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	s.cache = c
	return s
}

// WithDefaultPageSize sets the page size used when a request sets none.
// Zero keeps "no page size" meaning every match.
func (s *Service) WithDefaultPageSize(n int) *Service {
	if n >= 0 {
		s.defaultPageSize = n
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

// Search executes req. Count and facets, when requested, run concurrently
// with the paged query; any failure fails the whole search.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Page[*jsondoc.Object], error) {
	start := time.Now()
	kind := req.EntityType()

	page, dropped, err := s.search(ctx, req)
	s.observer.SearchDone(ctx, observe.SearchEvent{
		Kind:     kind,
		Items:    page.Count(),
		Empty:    err == nil && page.Count() == 0 && dropped == 0,
		Dropped:  dropped,
		HasMore:  page.HasMore(),
		Duration: time.Since(start),
		Err:      err,
	})
	return page, err
}

func (s *Service) search(ctx context.Context, req request.Request) (result.Page[*jsondoc.Object], int, error) {
	kind := req.EntityType()
	sch, err := s.schemas.Get(kind)
	if err != nil {
		return result.Page[*jsondoc.Object]{}, 0, fmt.Errorf("get schema: %w", err)
	}
	compiled, err := s.compile(ctx, req, sch)
	if err != nil {
		return result.Page[*jsondoc.Object]{}, 0, err
	}

	var (
		page    result.Page[*jsondoc.Object]
		dropped int
		total   int64
		facets  = make([]result.Facet, len(compiled.Facets))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, dropped, err = s.fetch(gctx, req, compiled)
		return err
	})
	if req.Count() {
		g.Go(func() error {
			var err error
			total, err = timed(gctx, s, kind, observe.PhaseCount, func() (int64, int, error) {
				n, err := s.index.Count(gctx, kind, compiled)
				return n, 1, err
			})
			return err
		})
	}
	for i, f := range compiled.Facets {
		g.Go(func() error {
			var err error
			facets[i], err = timed(gctx, s, kind, observe.PhaseFacet, func() (result.Facet, int, error) {
				fc, err := s.index.Facet(gctx, kind, compiled, f)
				return fc, len(fc.Buckets()), err
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return result.Page[*jsondoc.Object]{}, 0, err
	}

	if req.Count() {
		page = page.WithTotalCount(total)
	}
	if len(facets) > 0 {
		page = page.WithFacets(facets)
	}
	return page, dropped, nil
}

// compile returns the memoized query for req, compiling on a miss.
func (s *Service) compile(ctx context.Context, req request.Request, sch schema.Schema) (query.Compiled, error) {
	key, err := req.CompileKey()
	if err != nil {
		return query.Compiled{}, fmt.Errorf("compile key: %w", err)
	}
	if s.cache != nil {
		if c, ok := s.cache.Get(key); ok {
			s.observer.CompileCache(ctx, req.EntityType(), true)
			return c, nil
		}
		s.observer.CompileCache(ctx, req.EntityType(), false)
	}

	c, err := timed(ctx, s, req.EntityType(), observe.PhaseCompile, func() (query.Compiled, int, error) {
		c, err := s.compiler.Compile(req, sch)
		return c, len(c.Params), err
	})
	if err != nil {
		return query.Compiled{}, fmt.Errorf("compile: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(key, c)
	}
	return c, nil
}

// fetch runs both phases and returns the page and the number of index hits
// dropped for lack of an entity.
func (s *Service) fetch(
	ctx context.Context, req request.Request, c query.Compiled,
) (result.Page[*jsondoc.Object], int, error) {
	kind := req.EntityType()

	type refPage struct {
		ids   []string
		token string
	}
	pageSize := req.PageSize()
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	refs, err := timed(ctx, s, kind, observe.PhaseQuery, func() (refPage, int, error) {
		ids, token, err := s.index.Refs(ctx, kind, c, req.ContinuationToken(), pageSize)
		return refPage{ids: ids, token: token}, len(ids), err
	})
	if err != nil {
		return result.Page[*jsondoc.Object]{}, 0, err
	}
	if len(refs.ids) == 0 {
		return result.Empty[*jsondoc.Object](), 0, nil
	}

	found, err := timed(ctx, s, kind, observe.PhaseFetch, func() ([]*jsondoc.Object, int, error) {
		es, err := s.entities.BatchGet(ctx, kind, refs.ids)
		return es, len(es), err
	})
	if err != nil {
		return result.Page[*jsondoc.Object]{}, 0, err
	}

	items := Reorder(refs.ids, found)
	if fields := req.Fields(); len(fields) > 0 {
		keep := append([]string{"id"}, fields...)
		for i, e := range items {
			items[i] = e.Project(keep)
		}
	}
	return result.NewPage(items, refs.token), len(refs.ids) - len(items), nil
}

// Reorder arranges entities in the order of ids. Ids without an entity are
// dropped, and so are entities no id asked for.
func Reorder(ids []string, entities []*jsondoc.Object) []*jsondoc.Object {
	byID := make(map[string]*jsondoc.Object, len(entities))
	for _, e := range entities {
		v, ok := e.Get("id")
		if !ok {
			continue
		}
		if id, ok := v.AsString(); ok {
			byID[id] = e
		}
	}
	out := make([]*jsondoc.Object, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// timed runs fn as one observed search phase.
func timed[T any](
	ctx context.Context, s *Service, kind string, phase observe.Phase, fn func() (T, int, error),
) (T, error) {
	start := time.Now()
	v, n, err := fn()
	s.observer.SearchPhase(ctx, observe.PhaseEvent{
		Kind:     kind,
		Phase:    phase,
		Duration: time.Since(start),
		Items:    n,
		Err:      err,
	})
	return v, err
}
