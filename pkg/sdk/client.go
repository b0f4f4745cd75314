package entidex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/entidex/internal/db"
	dbRedis "github.com/kailas-cloud/entidex/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/entidex/internal/db/sqlite"
	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	"github.com/kailas-cloud/entidex/internal/query"
	entityrepo "github.com/kailas-cloud/entidex/internal/repository/entity"
	indexrepo "github.com/kailas-cloud/entidex/internal/repository/index"
	batchuc "github.com/kailas-cloud/entidex/internal/usecase/batch"
	entityuc "github.com/kailas-cloud/entidex/internal/usecase/entity"
	healthuc "github.com/kailas-cloud/entidex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/entidex/internal/usecase/search"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = dbSQLite.MemoryPath

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type entityUseCase interface {
	Create(ctx context.Context, kind string, e *jsondoc.Object) (*jsondoc.Object, error)
	BulkCreate(ctx context.Context, kind string, items []*jsondoc.Object) (dombatch.Summary, error)
	List(ctx context.Context, kind, token string, pageSize int) (result.Page[*jsondoc.Object], error)
	Export(ctx context.Context, kind string, fn func(*jsondoc.Object) error) (int, error)
	Init(ctx context.Context) ([]entityuc.IndexStatus, error)
}

type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (result.Page[*jsondoc.Object], error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the entidex SDK entry point.
type Client struct {
	store       db.Store
	entitySvc   entityUseCase
	searchSvc   searchUseCase
	healthSvc   healthUseCase
	maxPageSize int
	obs         *observer
}

// New creates a Client, connects to the database and waits until it is
// ready. The provided context bounds the readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}
	applyDefaults(cfg)

	for _, k := range cfg.kinds {
		s, err := kindSchema(k.name, k.fields, cfg.fieldPrefix)
		if err != nil {
			return nil, err
		}
		cfg.schemas = append(cfg.schemas, s)
	}
	if len(cfg.schemas) == 0 {
		return nil, errors.New("entidex: at least one entity kind is required (use WithKind or WithConfigFile)")
	}
	registry, err := schema.NewRegistry(cfg.schemas...)
	if err != nil {
		return nil, fmt.Errorf("entidex: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("entidex: database not ready: %w", err)
	}

	return wireClient(store, registry, cfg, obs), nil
}

func applyDefaults(cfg *clientConfig) {
	if cfg.driver == "" {
		cfg.driver = "sqlite"
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = "entidex:"
	}
	if cfg.entityContainer == "" {
		cfg.entityContainer = "projects"
	}
	if cfg.indexContainer == "" {
		cfg.indexContainer = "index"
	}
	if cfg.fieldPrefix == "" {
		cfg.fieldPrefix = query.DefaultPrefix
	}
	if cfg.maxPageSize <= 0 {
		cfg.maxPageSize = 1000
	}
	if cfg.compileCacheSize == 0 {
		cfg.compileCacheSize = 512
	}
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "sqlite":
		if cfg.path == "" {
			return nil, errors.New("entidex: sqlite path required (use WithSQLite)")
		}
		s, err := dbSQLite.NewStore(ctx, dbSQLite.Config{Path: cfg.path})
		if err != nil {
			return nil, fmt.Errorf("entidex: create sqlite store: %w", err)
		}
		return s, nil
	case "redis":
		if len(cfg.addrs) == 0 {
			return nil, errors.New("entidex: redis address required (use WithRedis)")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.addrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("entidex: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("entidex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, registry *schema.Registry, cfg *clientConfig, obs *observer) *Client {
	entities := entityrepo.New(store, cfg.entityContainer)
	index := indexrepo.New(store, cfg.indexContainer, cfg.fieldPrefix)

	bulkSvc := batchuc.New(entities, index, registry).WithObserver(obs.engine)
	if cfg.maxBatchSize > 0 {
		bulkSvc = bulkSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}
	if cfg.concurrency > 0 {
		bulkSvc = bulkSvc.WithConcurrency(cfg.concurrency)
	}
	searchSvc := searchuc.New(index, entities, registry, query.NewCompiler(store.Dialect(), cfg.fieldPrefix)).
		WithCacheSize(cfg.compileCacheSize).
		WithDefaultPageSize(cfg.defaultPageSize).
		WithObserver(obs.engine)
	entitySvc := entityuc.New(entities, bulkSvc, registry, entities, index).
		WithPagination(cfg.defaultPageSize, cfg.maxPageSize)

	names := make([]string, 0, 2*len(registry.Kinds()))
	for _, kind := range registry.Kinds() {
		names = append(names,
			db.IndexName(cfg.entityContainer, kind),
			db.IndexName(cfg.indexContainer, kind))
	}

	return &Client{
		store:       store,
		entitySvc:   entitySvc,
		searchSvc:   searchSvc,
		healthSvc:   healthuc.New(store).WithIndexes(store, names...),
		maxPageSize: cfg.maxPageSize,
		obs:         obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health reports whether the database answers and every index exists.
func (c *Client) Health(ctx context.Context) HealthReport {
	r := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthReport{Status: string(r.Status), Checks: checks, MissingIndexes: r.Missing}
}

// HealthReport is the outcome of Health.
type HealthReport struct {
	Status         string
	Checks         map[string]string
	MissingIndexes []string
}

// Init creates the listing and search indexes of every declared kind.
// Existing indexes are left alone.
func (c *Client) Init(ctx context.Context) (_ []IndexStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("init", start, err) }()

	sts, err := c.entitySvc.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	out := make([]IndexStatus, len(sts))
	for i, s := range sts {
		out[i] = IndexStatus{Kind: s.Kind, ListingCreated: s.ListingCreated, SearchCreated: s.SearchCreated}
	}
	return out, nil
}

// Entities returns the entity service for a kind.
func (c *Client) Entities(kind string) *EntityService {
	return &EntityService{kind: kind, svc: c.entitySvc, obs: c.obs}
}

// Search starts a search over a kind.
func (c *Client) Search(kind string) *SearchBuilder {
	return &SearchBuilder{kind: kind, svc: c.searchSvc, maxPageSize: c.maxPageSize, obs: c.obs}
}

// SearchJSON runs a search given in the HTTP request format.
func (c *Client) SearchJSON(ctx context.Context, body []byte) (_ Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := request.Decode(body, c.maxPageSize)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return runSearch(ctx, c.searchSvc, req)
}

func runSearch(ctx context.Context, svc searchUseCase, req request.Request) (Page, error) {
	p, err := svc.Search(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return toPage(p)
}
