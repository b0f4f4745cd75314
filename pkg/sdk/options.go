package entidex

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entidex/internal/config"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "sqlite" or "redis"
	path      string
	addrs     []string
	password  string
	keyPrefix string

	schemas []schema.Schema
	kinds   []kindDecl

	entityContainer string
	indexContainer  string
	fieldPrefix     string

	defaultPageSize  int
	maxPageSize      int
	compileCacheSize int
	maxBatchSize     int
	concurrency      int

	logger     *zap.Logger
	metricsReg prometheus.Registerer

	// err is the first option that failed to apply.
	err error
}

func (c *clientConfig) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// WithSQLite stores everything in the SQLite database at path.
// Pass MemoryPath for a private in-memory database.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.path = path
	})
}

// WithRedis configures the client to connect to a Redis instance with the
// search module loaded.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the Redis key prefix. Default: "entidex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithKind declares an entity kind and its searchable fields. A kind with
// no fields accepts any field name in searches.
func WithKind(name string, fields ...Field) Option {
	return optionFunc(func(c *clientConfig) {
		c.kinds = append(c.kinds, kindDecl{name: name, fields: fields})
	})
}

// WithConfigFile loads the database, storage, search, bulk and entity
// settings from a server configuration file. Options given after it
// override what the file sets.
func WithConfigFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		cfg, err := config.LoadFile(path)
		if err != nil {
			c.fail(fmt.Errorf("entidex: %w", err))
			return
		}
		reg, err := cfg.Registry()
		if err != nil {
			c.fail(fmt.Errorf("entidex: %w", err))
			return
		}
		c.fromConfig(cfg, reg)
	})
}

// WithPagination sets the default and maximum page sizes. A default of 0
// returns every match.
func WithPagination(defaultPageSize, maxPageSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultPageSize = defaultPageSize
		c.maxPageSize = maxPageSize
	})
}

// WithMaxBatchSize sets the maximum number of items per bulk create.
// Default: 1000.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithConcurrency sets how many bulk items are written at once.
// Default: 16.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK and engine metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// fromConfig copies the settings of a loaded server configuration.
func (c *clientConfig) fromConfig(cfg config.Config, reg *schema.Registry) {
	c.driver = cfg.Database.Driver
	c.path = cfg.Database.Path
	c.addrs = cfg.Database.Addrs
	c.password = cfg.Database.Password
	c.keyPrefix = cfg.Storage.KeyPrefix
	c.entityContainer = cfg.Storage.EntityContainer
	c.indexContainer = cfg.Storage.IndexContainer
	c.fieldPrefix = cfg.Search.FieldPrefix
	c.defaultPageSize = cfg.Search.DefaultPageSize
	c.maxPageSize = cfg.Search.MaxPageSize
	c.compileCacheSize = cfg.Search.CompileCacheSize
	c.maxBatchSize = cfg.Bulk.MaxBatchSize
	c.concurrency = cfg.Bulk.Concurrency
	for _, kind := range reg.Kinds() {
		s, _ := reg.Get(kind)
		c.schemas = append(c.schemas, s)
	}
}
