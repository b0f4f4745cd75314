package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entidex/internal/logger"
)

// RouterConfig holds the cross-cutting pieces of the HTTP router.
type RouterConfig struct {
	// APIKeys enables bearer auth when non-empty.
	APIKeys []string
	// Metrics instruments every route. Optional.
	Metrics func(http.Handler) http.Handler
	// MetricsHandler serves /metrics. Optional.
	MetricsHandler http.Handler
}

// NewRouter mounts the server's routes behind the request middleware chain.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(JSONRecoverer(s.logger))
	r.Use(WideEvent(s.logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/init", s.Init)
		r.Route("/projects", s.entityRoutes)
		r.Route("/entities/{kind}", s.entityRoutes)
	})
	return r
}

func (s *Server) entityRoutes(r chi.Router) {
	r.Use(s.kindLogger)
	r.Get("/", s.ListEntities)
	r.Post("/", s.CreateEntity)
	r.Post("/bulk", s.BulkCreate)
	r.Get("/export", s.Export)
}

// kindLogger tags the request logger with the addressed entity kind.
func (s *Server) kindLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.With(r.Context(), zap.String("kind", s.kindFrom(r)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
