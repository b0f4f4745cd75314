package chi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
	"github.com/kailas-cloud/entidex/internal/logger"
	healthuc "github.com/kailas-cloud/entidex/internal/usecase/health"
)

// DefaultKind is the kind served under /api/projects.
const DefaultKind = "project"

const maxBodyBytes = 32 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the entity, search and admin endpoints.
type Server struct {
	entities      EntityService
	search        SearchService
	health        HealthService
	logger        *zap.Logger
	defaultKind   string
	maxPageSize   int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	entities EntityService,
	search SearchService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		entities:    entities,
		search:      search,
		health:      health,
		logger:      logger,
		defaultKind: DefaultKind,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownEntityType, http.StatusNotFound, CodeUnknownEntityType),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrUnknownField, http.StatusBadRequest, CodeUnknownField),
		sentinelHandler(domain.ErrUnsupportedOperation, http.StatusBadRequest, CodeUnsupported),
		sentinelHandler(domain.ErrInvalidContinuationToken, http.StatusBadRequest, CodeInvalidToken),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
	}
	return s
}

// WithDefaultKind sets the kind served under /api/projects.
func (s *Server) WithDefaultKind(kind string) *Server {
	if kind != "" {
		s.defaultKind = kind
	}
	return s
}

// WithMaxPageSize caps the pageSize of search requests. 0 leaves it unbounded.
func (s *Server) WithMaxPageSize(n int) *Server {
	if n >= 0 {
		s.maxPageSize = n
	}
	return s
}

// kindFrom returns the {kind} route parameter, or the default kind on the
// /api/projects routes.
func (s *Server) kindFrom(r *http.Request) string {
	if k := chi.URLParam(r, "kind"); k != "" {
		return k
	}
	return s.defaultKind
}

// ListEntities handles GET /api/projects and GET /api/entities/{kind}.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	var pageSize *int
	if err := runtime.BindQueryParameter("form", true, false, "pageSize", r.URL.Query(), &pageSize); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid pageSize: "+err.Error())
		return
	}
	var token *string
	if err := runtime.BindQueryParameter(
		"form", true, false, "continuationToken", r.URL.Query(), &token,
	); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid continuationToken: "+err.Error())
		return
	}

	size := 0
	if pageSize != nil {
		if *pageSize <= 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "pageSize must be positive")
			return
		}
		size = *pageSize
	}
	tok := ""
	if token != nil {
		tok = *token
	}

	page, err := s.entities.List(r.Context(), s.kindFrom(r), tok, size)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// CreateEntity handles POST /api/projects and POST /api/entities/{kind}.
func (s *Server) CreateEntity(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	e, err := jsondoc.ParseObject(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := s.entities.Create(r.Context(), s.kindFrom(r), e)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// BulkCreate handles POST /api/projects/bulk. The body is a JSON array of
// entities.
func (s *Server) BulkCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	items, err := parseEntities(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sum, err := s.entities.BulkCreate(r.Context(), s.kindFrom(r), items)
	if err != nil && len(sum.Results) == 0 {
		s.handleDomainError(w, r, err)
		return
	}
	if err != nil {
		// Cancelled midway: report what was written.
		logger.FromContext(r.Context()).Warn("bulk create interrupted", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, summaryToResponse(sum))
}

// Export handles GET /api/projects/export, streaming one entity per line.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	var bw *bufio.Writer
	n, err := s.entities.Export(r.Context(), s.kindFrom(r), func(e *jsondoc.Object) error {
		if bw == nil {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			bw = bufio.NewWriter(w)
		}
		line, err := e.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode entity: %w", err)
		}
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("write entity: %w", err)
		}
		return bw.WriteByte('\n')
	})
	if bw == nil {
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		return
	}
	if ferr := bw.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		// Headers are gone; the truncated stream is all the client gets.
		logger.FromContext(r.Context()).Error("export interrupted",
			zap.Int("exported", n), zap.Error(err))
	}
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req, err := request.Decode(body, s.maxPageSize)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// Init handles POST /api/init.
func (s *Server) Init(w http.ResponseWriter, r *http.Request) {
	sts, err := s.entities.Init(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initToResponse(sts))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Missing: report.Missing,
	})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func parseEntities(body []byte) ([]*jsondoc.Object, error) {
	v, err := jsondoc.Parse(body)
	if err != nil {
		return nil, err
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil, errors.New("expected a JSON array of entities")
	}
	items := make([]*jsondoc.Object, len(arr))
	for i, el := range arr {
		o, ok := el.AsObject()
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		items[i] = o
	}
	return items, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message. Caller errors carry
// only request content and are returned whole; anything else is reduced to
// its sentinel so store internals never leak.
func safeDomainMessage(err error) string {
	if domain.IsCallerError(err) || errors.Is(err, domain.ErrAlreadyExists) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrStoreUnavailable,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger
	if l := logger.FromContext(r.Context()); l.Core().Enabled(zap.ErrorLevel) {
		log = l
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
