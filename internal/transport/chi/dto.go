package chi

import (
	"errors"

	"github.com/kailas-cloud/entidex/internal/domain"
	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	entityuc "github.com/kailas-cloud/entidex/internal/usecase/entity"
)

// ErrorCode identifies an error class in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeNotFound          ErrorCode = "not_found"
	CodeUnknownEntityType ErrorCode = "unknown_entity_type"
	CodeUnknownField      ErrorCode = "unknown_field"
	CodeUnsupported       ErrorCode = "unsupported_operation"
	CodeInvalidToken      ErrorCode = "invalid_continuation_token"
	CodeAlreadyExists     ErrorCode = "already_exists"
	CodeStoreUnavailable  ErrorCode = "store_unavailable"
	CodeNotImplemented    ErrorCode = "not_implemented"
	CodeInternalError     ErrorCode = "internal_error"
	CodeSkipped           ErrorCode = "skipped"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// PageResponse is a page of entities.
type PageResponse struct {
	Items []*jsondoc.Object `json:"items"`
	// ContinuationToken is null on the last page.
	ContinuationToken *string         `json:"continuationToken"`
	Count             int             `json:"count"`
	TotalCount        *int64          `json:"totalCount,omitempty"`
	Facets            []FacetResponse `json:"facets,omitempty"`
}

// FacetResponse holds the value counts of one field.
type FacetResponse struct {
	Field   string           `json:"field"`
	Buckets []BucketResponse `json:"buckets"`
}

// BucketResponse is one facet value.
type BucketResponse struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// BulkResponse reports a bulk create.
type BulkResponse struct {
	Created int                `json:"created"`
	Results []BulkItemResponse `json:"results"`
}

// BulkItemResponse reports the entity and index outcomes of one item.
type BulkItemResponse struct {
	ID     string      `json:"id"`
	Entity WriteStatus `json:"entity"`
	Index  WriteStatus `json:"index"`
}

// WriteStatus is the outcome of one write.
type WriteStatus struct {
	Status dombatch.ItemStatus `json:"status"`
	Error  *ErrorResponse      `json:"error,omitempty"`
}

// InitResponse reports which indexes Init created.
type InitResponse struct {
	Kinds []InitKindResponse `json:"kinds"`
}

// InitKindResponse is the Init outcome of one kind.
type InitKindResponse struct {
	Kind           string `json:"kind"`
	ListingCreated bool   `json:"listingCreated"`
	SearchCreated  bool   `json:"searchCreated"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Missing []string          `json:"missingIndexes,omitempty"`
}

func pageToResponse(p result.Page[*jsondoc.Object]) PageResponse {
	items := p.Items()
	if items == nil {
		items = []*jsondoc.Object{}
	}
	resp := PageResponse{Items: items, Count: p.Count()}
	if p.HasMore() {
		tok := p.ContinuationToken()
		resp.ContinuationToken = &tok
	}
	if n, ok := p.TotalCount(); ok {
		resp.TotalCount = &n
	}
	for _, f := range p.Facets() {
		fr := FacetResponse{Field: f.Field(), Buckets: make([]BucketResponse, len(f.Buckets()))}
		for i, b := range f.Buckets() {
			fr.Buckets[i] = BucketResponse{Value: b.Value, Count: b.Count}
		}
		resp.Facets = append(resp.Facets, fr)
	}
	return resp
}

func summaryToResponse(sum dombatch.Summary) BulkResponse {
	resp := BulkResponse{Created: sum.Created, Results: make([]BulkItemResponse, len(sum.Results))}
	for i, r := range sum.Results {
		resp.Results[i] = BulkItemResponse{
			ID:     r.ID(),
			Entity: writeStatus(r.EntityStatus(), r.EntityErr()),
			Index:  writeStatus(r.IndexStatus(), r.IndexErr()),
		}
	}
	return resp
}

func writeStatus(st dombatch.ItemStatus, err error) WriteStatus {
	ws := WriteStatus{Status: st}
	if err != nil {
		ws.Error = &ErrorResponse{Code: itemErrorCode(st, err), Message: safeDomainMessage(err)}
	}
	return ws
}

func itemErrorCode(st dombatch.ItemStatus, err error) ErrorCode {
	if st == dombatch.StatusSkipped {
		return CodeSkipped
	}
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, domain.ErrInvalidRequest):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternalError
	}
}

func initToResponse(sts []entityuc.IndexStatus) InitResponse {
	resp := InitResponse{Kinds: make([]InitKindResponse, len(sts))}
	for i, st := range sts {
		resp.Kinds[i] = InitKindResponse{
			Kind:           st.Kind,
			ListingCreated: st.ListingCreated,
			SearchCreated:  st.SearchCreated,
		}
	}
	return resp
}
