package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	entityuc "github.com/kailas-cloud/entidex/internal/usecase/entity"
	healthuc "github.com/kailas-cloud/entidex/internal/usecase/health"
)

// EntityService creates, lists and exports entities.
type EntityService interface {
	Create(ctx context.Context, kind string, e *jsondoc.Object) (*jsondoc.Object, error)
	BulkCreate(ctx context.Context, kind string, items []*jsondoc.Object) (dombatch.Summary, error)
	List(ctx context.Context, kind, token string, pageSize int) (result.Page[*jsondoc.Object], error)
	Export(ctx context.Context, kind string, fn func(*jsondoc.Object) error) (int, error)
	Init(ctx context.Context) ([]entityuc.IndexStatus, error)
}

// SearchService runs two-phase searches.
type SearchService interface {
	Search(ctx context.Context, req request.Request) (result.Page[*jsondoc.Object], error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
