package observe

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entidex/internal/logger"
)

// Zap logs events. The request-scoped logger from the context wins over
// the base logger.
type Zap struct {
	base *zap.Logger
}

var _ Observer = (*Zap)(nil)

// NewZap creates a logging observer. A nil base logs only through the
// context logger.
func NewZap(base *zap.Logger) *Zap {
	if base == nil {
		base = zap.NewNop()
	}
	return &Zap{base: base}
}

// log prefers the context logger; logger.FromContext falls back to a
// no-op logger, whose core is disabled.
func (z *Zap) log(ctx context.Context) *zap.Logger {
	if l := logger.FromContext(ctx); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return z.base
}

// SearchPhase implements Observer.
func (z *Zap) SearchPhase(ctx context.Context, e PhaseEvent) {
	fields := []zap.Field{
		zap.String("kind", e.Kind),
		zap.String("phase", string(e.Phase)),
		zap.Duration("duration", e.Duration),
		zap.Int("items", e.Items),
	}
	if e.Err != nil {
		z.log(ctx).Warn("search phase failed", append(fields, zap.Error(e.Err))...)
		return
	}
	z.log(ctx).Debug("search phase", fields...)
}

// SearchDone implements Observer.
func (z *Zap) SearchDone(ctx context.Context, e SearchEvent) {
	fields := []zap.Field{
		zap.String("kind", e.Kind),
		zap.Int("items", e.Items),
		zap.Bool("empty", e.Empty),
		zap.Bool("has_more", e.HasMore),
		zap.Duration("duration", e.Duration),
	}
	if e.Dropped > 0 {
		z.log(ctx).Warn("search dropped index hits without entity",
			append(fields, zap.Int("dropped", e.Dropped))...)
		return
	}
	if e.Err != nil {
		z.log(ctx).Info("search failed", append(fields, zap.Error(e.Err))...)
		return
	}
	z.log(ctx).Debug("search completed", fields...)
}

// CompileCache implements Observer.
func (z *Zap) CompileCache(ctx context.Context, kind string, hit bool) {
	z.log(ctx).Debug("compile cache", zap.String("kind", kind), zap.Bool("hit", hit))
}

// BulkItem implements Observer. Only failures are logged.
func (z *Zap) BulkItem(ctx context.Context, e BulkItemEvent) {
	switch {
	case e.EntityErr != nil:
		z.log(ctx).Warn("bulk entity write failed",
			zap.String("kind", e.Kind), zap.String("id", e.EntityID), zap.Error(e.EntityErr))
	case e.IndexErr != nil:
		z.log(ctx).Warn("bulk index write failed, entity is not searchable",
			zap.String("kind", e.Kind), zap.String("id", e.EntityID),
			zap.String("index_id", e.IndexID), zap.Error(e.IndexErr))
	}
}

// BulkDone implements Observer.
func (z *Zap) BulkDone(ctx context.Context, e BulkEvent) {
	fields := []zap.Field{
		zap.String("kind", e.Kind),
		zap.Int("total", e.Total),
		zap.Int("created", e.Created),
		zap.Duration("duration", e.Duration),
	}
	if e.Err != nil {
		z.log(ctx).Warn("bulk create aborted", append(fields, zap.Error(e.Err))...)
		return
	}
	z.log(ctx).Info("bulk create", fields...)
}
