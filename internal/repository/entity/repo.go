package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	"github.com/kailas-cloud/entidex/internal/query"
	"github.com/kailas-cloud/entidex/internal/repository/dberr"
)

// IDField is the entity key every stored entity carries.
const IDField = "id"

// store is the consumer interface for entities (ISP).
type store interface {
	Create(ctx context.Context, container string, item db.Item) error
	BatchGet(ctx context.Context, container string, ids []string, kind string) ([][]byte, error)
	QueryPage(ctx context.Context, q *db.PageQuery) (*db.Page, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	Dialect() query.Dialect
}

// Repo stores entities of every kind in one container.
type Repo struct {
	store     store
	container string
}

// New creates an entity repository over container.
func New(s store, container string) *Repo {
	return &Repo{store: s, container: container}
}

// Container returns the container entities are stored in.
func (r *Repo) Container() string { return r.container }

// Create stores e as a kind entity. The entity must already carry its id.
func (r *Repo) Create(ctx context.Context, kind string, e *jsondoc.Object) error {
	id, err := ID(e)
	if err != nil {
		return err
	}
	body, err := e.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal entity %s: %w", id, err)
	}
	item := db.Item{ID: id, Kind: kind, PartitionKey: id, Body: body}
	if err := r.store.Create(ctx, r.container, item); err != nil {
		return fmt.Errorf("create %s %s: %w", kind, id, dberr.Translate(err))
	}
	return nil
}

// BatchGet loads the kind entities with the given ids in one unordered,
// unpaginated read. Missing ids are skipped.
func (r *Repo) BatchGet(ctx context.Context, kind string, ids []string) ([]*jsondoc.Object, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := r.store.BatchGet(ctx, r.container, ids, kind)
	if err != nil {
		return nil, fmt.Errorf("batch get %d %s: %w", len(ids), kind, dberr.Translate(err))
	}
	return decodeAll(raw)
}

// List returns one page of kind entities ordered by id. pageSize 0 returns
// every entity.
func (r *Repo) List(ctx context.Context, kind, token string, pageSize int) (result.Page[*jsondoc.Object], error) {
	compiled, err := r.store.Dialect().Render(query.Plan{Sort: []query.SortKey{{Path: IDField}}})
	if err != nil {
		return result.Page[*jsondoc.Object]{}, fmt.Errorf("render listing: %w", err)
	}
	page, err := r.store.QueryPage(ctx, &db.PageQuery{
		Container: r.container,
		Kind:      kind,
		Query:     compiled,
		Token:     token,
		MaxItems:  pageSize,
	})
	if err != nil {
		return result.Page[*jsondoc.Object]{}, fmt.Errorf("list %s: %w", kind, dberr.Translate(err))
	}
	items, err := decodeAll(page.Items)
	if err != nil {
		return result.Page[*jsondoc.Object]{}, err
	}
	return result.NewPage(items, page.ContinuationToken), nil
}

// EnsureIndex creates the listing index for kind. It reports false when the
// index already existed.
func (r *Repo) EnsureIndex(ctx context.Context, kind string) (bool, error) {
	def, err := db.NewIndex(db.IndexName(r.container, kind)).
		On(r.container).
		ForKind(kind).
		Tag(IDField).
		Build()
	if err != nil {
		return false, fmt.Errorf("entity index %s: %w", kind, err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, dberr.Translate(err))
	}
	return true, nil
}

// ID returns the string id of e.
func ID(e *jsondoc.Object) (string, error) {
	v, ok := e.Get(IDField)
	if !ok {
		return "", fmt.Errorf("%w: entity has no id", domain.ErrInvalidRequest)
	}
	id, ok := v.AsString()
	if !ok || id == "" {
		return "", fmt.Errorf("%w: entity id must be a non-empty string", domain.ErrInvalidRequest)
	}
	return id, nil
}

func decodeAll(raw [][]byte) ([]*jsondoc.Object, error) {
	out := make([]*jsondoc.Object, 0, len(raw))
	for _, b := range raw {
		obj, err := jsondoc.ParseObject(b)
		if err != nil {
			return nil, fmt.Errorf("decode stored entity: %w", err)
		}
		out = append(out, obj)
	}
	return out, nil
}
