package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/query"
)

// QueryPage returns one page of matching documents. Pages are offsets into
// the ordered match set; the token carries the offset and a fingerprint of
// the query so it cannot be replayed against a different one.
func (s *Store) QueryPage(ctx context.Context, q *db.PageQuery) (*db.Page, error) {
	where, args := whereClause(q.Container, q.Kind, q.Query)
	fp := db.Fingerprint(q.Container, q.Kind, where, q.Query.OrderBy, paramsKey(q.Query.Params))

	offset, err := db.DecodeCursor(q.Token, fp)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	proj, err := projection(q.Select)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	limit := -1
	if q.MaxItems > 0 {
		limit = q.MaxItems + 1
	}
	order := "id"
	if q.Query.OrderBy != "" {
		order = q.Query.OrderBy + ", id"
	}

	stmt := "SELECT " + proj + " FROM documents WHERE " + where +
		" ORDER BY " + order + " LIMIT @limit OFFSET @offset"
	args = append(args, sql.Named("limit", limit), sql.Named("offset", offset))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrap(db.OpQuery, err)
	}
	defer rows.Close()

	var items [][]byte
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, wrap(db.OpQuery, err)
		}
		items = append(items, []byte(body))
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(db.OpQuery, err)
	}

	more := q.MaxItems > 0 && len(items) > q.MaxItems
	if more {
		items = items[:q.MaxItems]
	}
	return &db.Page{
		Items:             items,
		ContinuationToken: db.NextCursor(offset, len(items), more, fp),
	}, nil
}

// Count returns the number of documents matching the query.
func (s *Store) Count(ctx context.Context, q *db.CountQuery) (int64, error) {
	where, args := whereClause(q.Container, q.Kind, q.Query)

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, wrap(db.OpCount, err)
	}
	return n, nil
}

// Facets counts distinct scalar values at q.Path over the matching documents.
func (s *Store) Facets(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error) {
	if !query.ValidPath(q.Path) {
		return nil, &db.Error{Op: db.OpFacets, Err: fmt.Errorf("%w: facet path %q", db.ErrUnsupported, q.Path)}
	}
	where, args := whereClause(q.Container, q.Kind, q.Query)
	stmt := "SELECT " + ref(q.Path) + " AS v, COUNT(*) AS n FROM documents WHERE " + where +
		" AND json_type(body, " + jsonPath(q.Path) + ") IN ('text', 'integer', 'real', 'true', 'false')" +
		" GROUP BY v ORDER BY n DESC, v"

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrap(db.OpFacets, err)
	}
	defer rows.Close()

	var out []db.FacetBucket
	for rows.Next() {
		var v any
		var n int64
		if err := rows.Scan(&v, &n); err != nil {
			return nil, wrap(db.OpFacets, err)
		}
		out = append(out, db.FacetBucket{Value: scalarText(v), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(db.OpFacets, err)
	}
	return out, nil
}

func whereClause(container, kind string, c query.Compiled) (string, []any) {
	parts := []string{"container = @container"}
	args := []any{sql.Named("container", container)}
	if kind != "" {
		parts = append(parts, "kind = @kind")
		args = append(args, sql.Named("kind", kind))
	}
	if c.Predicate != "" {
		parts = append(parts, "("+c.Predicate+")")
	}
	for _, p := range c.Params {
		args = append(args, sql.Named(p.Name, p.Value))
	}
	return strings.Join(parts, " AND "), args
}

// projection selects whole bodies or a JSON object of the named top-level
// fields.
func projection(fields []string) (string, error) {
	if len(fields) == 0 {
		return "body", nil
	}
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		if !query.ValidPath(f) || strings.Contains(f, ".") {
			return "", fmt.Errorf("%w: select field %q", db.ErrUnsupported, f)
		}
		pairs = append(pairs, "'"+f+"', json_extract(body, '$."+f+"')")
	}
	return "json_object(" + strings.Join(pairs, ", ") + ")", nil
}

func paramsKey(params []query.Param) string {
	var b strings.Builder
	for _, p := range params {
		fmt.Fprintf(&b, "%s=%v;", p.Name, p.Value)
	}
	return b.String()
}

func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
