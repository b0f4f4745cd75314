package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/query"
)

// maxUnbounded caps pages requested without a size; it matches the query
// engine's default MAXSEARCHRESULTS.
const maxUnbounded = 10000

// QueryPage runs FT.SEARCH on the container's index for q.Kind. The token is
// an offset into the sorted result, bound to the query by a fingerprint.
// A sort on a non-unique key goes through FT.AGGREGATE so that ties are
// broken by entity reference and pages stay stable.
func (s *Store) QueryPage(ctx context.Context, q *db.PageQuery) (*db.Page, error) {
	pred := withKind(q.Query.Predicate, q.Kind)
	params := paramArgs(q.Query.Params)
	fp := db.Fingerprint(q.Container, q.Kind, pred, q.Query.OrderBy, strings.Join(params, "\x00"))
	offset, err := db.DecodeCursor(q.Token, fp)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	limit := q.MaxItems
	if limit <= 0 {
		limit = maxUnbounded
	}

	if len(q.Query.Sort) == 1 && !uniqueSortKey(q.Query.Sort[0].Path) {
		return s.aggregatePage(ctx, q, pred, params, fp, offset, limit)
	}

	args := []string{db.IndexName(q.Container, q.Kind), pred}
	ret, err := returnArgs(q.Select)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	args = append(args, ret...)
	if len(q.Query.Sort) > 0 {
		sk := q.Query.Sort[0]
		dir := "ASC"
		if sk.Desc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", db.AliasFor(sk.Path), dir)
	}
	args = append(args, "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit))
	args = append(args, params...)
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, wrap(db.OpQuery, err)
	}

	total, entries, err := parseSearchResult(raw)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	items := make([][]byte, 0, len(entries))
	for _, fields := range entries {
		item, err := entryBody(fields, q.Select)
		if err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		items = append(items, item)
	}

	more := q.MaxItems > 0 && int64(offset+len(items)) < total
	return &db.Page{
		Items:             items,
		ContinuationToken: db.NextCursor(offset, len(items), more, fp),
	}, nil
}

// aggregatePage serves one page sorted by a key that may tie. One row past
// the page is fetched to tell whether another page follows.
func (s *Store) aggregatePage(
	ctx context.Context, q *db.PageQuery, pred string, params []string, fp string, offset, limit int,
) (*db.Page, error) {
	load, err := loadArgs(q.Select)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	sk := q.Query.Sort[0]
	dir := "ASC"
	if sk.Desc {
		dir = "DESC"
	}
	fetch := limit
	if q.MaxItems > 0 {
		fetch++
	}

	args := []string{db.IndexName(q.Container, q.Kind), pred}
	args = append(args, load...)
	args = append(args,
		"SORTBY", "4", "@"+db.AliasFor(sk.Path), dir, "@"+query.RefField, "ASC",
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(fetch),
	)
	args = append(args, params...)
	args = append(args, "DIALECT", "2")

	raw, err := s.do(ctx, s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, wrap(db.OpQuery, err)
	}

	items := make([][]byte, 0, len(raw))
	// [total, row1, row2, ...]; each row is a flat field/value list.
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		item, err := entryBody(parseFieldPairs(row), q.Select)
		if err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		items = append(items, item)
	}

	more := q.MaxItems > 0 && len(items) > limit
	if more {
		items = items[:limit]
	}
	return &db.Page{
		Items:             items,
		ContinuationToken: db.NextCursor(offset, len(items), more, fp),
	}, nil
}

// uniqueSortKey reports whether path orders every document distinctly.
func uniqueSortKey(path string) bool {
	return path == query.RefField || path == "id"
}

// Count returns the match count via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, q *db.CountQuery) (int64, error) {
	args := []string{db.IndexName(q.Container, q.Kind), withKind(q.Query.Predicate, q.Kind), "LIMIT", "0", "0"}
	args = append(args, paramArgs(q.Query.Params)...)
	cmd := s.b().Arbitrary("FT.SEARCH").Args(append(args, "DIALECT", "2")...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, wrap(db.OpCount, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("parse count: %w", err)}
	}
	return total, nil
}

// Facets groups the matches by q.Path with FT.AGGREGATE.
func (s *Store) Facets(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error) {
	if !query.ValidPath(q.Path) {
		return nil, &db.Error{Op: db.OpFacets, Err: fmt.Errorf("%w: facet path %q", db.ErrUnsupported, q.Path)}
	}
	alias := db.AliasFor(q.Path)
	args := []string{
		db.IndexName(q.Container, q.Kind), withKind(q.Query.Predicate, q.Kind),
		"GROUPBY", "1", "@" + alias,
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "4", "@count", "DESC", "@" + alias, "ASC",
	}
	args = append(args, paramArgs(q.Query.Params)...)
	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(append(args, "DIALECT", "2")...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, wrap(db.OpFacets, err)
	}

	var out []db.FacetBucket
	// [total, row1, row2, ...]; each row is a flat field/value list.
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(row)
		v, ok := m[alias]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(m["count"], 10, 64)
		if err != nil {
			return nil, &db.Error{Op: db.OpFacets, Err: fmt.Errorf("parse count for %q: %w", v, err)}
		}
		out = append(out, db.FacetBucket{Value: v, Count: n})
	}
	return out, nil
}

func withKind(predicate, kind string) string {
	if kind == "" {
		if predicate == "" {
			return "*"
		}
		return predicate
	}
	k := buildTagFilter(kindField, kind)
	if predicate == "" || predicate == "*" {
		return k
	}
	return predicate + " " + k
}

func returnArgs(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return []string{"RETURN", "3", "$.body", "AS", "body"}, nil
	}
	args := []string{"RETURN", strconv.Itoa(3 * len(fields))}
	for _, f := range fields {
		if !query.ValidPath(f) || strings.Contains(f, ".") {
			return nil, fmt.Errorf("%w: select field %q", db.ErrUnsupported, f)
		}
		args = append(args, "$.body."+f, "AS", f)
	}
	return args, nil
}

// loadArgs is the FT.AGGREGATE counterpart of returnArgs.
func loadArgs(fields []string) ([]string, error) {
	ret, err := returnArgs(fields)
	if err != nil {
		return nil, err
	}
	ret[0] = "LOAD"
	return ret, nil
}

// entryBody rebuilds the item JSON from the returned fields. Projected
// values come back as plain strings.
func entryBody(fields map[string]string, selected []string) ([]byte, error) {
	if len(selected) == 0 {
		body, ok := fields["body"]
		if !ok {
			return nil, fmt.Errorf("search entry without body")
		}
		env := strings.TrimSpace(body)
		if strings.HasPrefix(env, "[") {
			var list []json.RawMessage
			if err := json.Unmarshal([]byte(env), &list); err != nil || len(list) == 0 {
				return nil, fmt.Errorf("malformed body")
			}
			return list[0], nil
		}
		return []byte(env), nil
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, f := range selected {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(f)
		b.Write(k)
		b.WriteByte(':')
		v, ok := fields[f]
		if !ok {
			b.WriteString("null")
			continue
		}
		enc, _ := json.Marshal(v)
		b.Write(enc)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// --- Result parsing ---

// parseSearchResult reads the RESP2 FT.SEARCH reply
// [total, key1, fields1, key2, fields2, ...].
func parseSearchResult(raw []rueidis.RedisMessage) (int64, []map[string]string, error) {
	if len(raw) == 0 {
		return 0, nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return 0, nil, nil
	}

	entries := make([]map[string]string, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		if _, err := raw[i].ToString(); err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, parseFieldPairs(fields))
	}

	return total, entries, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
