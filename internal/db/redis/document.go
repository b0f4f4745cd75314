package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/entidex/internal/db"
)

// envelope is the stored JSON value: the item body plus the metadata the
// index schema filters on.
type envelope struct {
	Kind string          `json:"kind"`
	PK   string          `json:"pk,omitempty"`
	Body json.RawMessage `json:"body"`
}

// Create stores item with JSON.SET NX; a nil reply means the key exists.
func (s *Store) Create(ctx context.Context, container string, item db.Item) error {
	if item.ID == "" {
		return &db.Error{Op: db.OpCreate, Err: errors.New("item id is required")}
	}
	if !json.Valid(item.Body) {
		return &db.Error{Op: db.OpCreate, Err: errors.New("item body is not valid JSON")}
	}
	raw, err := json.Marshal(envelope{Kind: item.Kind, PK: item.PartitionKey, Body: item.Body})
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	cmd := s.b().Arbitrary("JSON.SET").Keys(s.key(container, item.ID)).Args("$", string(raw), "NX").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return &db.Error{Op: db.OpCreate, Err: db.ErrKeyExists}
		}
		return wrap(db.OpCreate, err)
	}
	return nil
}

// BatchGet reads ids with one JSON.GET per key in a single DoMulti
// round-trip, so keys may live on different cluster slots. It keeps the
// bodies of kind; missing keys are skipped.
func (s *Store) BatchGet(ctx context.Context, container string, ids []string, kind string) ([][]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		keys[i] = s.key(container, id)
		cmds[i] = s.b().Arbitrary("JSON.GET").Keys(keys[i]).Args("$").Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([][]byte, 0, len(results))
	for i, res := range results {
		raw, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, wrap(db.OpBatchGet, err)
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			return nil, &db.Error{Op: db.OpBatchGet, Err: fmt.Errorf("%s: %w", keys[i], err)}
		}
		if env.Kind != kind {
			continue
		}
		out = append(out, env.Body)
	}
	return out, nil
}

// decodeEnvelope accepts both the bare object and the one-element array a
// "$" path read returns.
func decodeEnvelope(raw string) (envelope, error) {
	var env envelope
	if len(raw) > 0 && raw[0] == '[' {
		var list []envelope
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return env, err
		}
		if len(list) == 0 {
			return env, errors.New("empty document")
		}
		return list[0], nil
	}
	err := json.Unmarshal([]byte(raw), &env)
	return env, err
}
