package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/db"
)

// Create inserts item into container.
func (s *Store) Create(ctx context.Context, container string, item db.Item) error {
	if item.ID == "" {
		return &db.Error{Op: db.OpCreate, Err: errors.New("item id is required")}
	}
	if !json.Valid(item.Body) {
		return &db.Error{Op: db.OpCreate, Err: errors.New("item body is not valid JSON")}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (container, id, kind, partition_key, body)
		 VALUES (@container, @id, @kind, @pk, @body)`,
		sql.Named("container", container),
		sql.Named("id", item.ID),
		sql.Named("kind", item.Kind),
		sql.Named("pk", item.PartitionKey),
		sql.Named("body", string(item.Body)),
	)
	if err != nil {
		return wrap(db.OpCreate, err)
	}
	return nil
}

// BatchGet returns the bodies of the kind's items among ids.
func (s *Store) BatchGet(ctx context.Context, container string, ids []string, kind string) ([][]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode ids: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents
		 WHERE container = @container AND kind = @kind
		   AND id IN (SELECT value FROM json_each(@ids))`,
		sql.Named("container", container),
		sql.Named("kind", kind),
		sql.Named("ids", string(list)),
	)
	if err != nil {
		return nil, wrap(db.OpBatchGet, err)
	}
	defer rows.Close()

	out := make([][]byte, 0, len(ids))
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, wrap(db.OpBatchGet, err)
		}
		out = append(out, []byte(body))
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(db.OpBatchGet, err)
	}
	return out, nil
}
