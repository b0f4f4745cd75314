package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/db"
)

// CreateIndex records def and creates one expression index per scalar
// field. Array fields are matched through json_each and are not indexed.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode index definition: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(db.OpCreateIndex, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO index_definitions (name, definition) VALUES (@name, @def)`,
		sql.Named("name", def.Name), sql.Named("def", string(raw)))
	if err != nil {
		if errors.Is(wrap(db.OpCreateIndex, err), db.ErrKeyExists) {
			return db.ErrIndexExists
		}
		return wrap(db.OpCreateIndex, err)
	}

	for _, stmt := range createStatements(def) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrap(db.OpCreateIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes the definition and its expression indexes.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	def, err := s.loadDefinition(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(db.OpDropIndex, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range def.Fields {
		if def.Fields[i].Array {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS "+indexName(def, &def.Fields[i])); err != nil {
			return wrap(db.OpDropIndex, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_definitions WHERE name = @name`, sql.Named("name", name)); err != nil {
		return wrap(db.OpDropIndex, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(db.OpDropIndex, err)
	}
	return nil
}

// IndexExists reports whether a definition named name was created.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := s.loadDefinition(ctx, name)
	if errors.Is(err, db.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) loadDefinition(ctx context.Context, name string) (*db.IndexDefinition, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM index_definitions WHERE name = @name`, sql.Named("name", name)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrIndexNotFound
	}
	if err != nil {
		return nil, wrap(db.OpIndexInfo, err)
	}
	var def db.IndexDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("decode definition %s: %w", name, err)}
	}
	return &def, nil
}

func createStatements(def *db.IndexDefinition) []string {
	out := make([]string, 0, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Array {
			continue
		}
		out = append(out, "CREATE INDEX IF NOT EXISTS "+indexName(def, f)+
			" ON documents(container, "+ref(f.Path)+")")
	}
	return out
}

func indexName(def *db.IndexDefinition, f *db.IndexField) string {
	return `"ix_` + def.Name + "__" + f.Name() + `"`
}
