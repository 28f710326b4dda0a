package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"

	"github.com/caisseapp/backoffice/internal/config"
	"github.com/caisseapp/backoffice/internal/store"
)

// Store implements store.DocumentStore on a single Postgres JSONB table.
// Each document is one row keyed by (collection, id); field filters and
// ordering translate to JSONB operators.
type Store struct {
	db  *sqlx.DB
	sem *semaphore.Weighted
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection text NOT NULL,
    id         text NOT NULL,
    doc        jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_product_idx
    ON documents (collection, (doc->>'product'), (doc->>'category'));
`

// New opens a connection pool from structured config.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg.URL != "" {
		return NewFromURL(cfg.URL)
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	return open(connStr)
}

// NewFromURL opens a connection pool from a DATABASE_URL style string.
func NewFromURL(url string) (*Store, error) {
	return open(url)
}

func open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{
		db:  db,
		sem: semaphore.NewWeighted(10),
	}, nil
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func (s *Store) Query(ctx context.Context, collection string, filters []store.Filter, order *store.OrderBy) ([]store.Document, error) {
	query := `SELECT id, doc FROM documents WHERE collection = $1`
	args := []any{collection}

	for _, f := range filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter value for %s: %w", f.Field, err)
		}
		args = append(args, string(value))
		query += fmt.Sprintf(" AND doc->'%s' = $%d::jsonb", f.Field, len(args))
	}

	if order != nil {
		if !fieldNamePattern.MatchString(order.Field) {
			return nil, fmt.Errorf("invalid order field %q", order.Field)
		}
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY doc->>'%s' %s", order.Field, direction)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []store.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		var doc store.Doc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, store.Document{ID: id, Data: doc})
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Doc, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var doc store.Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc store.Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, doc)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Doc) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET doc = doc || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

type batchOp struct {
	kind       string // "set", "update", "delete"
	collection string
	id         string
	doc        store.Doc
}

type batch struct {
	store *Store
	ops   []batchOp
}

func (s *Store) NewBatch() store.Batch {
	return &batch{store: s}
}

func (b *batch) Set(collection, id string, doc store.Doc) {
	b.ops = append(b.ops, batchOp{kind: "set", collection: collection, id: id, doc: doc})
}

func (b *batch) Update(collection, id string, fields store.Doc) {
	b.ops = append(b.ops, batchOp{kind: "update", collection: collection, id: id, doc: fields})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{kind: "delete", collection: collection, id: id})
}

// Commit runs all queued operations in one transaction. A bounded
// semaphore keeps batch commits from exhausting the pool.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}

	if err := b.store.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire store semaphore: %w", err)
	}
	defer b.store.sem.Release(1)

	tx, err := b.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	if err := b.run(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.ops = nil
	return nil
}

func (b *batch) run(ctx context.Context, tx *sqlx.Tx) error {
	for _, op := range b.ops {
		switch op.kind {
		case "set":
			raw, err := json.Marshal(op.doc)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", op.collection, op.id, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documents (collection, id, doc)
				VALUES ($1, $2, $3::jsonb)
				ON CONFLICT (collection, id)
				DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
				op.collection, op.id, string(raw)); err != nil {
				return fmt.Errorf("batch set %s/%s: %w", op.collection, op.id, err)
			}
		case "update":
			raw, err := json.Marshal(op.doc)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", op.collection, op.id, err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE documents SET doc = doc || $3::jsonb, updated_at = now()
				WHERE collection = $1 AND id = $2`,
				op.collection, op.id, string(raw)); err != nil {
				return fmt.Errorf("batch update %s/%s: %w", op.collection, op.id, err)
			}
		case "delete":
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM documents WHERE collection = $1 AND id = $2`,
				op.collection, op.id); err != nil {
				return fmt.Errorf("batch delete %s/%s: %w", op.collection, op.id, err)
			}
		}
	}
	return nil
}

var _ store.DocumentStore = (*Store)(nil)
