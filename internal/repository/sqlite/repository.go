package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nicefood/prodtrack/internal/repository"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// Repository implements repository.Store with JSON documents in a single SQLite table.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type row struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

// Open connects to the SQLite database at path (":memory:" for a private in-memory database)
// and ensures the schema exists.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &Repository{db: db, logger: logger}, nil
}

// List returns every document of a collection ordered by id.
func (r *Repository) List(ctx context.Context, collection string) ([]repository.Document, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, data FROM documents WHERE collection = ? ORDER BY id`, collection); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	docs := make([]repository.Document, 0, len(rows))
	for _, rw := range rows {
		doc, err := decodeRow(rw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, rw.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get fetches a single document by id.
func (r *Repository) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	var rw row
	err := r.db.GetContext(ctx, &rw, `SELECT id, data FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Document{}, fmt.Errorf("%s/%s: %w", collection, id, repository.ErrNotFound)
	}
	if err != nil {
		return repository.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRow(rw)
}

// Create inserts data under a new random id.
func (r *Repository) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(repository.StripID(data))
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`, collection, id, string(payload)); err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

// CreateWithID writes data under id, replacing any existing document.
func (r *Repository) CreateWithID(ctx context.Context, collection, id string, data map[string]any) error {
	payload, err := json.Marshal(repository.StripID(data))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, string(payload))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges the top-level fields of partial into an existing document.
func (r *Repository) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s/%s: %w", collection, id, err)
	}
	defer tx.Rollback()

	var rw row
	err = tx.GetContext(ctx, &rw, `SELECT id, data FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", collection, id, err)
	}

	doc, err := decodeRow(rw)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	for k, v := range repository.StripID(partial) {
		doc.Data[k] = v
	}

	payload, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET data = ? WHERE collection = ? AND id = ?`, string(payload), collection, id); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

// Delete removes a document. Deleting a missing document is not an error.
func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func decodeRow(rw row) (repository.Document, error) {
	data := map[string]any{}
	if err := json.Unmarshal([]byte(rw.Data), &data); err != nil {
		return repository.Document{}, err
	}
	return repository.Document{ID: rw.ID, Data: data}, nil
}

var _ repository.Store = (*Repository)(nil)
