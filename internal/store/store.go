package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/metrics"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// Document is one stored row.
type Document struct {
	Path       string    `db:"path"`
	Collection string    `db:"collection"`
	Parent     string    `db:"parent"`
	Data       []byte    `db:"data"`
	Version    int64     `db:"version"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Decode unmarshals the document body into T.
func Decode[T any](doc *Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s: %w", doc.Path, err)
	}
	return v, nil
}

// OpKind selects what a batch [Op] does.
type OpKind int

const (
	OpSet OpKind = iota + 1
	OpCreate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is a single write inside a batch.
type Op struct {
	Kind  OpKind
	Path  string
	Value any
}

// SetOp replaces the document at path.
func SetOp(path string, v any) Op { return Op{Kind: OpSet, Path: path, Value: v} }

// CreateOp writes v only when nothing exists at path.
func CreateOp(path string, v any) Op { return Op{Kind: OpCreate, Path: path, Value: v} }

// DeleteOp removes the document at path. Deleting an absent document is not an error.
func DeleteOp(path string) Op { return Op{Kind: OpDelete, Path: path} }

// BatchError reports a partially applied batch.
type BatchError struct {
	Committed int // ops in chunks that committed before the failure
	Failed    int // ops in the failing chunk and every chunk after it
	Chunk     int // index of the failing chunk
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: chunk %d failed after %d committed ops (%d not applied): %v",
		shared.ErrStoreWrite, e.Chunk, e.Committed, e.Failed, e.Err)
}

func (e *BatchError) Unwrap() []error {
	return []error{shared.ErrStoreWrite, e.Err}
}

// Store is a document store backed by the documents table.
type Store struct {
	db        *sqlx.DB
	batchSize int
	logger    *log.Logger
}

// New creates a Store. batchSize is clamped to [1, shared.MaxBatchSize].
func New(db *sqlx.DB, batchSize int, logger *log.Logger) *Store {
	if batchSize < 1 || batchSize > shared.MaxBatchSize {
		batchSize = shared.MaxBatchSize
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Store{db: db, batchSize: batchSize, logger: shared.WithLogger(logger, "component", "store")}
}

// BatchSize returns the number of ops committed per atomic chunk.
func (s *Store) BatchSize() int {
	return s.batchSize
}

const selectColumns = `SELECT path, collection, parent, data, version, created_at, updated_at FROM documents`

// Get returns the document at path or [shared.ErrNotFound].
func (s *Store) Get(ctx context.Context, path string) (*Document, error) {
	var doc Document
	err := s.db.GetContext(ctx, &doc, s.db.Rebind(selectColumns+` WHERE path = ?`), path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return &doc, nil
}

// getManyChunkSize keeps each IN list under SQLite's bound-variable limit.
const getManyChunkSize = 500

// GetMany returns the documents that exist among paths, keyed by path. Missing paths are omitted.
func (s *Store) GetMany(ctx context.Context, paths []string) (map[string]*Document, error) {
	found := make(map[string]*Document, len(paths))
	paths = lo.Uniq(paths)
	if len(paths) == 0 {
		return found, nil
	}

	for _, chunk := range lo.Chunk(paths, getManyChunkSize) {
		query, args, err := sqlx.In(selectColumns+` WHERE path IN (?)`, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to build query: %w", err)
		}

		var docs []Document
		if err := s.db.SelectContext(ctx, &docs, s.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to get documents: %w", err)
		}
		for i := range docs {
			found[docs[i].Path] = &docs[i]
		}
	}
	return found, nil
}

// List returns every document directly under parent, ordered by path.
func (s *Store) List(ctx context.Context, parent string) ([]Document, error) {
	var docs []Document
	query := s.db.Rebind(selectColumns + ` WHERE parent = ? ORDER BY path`)
	if err := s.db.SelectContext(ctx, &docs, query, parent); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", parent, err)
	}
	return docs, nil
}

// Create writes v at path when no document exists there. It reports whether the write happened.
func (s *Store) Create(ctx context.Context, path string, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	created, err := create(ctx, s.db, path, data)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}
	return created, nil
}

// Set writes v at path, replacing any existing document.
func (s *Store) Set(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := set(ctx, s.db, path, data); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}
	return nil
}

// CompareAndSet writes v at path only when the stored version equals expected.
// An expected version of 0 means the document must not exist yet.
// A lost race returns [shared.ErrConflict].
func (s *Store) CompareAndSet(ctx context.Context, path string, v any, expected int64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if expected == 0 {
		created, err := create(ctx, s.db, path, data)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
		}
		if !created {
			return fmt.Errorf("%w: %s already exists", shared.ErrConflict, path)
		}
		return nil
	}

	query := s.db.Rebind(`UPDATE documents SET data = ?, version = version + 1, updated_at = ? WHERE path = ? AND version = ?`)
	result, err := s.db.ExecContext(ctx, query, string(data), now(), path, expected)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s is not at version %d", shared.ErrConflict, path, expected)
	}
	return nil
}

// Delete removes the document at path. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM documents WHERE path = ?`), path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}
	return nil
}

// Batch applies ops in chunks of at most [Store.BatchSize], one transaction per chunk.
//
// Chunks run in order. The first failing chunk stops the batch and the returned
// [*BatchError] wraps [shared.ErrStoreWrite]. Chunks before it remain committed.
func (s *Store) Batch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}

	encoded := make([][]byte, len(ops))
	for i, op := range ops {
		if op.Kind == OpDelete {
			continue
		}
		data, err := json.Marshal(op.Value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", op.Path, err)
		}
		encoded[i] = data
	}

	committed := 0
	for i, chunk := range lo.Chunk(lo.Range(len(ops)), s.batchSize) {
		if err := s.commitChunk(ctx, ops, encoded, chunk); err != nil {
			metrics.StoreBatchChunksTotal.WithLabelValues(metrics.OutcomeError).Inc()
			s.logger.Error("batch chunk failed", "chunk", i, "ops", len(chunk), "committed", committed, "error", err)
			return &BatchError{Committed: committed, Failed: len(ops) - committed, Chunk: i, Err: err}
		}
		metrics.StoreBatchChunksTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		committed += len(chunk)
	}

	s.logger.Debug("batch committed", "ops", len(ops))
	return nil
}

func (s *Store) commitChunk(ctx context.Context, ops []Op, encoded [][]byte, chunk []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, i := range chunk {
		op := ops[i]
		switch op.Kind {
		case OpSet:
			err = set(ctx, tx, op.Path, encoded[i])
		case OpCreate:
			_, err = create(ctx, tx, op.Path, encoded[i])
		case OpDelete:
			_, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM documents WHERE path = ?`), op.Path)
		default:
			err = fmt.Errorf("unknown op kind %d", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", op.Kind, op.Path, err)
		}
	}

	return tx.Commit()
}

func create(ctx context.Context, ext sqlx.ExtContext, path string, data []byte) (bool, error) {
	parent, collection := split(path)
	ts := now()
	query := ext.Rebind(`
		INSERT INTO documents (path, collection, parent, data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (path) DO NOTHING
	`)

	result, err := ext.ExecContext(ctx, query, path, collection, parent, string(data), ts, ts)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func set(ctx context.Context, ext sqlx.ExtContext, path string, data []byte) error {
	parent, collection := split(path)
	ts := now()
	query := ext.Rebind(`
		INSERT INTO documents (path, collection, parent, data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at
	`)

	_, err := ext.ExecContext(ctx, query, path, collection, parent, string(data), ts, ts)
	return err
}

func now() time.Time {
	return time.Now().UTC()
}
