/*
Package postgres provides a PostgreSQL-backed implementation of the
Repository interface using pgx.

Same schema and append-only contract as store/sqlite; history rows are
written with ON CONFLICT DO NOTHING and every mutation runs in a single
transaction. Intended as the production backend behind DATABASE_URL.

SEE ALSO:
  - lifecycle/store.go: Interface definition and contract
  - store/sqlite/sqlite.go: Embedded equivalent, same table layout
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/document-engine/lifecycle"
)

// Store implements lifecycle.Repository[T] on PostgreSQL. Each store
// instance manages one document kind; kinds share the tables.
type Store[T any] struct {
	pool *pgxpool.Pool
	kind string
}

// New connects and migrates. The pool is shared-safe; create one store
// per document kind on the same pool via NewWithPool.
func New[T any](ctx context.Context, url, kind string) (*Store[T], error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	s := &Store[T]{pool: pool, kind: kind}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// NewWithPool wraps an existing pool (already migrated or migrated here).
func NewWithPool[T any](ctx context.Context, pool *pgxpool.Pool, kind string) (*Store[T], error) {
	s := &Store[T]{pool: pool, kind: kind}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store[T]) Close() { s.pool.Close() }

// Pool exposes the underlying connection pool so additional document
// kinds can share it.
func (s *Store[T]) Pool() *pgxpool.Pool { return s.pool }

func (s *Store[T]) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL,
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		lock_type TEXT NOT NULL DEFAULT '',
		approval_json JSONB,
		created_by_id TEXT NOT NULL,
		created_by_name TEXT NOT NULL,
		created_by_role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_kind_created
		ON documents(kind, created_at);

	CREATE TABLE IF NOT EXISTS document_versions (
		document_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		payload_json JSONB NOT NULL,
		lock_type TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		taken_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (document_id, version)
	);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store[T]) Insert(ctx context.Context, doc *lifecycle.Document[T]) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		payload, approval, err := marshalDoc(doc)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO documents
				(id, kind, payload_json, status, version, is_locked, lock_type,
				 approval_json, created_by_id, created_by_name, created_by_role,
				 created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			string(doc.ID), s.kind, payload, string(doc.Status), doc.Version,
			doc.IsLocked, string(doc.LockType), approval,
			doc.CreatedBy.ID, doc.CreatedBy.Name, string(doc.CreatedBy.Role),
			doc.CreatedAt, doc.UpdatedAt)
		if isUniqueViolation(err) {
			return lifecycle.ErrDocumentExists
		}
		if err != nil {
			return err
		}
		return s.writeVersions(ctx, tx, doc)
	})
}

func (s *Store[T]) Save(ctx context.Context, doc *lifecycle.Document[T]) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		payload, approval, err := marshalDoc(doc)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE documents
			SET payload_json = $1, status = $2, version = $3, is_locked = $4,
			    lock_type = $5, approval_json = $6, updated_at = $7
			WHERE id = $8`,
			payload, string(doc.Status), doc.Version, doc.IsLocked,
			string(doc.LockType), approval, doc.UpdatedAt, string(doc.ID))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return lifecycle.ErrDocumentNotFound
		}
		return s.writeVersions(ctx, tx, doc)
	})
}

func (s *Store[T]) writeVersions(ctx context.Context, tx pgx.Tx, doc *lifecycle.Document[T]) error {
	for _, e := range doc.History {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO document_versions
				(document_id, version, payload_json, lock_type,
				 actor_id, actor_name, actor_role, note, taken_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (document_id, version) DO NOTHING`,
			string(doc.ID), e.Version, payload, string(e.LockType),
			e.Actor.ID, e.Actor.Name, string(e.Actor.Role), e.Note, e.TakenAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[T]) Get(ctx context.Context, id lifecycle.DocumentID) (*lifecycle.Document[T], error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, payload_json, status, version, is_locked, lock_type,
		       approval_json, created_by_id, created_by_name, created_by_role,
		       created_at, updated_at
		FROM documents WHERE id = $1`, string(id))

	doc, err := scanDoc[T](row)
	if err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store[T]) List(ctx context.Context) ([]*lifecycle.Document[T], error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, payload_json, status, version, is_locked, lock_type,
		       approval_json, created_by_id, created_by_name, created_by_role,
		       created_at, updated_at
		FROM documents WHERE kind = $1 ORDER BY created_at, id`, s.kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*lifecycle.Document[T]
	for rows.Next() {
		doc, err := scanDoc[T](rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := s.loadHistory(ctx, doc); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *Store[T]) Delete(ctx context.Context, id lifecycle.DocumentID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, string(id))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return lifecycle.ErrDocumentNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM document_versions WHERE document_id = $1`, string(id))
		return err
	})
}

func (s *Store[T]) loadHistory(ctx context.Context, doc *lifecycle.Document[T]) error {
	rows, err := s.pool.Query(ctx, `
		SELECT version, payload_json, lock_type, actor_id, actor_name,
		       actor_role, note, taken_at
		FROM document_versions WHERE document_id = $1 ORDER BY version`,
		string(doc.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e           lifecycle.VersionEntry[T]
			payloadJSON []byte
			lockType    string
			role        string
		)
		if err := rows.Scan(&e.Version, &payloadJSON, &lockType,
			&e.Actor.ID, &e.Actor.Name, &role, &e.Note, &e.TakenAt); err != nil {
			return err
		}
		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return err
		}
		e.LockType = lifecycle.LockType(lockType)
		e.Actor.Role = lifecycle.Role(role)
		doc.History = append(doc.History, e)
	}
	return rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store[T]) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func marshalDoc[T any](doc *lifecycle.Document[T]) (payload, approval []byte, err error) {
	payload, err = json.Marshal(doc.Payload)
	if err != nil {
		return nil, nil, err
	}
	if doc.Approval != nil {
		approval, err = json.Marshal(doc.Approval)
		if err != nil {
			return nil, nil, err
		}
	}
	return payload, approval, nil
}

func scanDoc[T any](row pgx.Row) (*lifecycle.Document[T], error) {
	var (
		doc          lifecycle.Document[T]
		idStr        string
		payloadJSON  []byte
		status       string
		lockType     string
		approvalJSON []byte
		role         string
	)
	err := row.Scan(&idStr, &payloadJSON, &status, &doc.Version, &doc.IsLocked,
		&lockType, &approvalJSON, &doc.CreatedBy.ID, &doc.CreatedBy.Name, &role,
		&doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.ID = lifecycle.DocumentID(idStr)
	doc.Status = lifecycle.Status(status)
	doc.LockType = lifecycle.LockType(lockType)
	doc.CreatedBy.Role = lifecycle.Role(role)
	if err := json.Unmarshal(payloadJSON, &doc.Payload); err != nil {
		return nil, err
	}
	if len(approvalJSON) > 0 {
		doc.Approval = &lifecycle.Approval{}
		if err := json.Unmarshal(approvalJSON, doc.Approval); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}
