/*
Package sqlite provides a SQLite-backed implementation of the Repository
interface.

PURPOSE:
  Persists documents and their version history in an embedded database.
  The same schema and patterns apply to PostgreSQL (see store/postgres);
  only dialect details differ.

APPEND-ONLY ENFORCEMENT:
  Version history rows are written with INSERT OR IGNORE keyed on
  (document id, version): an existing snapshot is never updated, and no
  DELETE touches history except when the whole document is hard-removed.

ATOMICITY:
  Insert, Save, and Delete each run in a single database transaction, so
  a document row and its history rows can never diverge.

KEY TABLES:
  documents:          Current state (payload, status, version, lock flags,
                      approval record)
  document_versions:  Immutable payload snapshots

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  repo, err := sqlite.New[estimate.FundPlan]("./data/docs.db", "fund_plan")
  if err != nil { ... }
  defer repo.Close()
  svc := estimate.NewService(repo)

SEE ALSO:
  - lifecycle/store.go: Interface definition and contract
  - lifecycle/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/document-engine/lifecycle"
)

// Store implements lifecycle.Repository[T] on SQLite. Each store instance
// manages one document kind; several kinds can share a database file.
type Store[T any] struct {
	db   *sql.DB
	kind string
}

// New opens (and migrates) the database. Use ":memory:" for tests.
func New[T any](dbPath, kind string) (*Store[T], error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store[T]{db: db, kind: kind}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store[T]) Close() error { return s.db.Close() }

func (s *Store[T]) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL,
		is_locked INTEGER NOT NULL DEFAULT 0,
		lock_type TEXT NOT NULL DEFAULT '',
		approval_json TEXT,
		created_by_id TEXT NOT NULL,
		created_by_name TEXT NOT NULL,
		created_by_role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_kind_created
		ON documents(kind, created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_status
		ON documents(kind, status);

	-- Immutable payload snapshots. Never updated, never deleted except
	-- together with the owning document.
	CREATE TABLE IF NOT EXISTS document_versions (
		document_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		lock_type TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		taken_at TEXT NOT NULL,
		PRIMARY KEY (document_id, version)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store[T]) Insert(ctx context.Context, doc *lifecycle.Document[T]) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM documents WHERE id = ?`, string(doc.ID)).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return lifecycle.ErrDocumentExists
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.writeDocRow(ctx, tx, doc, true); err != nil {
		return err
	}
	if err := s.writeVersions(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store[T]) Save(ctx context.Context, doc *lifecycle.Document[T]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.writeDocRow(ctx, tx, doc, false); err != nil {
		return err
	}
	if err := s.writeVersions(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store[T]) writeDocRow(ctx context.Context, tx *sql.Tx, doc *lifecycle.Document[T], insert bool) error {
	payload, err := json.Marshal(doc.Payload)
	if err != nil {
		return err
	}
	var approval []byte
	if doc.Approval != nil {
		approval, err = json.Marshal(doc.Approval)
		if err != nil {
			return err
		}
	}

	if insert {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents
				(id, kind, payload_json, status, version, is_locked, lock_type,
				 approval_json, created_by_id, created_by_name, created_by_role,
				 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(doc.ID), s.kind, string(payload), string(doc.Status), doc.Version,
			boolToInt(doc.IsLocked), string(doc.LockType), nullable(approval),
			doc.CreatedBy.ID, doc.CreatedBy.Name, string(doc.CreatedBy.Role),
			doc.CreatedAt.Format(time.RFC3339Nano), doc.UpdatedAt.Format(time.RFC3339Nano))
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET payload_json = ?, status = ?, version = ?, is_locked = ?,
		    lock_type = ?, approval_json = ?, updated_at = ?
		WHERE id = ?`,
		string(payload), string(doc.Status), doc.Version, boolToInt(doc.IsLocked),
		string(doc.LockType), nullable(approval),
		doc.UpdatedAt.Format(time.RFC3339Nano), string(doc.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return lifecycle.ErrDocumentNotFound
	}
	return nil
}

// writeVersions appends any snapshots not yet persisted. INSERT OR IGNORE
// keeps existing history rows untouched.
func (s *Store[T]) writeVersions(ctx context.Context, tx *sql.Tx, doc *lifecycle.Document[T]) error {
	for _, e := range doc.History {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO document_versions
				(document_id, version, payload_json, lock_type,
				 actor_id, actor_name, actor_role, note, taken_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(doc.ID), e.Version, string(payload), string(e.LockType),
			e.Actor.ID, e.Actor.Name, string(e.Actor.Role), e.Note,
			e.TakenAt.Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[T]) Get(ctx context.Context, id lifecycle.DocumentID) (*lifecycle.Document[T], error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, payload_json, status, version, is_locked, lock_type,
		       approval_json, created_by_id, created_by_name, created_by_role,
		       created_at, updated_at
		FROM documents WHERE id = ?`, string(id))

	doc, err := s.scanDoc(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store[T]) List(ctx context.Context) ([]*lifecycle.Document[T], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload_json, status, version, is_locked, lock_type,
		       approval_json, created_by_id, created_by_name, created_by_role,
		       created_at, updated_at
		FROM documents WHERE kind = ? ORDER BY created_at, id`, s.kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*lifecycle.Document[T]
	for rows.Next() {
		doc, err := s.scanDoc(rows)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return lifecycle.ErrDocumentNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_versions WHERE document_id = ?`, string(id)); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store[T]) scanDoc(r rowScanner) (*lifecycle.Document[T], error) {
	var (
		doc         lifecycle.Document[T]
		idStr       string
		payloadJSON string
		status      string
		lockInt     int
		lockType    string
		approval    sql.NullString
		role        string
		createdAt   string
		updatedAt   string
	)
	err := r.Scan(&idStr, &payloadJSON, &status, &doc.Version, &lockInt, &lockType,
		&approval, &doc.CreatedBy.ID, &doc.CreatedBy.Name, &role,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, lifecycle.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.ID = lifecycle.DocumentID(idStr)
	doc.Status = lifecycle.Status(status)
	doc.IsLocked = lockInt != 0
	doc.LockType = lifecycle.LockType(lockType)
	doc.CreatedBy.Role = lifecycle.Role(role)
	if err := json.Unmarshal([]byte(payloadJSON), &doc.Payload); err != nil {
		return nil, err
	}
	if approval.Valid && approval.String != "" {
		doc.Approval = &lifecycle.Approval{}
		if err := json.Unmarshal([]byte(approval.String), doc.Approval); err != nil {
			return nil, err
		}
	}
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store[T]) loadHistory(ctx context.Context, doc *lifecycle.Document[T]) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, payload_json, lock_type, actor_id, actor_name,
		       actor_role, note, taken_at
		FROM document_versions WHERE document_id = ? ORDER BY version`,
		string(doc.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e           lifecycle.VersionEntry[T]
			payloadJSON string
			lockType    string
			role        string
			takenAt     string
		)
		if err := rows.Scan(&e.Version, &payloadJSON, &lockType,
			&e.Actor.ID, &e.Actor.Name, &role, &e.Note, &takenAt); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			return err
		}
		e.LockType = lifecycle.LockType(lockType)
		e.Actor.Role = lifecycle.Role(role)
		if e.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
			return err
		}
		doc.History = append(doc.History, e)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
