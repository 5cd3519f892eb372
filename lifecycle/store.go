/*
store.go - Persistence interface for documents

PURPOSE:
  Defines the interface between the lifecycle engine and the database.
  The engine has no ambient global state: a Repository is injected, so
  the core is trivially testable with the in-memory implementation.

KEY INTERFACE:
  Repository[T]: create/read/update/list/delete for Document[T]

HISTORY CONTRACT:
  Version history rows are APPEND-ONLY. Save may add history entries for
  versions the store has not seen, but implementations must never rewrite
  or remove an existing entry. Restore appends; it never edits the past.

ATOMICITY:
  Save persists the document row and any new history entries as one
  atomic write. Database-backed implementations wrap this in a single
  transaction so two concurrent callers cannot both observe an unlocked
  document and race to mutate it.

IMPLEMENTATIONS:
  - lifecycle/store/memory.go: In-memory for testing/dev
  - store/sqlite/sqlite.go:    Embedded SQLite
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - versions.go: VersionedStore, the engine built on this interface
*/
package lifecycle

import "context"

// Repository handles persistence of documents.
// Implementations must persist Save atomically (document + new history rows).
type Repository[T any] interface {
	// Insert persists a new document. Returns ErrDocumentExists if the id
	// is already taken.
	Insert(ctx context.Context, doc *Document[T]) error

	// Get returns the document with its full history, or ErrDocumentNotFound.
	Get(ctx context.Context, id DocumentID) (*Document[T], error)

	// Save replaces the document row and appends any history entries not
	// yet persisted. Existing history rows are never modified.
	Save(ctx context.Context, doc *Document[T]) error

	// List returns all documents, ordered by creation time.
	List(ctx context.Context) ([]*Document[T], error)

	// Delete hard-removes a document and its history. Guarding deletion
	// (e.g. refusing to delete locked records) is the caller's job.
	Delete(ctx context.Context, id DocumentID) error
}
