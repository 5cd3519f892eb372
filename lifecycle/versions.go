/*
versions.go - Versioned document store

PURPOSE:
  VersionedStore is the source of truth for a document's payload and its
  immutable version history. Routine edits are transient; only locking,
  explicit new versions, and restores append history entries.

CRITICAL INVARIANTS:
  1. len(History) >= 1 always: creation seeds entry v1
  2. Version numbers strictly increase with no gaps
  3. A locked payload cannot change until explicitly unlocked
  4. History is forward-only: restore APPENDS, it never rewrites the past
  5. Every guard checks IsLocked first and rejects without partial writes

WHY LOCK?
  Locking is the checkpoint boundary. A contractually significant total
  ("what the customer signed") must never silently drift. Lock freezes
  the payload and tags the snapshot with the lock type; any later edit
  requires an explicit unlock, which is itself visible in the audit trail.

CORRECTIONS:
  A past version is never edited. To go back, RestoreVersion appends a
  new version whose payload is the historical snapshot, with a note
  recording where it came from. The full forward-only trail is preserved.

CONCURRENCY:
  Mutations to the same store are serialized with a mutex: each operation
  is a read-check-write that either fully applies or is rejected. With a
  database-backed Repository, Save additionally runs inside a single
  transaction (see store.go).

SEE ALSO:
  - types.go: Document and VersionEntry definitions
  - store.go: Repository interface
  - workflow.go: Approval state machine for documents carrying approvals
*/
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// VERSIONED STORE
// =============================================================================

type VersionedStore[T any] struct {
	repo  Repository[T]
	clock func() time.Time
	mu    sync.Mutex
}

func NewVersionedStore[T any](repo Repository[T]) *VersionedStore[T] {
	return &VersionedStore[T]{repo: repo, clock: time.Now}
}

// WithClock overrides the time source. For tests.
func (s *VersionedStore[T]) WithClock(clock func() time.Time) *VersionedStore[T] {
	s.clock = clock
	return s
}

// Create allocates an id, sets version=1, and seeds the history with one
// entry. The returned document is the persisted state.
func (s *VersionedStore[T]) Create(ctx context.Context, payload T, author Actor) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	doc := &Document[T]{
		ID:      DocumentID(uuid.NewString()),
		Payload: payload,
		Status:  StatusDraft,
		Version: 1,
		History: []VersionEntry[T]{{
			Version: 1,
			Payload: payload,
			Actor:   author,
			Note:    "created",
			TakenAt: now,
		}},
		CreatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns the document with its full history.
func (s *VersionedStore[T]) Get(ctx context.Context, id DocumentID) (*Document[T], error) {
	return s.repo.Get(ctx, id)
}

// List returns all documents.
func (s *VersionedStore[T]) List(ctx context.Context) ([]*Document[T], error) {
	return s.repo.List(ctx)
}

// History returns the ordered, read-only snapshot sequence for a document.
func (s *VersionedStore[T]) History(ctx context.Context, id DocumentID) ([]VersionEntry[T], error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]VersionEntry[T], len(doc.History))
	copy(out, doc.History)
	return out, nil
}

// Update applies a transient edit to the payload. Rejected if the document
// is locked. Bumps UpdatedAt but does NOT create a version entry: routine
// edits are not versioned, only lock and explicit new-version actions are.
func (s *VersionedStore[T]) Update(ctx context.Context, id DocumentID, mutate func(*T)) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, &LockedError{ID: id, LockType: doc.LockType}
	}

	mutate(&doc.Payload)
	doc.UpdatedAt = s.clock()
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Lock freezes the document at a checkpoint: increments the version,
// appends a history snapshot tagged with the lock type, and sets the lock
// flag. Rejected if already locked.
func (s *VersionedStore[T]) Lock(ctx context.Context, id DocumentID, lockType LockType, actor Actor, note string) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, &LockedError{ID: id, LockType: doc.LockType}
	}
	if lockType == LockNone {
		lockType = LockManual
	}

	now := s.clock()
	doc.Version++
	doc.IsLocked = true
	doc.LockType = lockType
	doc.History = append(doc.History, VersionEntry[T]{
		Version:  doc.Version,
		Payload:  doc.Payload,
		LockType: lockType,
		Actor:    actor,
		Note:     note,
		TakenAt:  now,
	})
	doc.UpdatedAt = now
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Unlock clears the lock flags. It does not alter the version or history,
// and is a no-op if the document is not locked.
func (s *VersionedStore[T]) Unlock(ctx context.Context, id DocumentID) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsLocked {
		return doc, nil
	}

	doc.IsLocked = false
	doc.LockType = LockNone
	doc.UpdatedAt = s.clock()
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateNewVersion replaces the current payload and appends a history
// snapshot with no lock tag. Rejected if the document is locked.
func (s *VersionedStore[T]) CreateNewVersion(ctx context.Context, id DocumentID, payload T, actor Actor) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendVersion(ctx, id, payload, actor, "")
}

// RestoreVersion appends a new version whose payload is the historical
// snapshot at targetVersion, with a note recording the origin. Returns
// ErrVersionNotFound (document unchanged) if the version was never
// recorded, and rejects locked documents like any other payload mutation.
func (s *VersionedStore[T]) RestoreVersion(ctx context.Context, id DocumentID, targetVersion int, actor Actor) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entry, ok := doc.EntryAt(targetVersion)
	if !ok {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, id, targetVersion)
	}
	note := fmt.Sprintf("restored from version %d", targetVersion)
	return s.appendVersion(ctx, id, entry.Payload, actor, note)
}

// appendVersion is the shared body of CreateNewVersion and RestoreVersion.
// Caller holds the store mutex.
func (s *VersionedStore[T]) appendVersion(ctx context.Context, id DocumentID, payload T, actor Actor, note string) (*Document[T], error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, &LockedError{ID: id, LockType: doc.LockType}
	}

	now := s.clock()
	doc.Version++
	doc.Payload = payload
	doc.History = append(doc.History, VersionEntry[T]{
		Version: doc.Version,
		Payload: payload,
		Actor:   actor,
		Note:    note,
		TakenAt: now,
	})
	doc.UpdatedAt = now
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Mutate applies fn to the whole document under the store lock and saves
// the result. Used by workflow services that manage approval state
// alongside the payload; fn must not modify the payload (use Update).
func (s *VersionedStore[T]) Mutate(ctx context.Context, id DocumentID, fn func(*Document[T]) error) (*Document[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	doc.UpdatedAt = s.clock()
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete hard-removes a document. Callers are responsible for guarding
// deletion of locked or referenced records.
func (s *VersionedStore[T]) Delete(ctx context.Context, id DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Delete(ctx, id)
}
