package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/document-engine/lifecycle"
	memstore "github.com/warp/document-engine/lifecycle/store"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

type sheet struct {
	Title  string
	Amount int
}

var (
	author   = lifecycle.Actor{ID: "u-1", Name: "Tanaka", Role: lifecycle.RoleSales}
	fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
)

func newStore(t *testing.T) *lifecycle.VersionedStore[sheet] {
	t.Helper()
	return lifecycle.NewVersionedStore[sheet](memstore.NewMemory[sheet]()).
		WithClock(func() time.Time { return fixedNow })
}

func mustCreate(t *testing.T, s *lifecycle.VersionedStore[sheet], payload sheet) *lifecycle.Document[sheet] {
	t.Helper()
	doc, err := s.Create(context.Background(), payload, author)
	require.NoError(t, err)
	return doc
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreate_SeedsVersionOne(t *testing.T) {
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Title: "plan A", Amount: 100})

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 1, doc.Version)
	assert.False(t, doc.IsLocked)
	require.Len(t, doc.History, 1)
	assert.Equal(t, "created", doc.History[0].Note)
	assert.Equal(t, author, doc.History[0].Actor)
}

// =============================================================================
// VERSION MONOTONICITY
// =============================================================================

func TestVersions_MonotonicWithNoGaps(t *testing.T) {
	// GIVEN: A document going through N versioning operations
	// THEN: History versions are exactly 1..1+N, in order, no gaps

	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Title: "plan A", Amount: 100})

	_, err := s.Lock(ctx, doc.ID, lifecycle.LockContractSigned, author, "signed")
	require.NoError(t, err)
	_, err = s.Unlock(ctx, doc.ID)
	require.NoError(t, err)
	_, err = s.CreateNewVersion(ctx, doc.ID, sheet{Title: "plan A rev", Amount: 120}, author)
	require.NoError(t, err)
	got, err := s.RestoreVersion(ctx, doc.ID, 1, author)
	require.NoError(t, err)

	require.Len(t, got.History, 4)
	for i, e := range got.History {
		if e.Version != i+1 {
			t.Fatalf("history[%d].Version = %d, want %d", i, e.Version, i+1)
		}
	}
	assert.Equal(t, 4, got.Version)
}

func TestUpdate_DoesNotCreateVersion(t *testing.T) {
	// Routine edits are transient: payload changes, version does not.
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Title: "plan A", Amount: 100})

	got, err := s.Update(ctx, doc.ID, func(p *sheet) { p.Amount = 250 })
	require.NoError(t, err)

	assert.Equal(t, 250, got.Payload.Amount)
	assert.Equal(t, 1, got.Version)
	assert.Len(t, got.History, 1)
	// The v1 snapshot still holds the original payload.
	assert.Equal(t, 100, got.History[0].Payload.Amount)
}

// =============================================================================
// LOCKING
// =============================================================================

func TestLock_FreezesPayload(t *testing.T) {
	// GIVEN: A locked document
	// WHEN: Any payload mutation is attempted
	// THEN: Every attempt is rejected and the stored state is unchanged

	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Title: "plan A", Amount: 100})

	locked, err := s.Lock(ctx, doc.ID, lifecycle.LockFinalPlan, author, "final")
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	assert.Equal(t, lifecycle.LockFinalPlan, locked.LockType)
	assert.Equal(t, lifecycle.LockFinalPlan, locked.CurrentEntry().LockType)

	_, err = s.Update(ctx, doc.ID, func(p *sheet) { p.Amount = 999 })
	assert.ErrorIs(t, err, lifecycle.ErrDocumentLocked)

	_, err = s.CreateNewVersion(ctx, doc.ID, sheet{Amount: 999}, author)
	assert.ErrorIs(t, err, lifecycle.ErrDocumentLocked)

	_, err = s.RestoreVersion(ctx, doc.ID, 1, author)
	assert.ErrorIs(t, err, lifecycle.ErrDocumentLocked)

	_, err = s.Lock(ctx, doc.ID, lifecycle.LockManual, author, "again")
	assert.ErrorIs(t, err, lifecycle.ErrDocumentLocked)

	got, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Payload.Amount)
	assert.Equal(t, 2, got.Version)
}

func TestLock_ErrorIdentifiesLockType(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Title: "plan A"})

	_, err := s.Lock(ctx, doc.ID, lifecycle.LockContractSigned, author, "")
	require.NoError(t, err)

	_, err = s.Update(ctx, doc.ID, func(p *sheet) {})
	var lockErr *lifecycle.LockedError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, doc.ID, lockErr.ID)
	assert.Equal(t, lifecycle.LockContractSigned, lockErr.LockType)
}

func TestLock_DefaultsToManual(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{})

	locked, err := s.Lock(ctx, doc.ID, lifecycle.LockNone, author, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.LockManual, locked.LockType)
}

func TestUnlock_AllowsEditingAgain(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Amount: 100})

	locked, err := s.Lock(ctx, doc.ID, lifecycle.LockManual, author, "")
	require.NoError(t, err)

	unlocked, err := s.Unlock(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)
	assert.Equal(t, lifecycle.LockNone, unlocked.LockType)
	// Unlock is not a versioning operation.
	assert.Equal(t, locked.Version, unlocked.Version)

	_, err = s.Update(ctx, doc.ID, func(p *sheet) { p.Amount = 200 })
	assert.NoError(t, err)
}

func TestUnlock_NoOpWhenNotLocked(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{})

	got, err := s.Unlock(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLocked)
	assert.Equal(t, 1, got.Version)
}

// =============================================================================
// RESTORE
// =============================================================================

func TestRestore_AppendsForwardOnly(t *testing.T) {
	// GIVEN: A document with versions 1 (amount 100) and 2 (amount 200)
	// WHEN: Restoring version 1
	// THEN: A NEW version 3 appears carrying the v1 payload; v2 is untouched

	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Title: "plan A", Amount: 100})

	_, err := s.CreateNewVersion(ctx, doc.ID, sheet{Title: "plan A", Amount: 200}, author)
	require.NoError(t, err)

	got, err := s.RestoreVersion(ctx, doc.ID, 1, author)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Version)
	assert.Equal(t, 100, got.Payload.Amount)
	assert.Equal(t, "restored from version 1", got.CurrentEntry().Note)

	v2, ok := got.EntryAt(2)
	require.True(t, ok)
	assert.Equal(t, 200, v2.Payload.Amount)
}

func TestRestore_UnknownVersionLeavesDocumentUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Amount: 100})

	_, err := s.RestoreVersion(ctx, doc.ID, 42, author)
	assert.ErrorIs(t, err, lifecycle.ErrVersionNotFound)

	got, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Len(t, got.History, 1)
}

// =============================================================================
// LOOKUP AND LISTING
// =============================================================================

func TestGet_UnknownDocument(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(context.Background(), "no-such-id")
	assert.True(t, lifecycle.IsNotFound(err))
}

func TestList_PreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	first := mustCreate(t, s, sheet{Title: "first"})
	second := mustCreate(t, s, sheet{Title: "second"})
	third := mustCreate(t, s, sheet{Title: "third"})

	docs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, first.ID, docs[0].ID)
	assert.Equal(t, second.ID, docs[1].ID)
	assert.Equal(t, third.ID, docs[2].ID)
}

func TestHistory_ReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	doc := mustCreate(t, s, sheet{Amount: 100})

	hist, err := s.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)

	hist[0].Note = "tampered"

	got, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "created", got.History[0].Note)
}
