/*
Package lifecycle provides the core document lifecycle engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for managing
  versioned, lockable business documents. Whether the payload is a sales
  contract or a fund-plan cost sheet, the same engine handles version
  history, lock checkpoints, and the role-gated approval workflow.

KEY CONCEPTS IN THIS FILE (types.go):
  - Document[T]: A versioned, lockable record with an arbitrary payload
  - VersionEntry[T]: An immutable snapshot in a document's history
  - Actor: Who performed an operation (id, display name, role)
  - LockType: Why a document was frozen (contract signed, final plan, ...)

DESIGN PRINCIPLES:
  1. Immutability: History entries are never modified, only appended
  2. Monotonicity: Version numbers strictly increase with no gaps
  3. Type Safety: The payload type is a generic parameter, so contract
     code cannot accidentally receive a fund-plan document
  4. Auditability: Every snapshot carries actor, timestamp, and note

USAGE:
  store := lifecycle.NewVersionedStore[estimate.FundPlan](repo)
  doc, err := store.Create(ctx, plan, author)
  doc, err = store.Lock(ctx, doc.ID, lifecycle.LockContractSigned, signer, "signed 8/31")

SEE ALSO:
  - versions.go: VersionedStore operations and invariants
  - workflow.go: Approval state machine operating on Approval records
  - store.go: Repository persistence interface
*/
package lifecycle

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DocumentID string

// Role identifies what an actor is allowed to do in the approval workflow.
// Role gating lives at the service boundary (see contract package); the
// state machine itself only enforces topology.
type Role string

const (
	RoleSales    Role = "sales"    // authors documents, submits for review
	RoleReviewer Role = "reviewer" // signs off the document-review stage
	RoleManager  Role = "manager"  // signs off the manager-approval stage
	RoleAdmin    Role = "admin"    // permitted everywhere
)

// Actor is who performed an operation.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// =============================================================================
// LOCKING
// =============================================================================

// LockType records why a document was frozen. A locked document's payload
// cannot change until explicitly unlocked; the lock marks a legally or
// financially significant checkpoint (e.g. "what the customer signed").
type LockType string

const (
	LockNone           LockType = ""
	LockContractSigned LockType = "contract_signed"
	LockFinalPlan      LockType = "final_plan"
	LockManual         LockType = "manual"
)

// =============================================================================
// DOCUMENT - Versioned, lockable record
// =============================================================================

// VersionEntry is one immutable snapshot in a document's history.
type VersionEntry[T any] struct {
	Version  int
	Payload  T
	LockType LockType // lock type at time of snapshot, LockNone otherwise
	Actor    Actor
	Note     string
	TakenAt  time.Time
}

// Document is the unit managed by the engine.
//
// INVARIANTS:
//   - len(History) >= 1 at all times (creation produces entry v1)
//   - History version numbers are 1..Version with no gaps
//   - While IsLocked, Payload cannot change until Unlock
type Document[T any] struct {
	ID       DocumentID
	Payload  T
	Status   Status
	Version  int
	IsLocked bool
	LockType LockType
	History  []VersionEntry[T]

	// Approval is set for documents that go through the approval workflow
	// (contracts). Nil for documents that are only versioned and locked.
	Approval *Approval

	CreatedBy Actor
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentEntry returns the history entry for the document's current version.
func (d *Document[T]) CurrentEntry() VersionEntry[T] {
	return d.History[len(d.History)-1]
}

// EntryAt returns the history entry with the given version number.
func (d *Document[T]) EntryAt(version int) (VersionEntry[T], bool) {
	for _, e := range d.History {
		if e.Version == version {
			return e, true
		}
	}
	return VersionEntry[T]{}, false
}
