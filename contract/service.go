/*
service.go - Contract approval service

PURPOSE:
  Orchestrates one contract document through the role-gated approval
  workflow. The service is the boundary the engine deliberately leaves
  open: it verifies the actor's role against the current state, enforces
  the mandatory comment on returns, and keeps the document's status in
  sync with its approval record. The state machine underneath only
  enforces topology.

TRANSACTIONAL SHAPE:
  Every operation is a single read-check-write through the store's
  Mutate, so a rejected transition leaves the document untouched and two
  concurrent callers cannot both pass the same guard.

DELETION:
  Contracts are hard-removed, but never while locked: a locked contract
  is the signed financial checkpoint.

SEE ALSO:
  - lifecycle/workflow.go: The transition table and stamping rules
  - types.go: Role gating table
*/
package contract

import (
	"context"

	"github.com/warp/document-engine/lifecycle"
)

// Service manages contract documents and their approval lifecycle.
type Service struct {
	docs *lifecycle.VersionedStore[Payload]
	wf   *lifecycle.Workflow
}

func NewService(repo lifecycle.Repository[Payload], notifier lifecycle.Notifier) *Service {
	return &Service{
		docs: lifecycle.NewVersionedStore(repo),
		wf:   lifecycle.NewWorkflow(notifier),
	}
}

// Docs exposes the underlying versioned store. For tests and wiring.
func (s *Service) Docs() *lifecycle.VersionedStore[Payload] { return s.docs }

// Workflow exposes the state machine. For tests.
func (s *Service) Workflow() *lifecycle.Workflow { return s.wf }

// Create stores a new contract in the initial stage, authored by its
// creator.
func (s *Service) Create(ctx context.Context, p Payload, author lifecycle.Actor) (*Record, error) {
	doc, err := s.docs.Create(ctx, p, author)
	if err != nil {
		return nil, err
	}
	return s.docs.Mutate(ctx, doc.ID, func(d *Record) error {
		d.Approval = lifecycle.NewApproval()
		d.Status = d.Approval.Status
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id lifecycle.DocumentID) (*Record, error) {
	return s.docs.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Record, error) {
	return s.docs.List(ctx)
}

// Update applies a transient edit to the contract payload. Rejected while
// locked, like any payload mutation.
func (s *Service) Update(ctx context.Context, id lifecycle.DocumentID, mutate func(*Payload)) (*Record, error) {
	return s.docs.Update(ctx, id, mutate)
}

// Lock freezes the contract payload, typically at signing.
func (s *Service) Lock(ctx context.Context, id lifecycle.DocumentID, lockType lifecycle.LockType, actor lifecycle.Actor, note string) (*Record, error) {
	return s.docs.Lock(ctx, id, lockType, actor, note)
}

func (s *Service) Unlock(ctx context.Context, id lifecycle.DocumentID) (*Record, error) {
	return s.docs.Unlock(ctx, id)
}

func (s *Service) History(ctx context.Context, id lifecycle.DocumentID) ([]lifecycle.VersionEntry[Payload], error) {
	return s.docs.History(ctx, id)
}

// Actions returns the approval history log.
func (s *Service) Actions(ctx context.Context, id lifecycle.DocumentID) ([]lifecycle.ActionEntry, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Approval == nil {
		return nil, lifecycle.ErrNoApproval
	}
	out := make([]lifecycle.ActionEntry, len(doc.Approval.Actions))
	copy(out, doc.Approval.Actions)
	return out, nil
}

// Delete hard-removes a contract. Refused while locked.
func (s *Service) Delete(ctx context.Context, id lifecycle.DocumentID) error {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.IsLocked {
		return &lifecycle.LockedError{ID: id, LockType: doc.LockType}
	}
	return s.docs.Delete(ctx, id)
}

// =============================================================================
// WORKFLOW OPERATIONS
// =============================================================================

// Submit sends the contract forward out of Draft or Revision.
func (s *Service) Submit(ctx context.Context, id lifecycle.DocumentID, actor lifecycle.Actor) (*Record, error) {
	return s.transition(ctx, id, actor, func(a *lifecycle.Approval) error {
		return s.wf.Submit(ctx, id, a, actor)
	})
}

// Approve moves the contract forward one stage. Comment optional.
func (s *Service) Approve(ctx context.Context, id lifecycle.DocumentID, actor lifecycle.Actor, comment string) (*Record, error) {
	return s.transition(ctx, id, actor, func(a *lifecycle.Approval) error {
		return s.wf.Approve(ctx, id, a, actor, comment)
	})
}

// Return sends the contract back for correction. The comment is mandatory
// here at the boundary; the engine itself does not enforce it.
func (s *Service) Return(ctx context.Context, id lifecycle.DocumentID, actor lifecycle.Actor, comment string) (*Record, error) {
	if comment == "" {
		return nil, lifecycle.ErrCommentRequired
	}
	return s.transition(ctx, id, actor, func(a *lifecycle.Approval) error {
		return s.wf.Return(ctx, id, a, actor, comment)
	})
}

// transition runs one role-gated workflow step as a single
// read-check-write.
func (s *Service) transition(ctx context.Context, id lifecycle.DocumentID, actor lifecycle.Actor, step func(*lifecycle.Approval) error) (*Record, error) {
	return s.docs.Mutate(ctx, id, func(d *Record) error {
		if d.Approval == nil {
			return lifecycle.ErrNoApproval
		}
		if !roleAllowed(d.Approval.Status, actor.Role) {
			return lifecycle.ErrRoleNotPermitted
		}
		if err := step(d.Approval); err != nil {
			return err
		}
		d.Status = d.Approval.Status
		return nil
	})
}
