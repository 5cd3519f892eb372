/*
service.go - Fund-plan lifecycle service

PURPOSE:
  Wires the pure calculation engine to the versioned document store.
  Editors mutate cost-input fields as transient edits; totals are
  recomputed on every read; lock is the checkpoint that pins "what the
  customer signed" so later edits can be compared against it.

BASELINE DIFF:
  Totals finds the most recent LOCKED history snapshot, computes its
  grand total, and feeds it to the engine as LockedGrandTotal so that
  DiffFromLocked remains a pure function of the input record.

SEE ALSO:
  - engine.go: ComputeTotals
  - lifecycle/versions.go: The store operations delegated to here
*/
package estimate

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/lifecycle"
)

// Service manages fund-plan documents.
type Service struct {
	docs *lifecycle.VersionedStore[FundPlan]
}

func NewService(repo lifecycle.Repository[FundPlan]) *Service {
	return &Service{docs: lifecycle.NewVersionedStore(repo)}
}

// Docs exposes the underlying versioned store. For tests and wiring.
func (s *Service) Docs() *lifecycle.VersionedStore[FundPlan] { return s.docs }

// Create stores a new fund plan as version 1.
func (s *Service) Create(ctx context.Context, plan FundPlan, author lifecycle.Actor) (*lifecycle.Document[FundPlan], error) {
	return s.docs.Create(ctx, plan, author)
}

func (s *Service) Get(ctx context.Context, id lifecycle.DocumentID) (*lifecycle.Document[FundPlan], error) {
	return s.docs.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*lifecycle.Document[FundPlan], error) {
	return s.docs.List(ctx)
}

// Update applies a transient edit. Rejected while locked; does not version.
func (s *Service) Update(ctx context.Context, id lifecycle.DocumentID, mutate func(*FundPlan)) (*lifecycle.Document[FundPlan], error) {
	return s.docs.Update(ctx, id, mutate)
}

// Lock freezes the plan at a checkpoint (contract signing, final plan).
func (s *Service) Lock(ctx context.Context, id lifecycle.DocumentID, lockType lifecycle.LockType, actor lifecycle.Actor, note string) (*lifecycle.Document[FundPlan], error) {
	return s.docs.Lock(ctx, id, lockType, actor, note)
}

func (s *Service) Unlock(ctx context.Context, id lifecycle.DocumentID) (*lifecycle.Document[FundPlan], error) {
	return s.docs.Unlock(ctx, id)
}

func (s *Service) CreateNewVersion(ctx context.Context, id lifecycle.DocumentID, plan FundPlan, actor lifecycle.Actor) (*lifecycle.Document[FundPlan], error) {
	return s.docs.CreateNewVersion(ctx, id, plan, actor)
}

func (s *Service) RestoreVersion(ctx context.Context, id lifecycle.DocumentID, version int, actor lifecycle.Actor) (*lifecycle.Document[FundPlan], error) {
	return s.docs.RestoreVersion(ctx, id, version, actor)
}

func (s *Service) History(ctx context.Context, id lifecycle.DocumentID) ([]lifecycle.VersionEntry[FundPlan], error) {
	return s.docs.History(ctx, id)
}

// Delete hard-removes a plan. Refused while the plan is locked: a locked
// plan is a contractual checkpoint and must be unlocked deliberately first.
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

// Totals recomputes the derived record for the plan's current payload,
// using the most recent locked snapshot (if any) as the diff baseline.
func (s *Service) Totals(ctx context.Context, id lifecycle.DocumentID) (DerivedTotals, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return DerivedTotals{}, err
	}

	in := doc.Payload.Costs
	baseline, ok := lastLockedEntry(doc.History)
	if ok {
		in.LockedGrandTotal = ComputeTotals(baseline.Payload.Costs).GrandTotal
	}
	t := ComputeTotals(in)
	if !ok {
		// Nothing has been locked yet, so there is no baseline to differ from.
		t.DiffFromLocked = decimal.Zero
	}
	return t, nil
}

// lastLockedEntry returns the most recent history snapshot taken by a lock.
func lastLockedEntry(history []lifecycle.VersionEntry[FundPlan]) (lifecycle.VersionEntry[FundPlan], bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].LockType != lifecycle.LockNone {
			return history[i], true
		}
	}
	return lifecycle.VersionEntry[FundPlan]{}, false
}
