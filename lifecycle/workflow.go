/*
workflow.go - Approval state machine

PURPOSE:
  A finite set of document states and transition functions (submit,
  approve, return) operating on one approval record at a time. The
  machine enforces topology only: each state declares an optional next
  (forward) and optional prev (backward) target, and a transition is
  legal only if the table defines the requested direction. There is no
  generic "jump to any state".

STATE TOPOLOGY:
  Draft ──submit──▶ DocumentReview ──approve──▶ ManagerApproval ──approve──▶ Completed
                        │                           │
                      return                      return
                        ▼                           ▼
                     Revision ──submit──▶ DocumentReview ...

  Completed is terminal: it defines neither next nor prev, so every
  transition attempt against it fails.

ROLE GATING:
  Deliberately external. A caller must verify the actor's role against
  the CURRENT state before invoking a transition (see contract package).
  The machine is agnostic to role identity.

AUDIT:
  Every successful transition appends an ActionEntry, stamps the
  stage-specific signer fields, and emits a TransitionEvent to the
  Notifier so the collaborator can render a message. The machine does
  not format or deliver messages.

FAILURE SEMANTICS:
  Rejected transitions return an error value and leave the record
  unchanged. Nothing panics.

SEE ALSO:
  - errors.go: TransitionError and sentinels
  - contract/service.go: Role gating and comment enforcement boundary
  - notify: Notifier implementations
*/
package lifecycle

import (
	"context"
	"time"
)

// =============================================================================
// STATUS - Closed set of workflow states
// =============================================================================

type Status string

const (
	StatusDraft           Status = "draft"
	StatusRevision        Status = "revision"
	StatusDocumentReview  Status = "document_review"
	StatusManagerApproval Status = "manager_approval"
	StatusCompleted       Status = "completed"
)

// transition declares the legal directions out of a state.
type transition struct {
	next Status
	prev Status
	// hasNext/hasPrev make the zero Status unambiguous
	hasNext bool
	hasPrev bool
}

// transitions is the full table. A state absent from the table (or with
// both flags false) is terminal.
var transitions = map[Status]transition{
	StatusDraft:           {next: StatusDocumentReview, hasNext: true},
	StatusRevision:        {next: StatusDocumentReview, hasNext: true},
	StatusDocumentReview:  {next: StatusManagerApproval, hasNext: true, prev: StatusRevision, hasPrev: true},
	StatusManagerApproval: {next: StatusCompleted, hasNext: true, prev: StatusRevision, hasPrev: true},
	StatusCompleted:       {},
}

// Next returns the forward target, if the table defines one.
func (s Status) Next() (Status, bool) {
	t := transitions[s]
	return t.next, t.hasNext
}

// Prev returns the backward target, if the table defines one.
func (s Status) Prev() (Status, bool) {
	t := transitions[s]
	return t.prev, t.hasPrev
}

// Terminal reports whether no transition leaves this state.
func (s Status) Terminal() bool {
	t := transitions[s]
	return !t.hasNext && !t.hasPrev
}

// Submittable reports whether submit is legal from this state.
// Revision behaves like Draft for this purpose.
func (s Status) Submittable() bool {
	return s == StatusDraft || s == StatusRevision
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// =============================================================================
// APPROVAL RECORD
// =============================================================================

type Action string

const (
	ActionSubmitted Action = "submitted"
	ActionApproved  Action = "approved"
	ActionReturned  Action = "returned"
)

// ActionEntry is one row in the approval history log.
type ActionEntry struct {
	Action    Action
	ActorID   string
	ActorName string
	From      Status
	To        Status
	Comment   string
	At        time.Time
}

// Signoffs carries the stage-specific signer stamps so the record has an
// auditable signer per stage, not just a generic actor.
type Signoffs struct {
	CheckedBy  string // set when leaving document review
	CheckedAt  *time.Time
	ApprovedBy string // set when leaving manager approval
	ApprovedAt *time.Time

	ReturnedBy    string
	ReturnedAt    *time.Time
	ReturnComment string
}

// Approval is the workflow state attached to a contract document.
type Approval struct {
	Status      Status
	ReturnCount int // incremented on every regression, repeated ones included
	Actions     []ActionEntry
	Signoffs    Signoffs
}

// NewApproval returns an approval record in the initial stage.
func NewApproval() *Approval {
	return &Approval{Status: StatusDraft}
}

// =============================================================================
// TRANSITION EVENTS - Output contract to the notification emitter
// =============================================================================

// TransitionEvent is emitted for every successful transition.
type TransitionEvent struct {
	DocumentID DocumentID
	From       Status
	To         Status
	ActorID    string
	ActorName  string
	Comment    string
}

// Notifier receives transition events and renders them into user-facing
// messages. Delivery transport is out of scope for the engine.
type Notifier interface {
	Notify(ctx context.Context, ev TransitionEvent)
}

// =============================================================================
// WORKFLOW - Transition operations
// =============================================================================

type Workflow struct {
	Notifier Notifier // optional
	Clock    func() time.Time
}

func NewWorkflow(n Notifier) *Workflow {
	return &Workflow{Notifier: n, Clock: time.Now}
}

func (w *Workflow) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now()
}

// Submit moves the record forward out of Draft (or Revision, which behaves
// like Draft). Appends a "submitted" history entry.
func (w *Workflow) Submit(ctx context.Context, docID DocumentID, a *Approval, actor Actor) error {
	if !a.Status.Submittable() {
		return &TransitionError{Op: "submit", From: a.Status}
	}
	next, ok := a.Status.Next()
	if !ok {
		return &TransitionError{Op: "submit", From: a.Status}
	}
	w.apply(ctx, docID, a, ActionSubmitted, next, actor, "")
	return nil
}

// Approve moves the record forward one stage from any non-terminal state
// that defines next, stamping the stage-specific signer field. The comment
// is optional.
func (w *Workflow) Approve(ctx context.Context, docID DocumentID, a *Approval, actor Actor, comment string) error {
	next, ok := a.Status.Next()
	if !ok {
		return &TransitionError{Op: "approve", From: a.Status}
	}

	now := w.now()
	switch a.Status {
	case StatusDocumentReview:
		a.Signoffs.CheckedBy = actor.ID
		a.Signoffs.CheckedAt = &now
	case StatusManagerApproval:
		a.Signoffs.ApprovedBy = actor.ID
		a.Signoffs.ApprovedAt = &now
	}

	w.apply(ctx, docID, a, ActionApproved, next, actor, comment)
	return nil
}

// Return moves the record backward one stage, stamps the returner, and
// increments ReturnCount. Whether the comment is mandatory is enforced at
// the service boundary, not here.
func (w *Workflow) Return(ctx context.Context, docID DocumentID, a *Approval, actor Actor, comment string) error {
	prev, ok := a.Status.Prev()
	if !ok {
		return &TransitionError{Op: "return", From: a.Status}
	}

	now := w.now()
	a.Signoffs.ReturnedBy = actor.ID
	a.Signoffs.ReturnedAt = &now
	a.Signoffs.ReturnComment = comment
	a.ReturnCount++

	w.apply(ctx, docID, a, ActionReturned, prev, actor, comment)
	return nil
}

// apply records the transition and informs the notifier.
func (w *Workflow) apply(ctx context.Context, docID DocumentID, a *Approval, action Action, to Status, actor Actor, comment string) {
	from := a.Status
	a.Status = to
	a.Actions = append(a.Actions, ActionEntry{
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		From:      from,
		To:        to,
		Comment:   comment,
		At:        w.now(),
	})

	if w.Notifier != nil {
		w.Notifier.Notify(ctx, TransitionEvent{
			DocumentID: docID,
			From:       from,
			To:         to,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Comment:    comment,
		})
	}
}
