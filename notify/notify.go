/*
Package notify provides Notifier implementations.

PURPOSE:
  The lifecycle engine emits a TransitionEvent for every successful
  workflow transition. This package renders those events: a structured
  log emitter for the server, and a recorder for tests. Delivery
  transport (mail, chat, push) is an external concern.
*/
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/warp/document-engine/lifecycle"
)

// =============================================================================
// LOG EMITTER - Renders transitions into the structured log
// =============================================================================

type LogEmitter struct {
	log zerolog.Logger
}

func NewLogEmitter(log zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Notify(_ context.Context, ev lifecycle.TransitionEvent) {
	e.log.Info().
		Str("document_id", string(ev.DocumentID)).
		Str("from", string(ev.From)).
		Str("to", string(ev.To)).
		Str("actor_id", ev.ActorID).
		Str("actor_name", ev.ActorName).
		Str("comment", ev.Comment).
		Msg("document transition")
}

// =============================================================================
// RECORDER - Test fake capturing every event
// =============================================================================

type Recorder struct {
	mu     sync.Mutex
	events []lifecycle.TransitionEvent
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(_ context.Context, ev lifecycle.TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []lifecycle.TransitionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lifecycle.TransitionEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
