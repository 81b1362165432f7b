// Package transcript reconciles the two concurrently-arriving text streams
// of a live conversation (user speech-to-text and model speech-to-text) into
// a turn-based history.
package transcript

import (
	"strings"
	"sync"
)

// Roles for committed entries.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// DefaultHistoryLimit bounds the committed history to the most recent turns'
// entries. The short window is deliberate; tune it via WithHistoryLimit.
const DefaultHistoryLimit = 2

// Entry is one committed utterance.
type Entry struct {
	Text string
	Role string
}

// Reconciler accumulates per-turn text for both roles and commits it into a
// bounded history on turn boundaries. Appends happen only from the session's
// inbound-dispatch path; snapshot methods are safe from any goroutine.
type Reconciler struct {
	mu      sync.Mutex
	user    strings.Builder
	model   strings.Builder
	history []Entry
	limit   int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithHistoryLimit overrides the committed-history bound.
func WithHistoryLimit(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.limit = n
		}
	}
}

// NewReconciler creates a reconciler with an empty history.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{limit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AppendUser appends an incremental fragment of the user's current utterance.
func (r *Reconciler) AppendUser(text string) {
	r.mu.Lock()
	r.user.WriteString(text)
	r.mu.Unlock()
}

// AppendModel appends an incremental fragment of the model's current utterance.
func (r *Reconciler) AppendModel(text string) {
	r.mu.Lock()
	r.model.WriteString(text)
	r.mu.Unlock()
}

// Live returns the uncommitted accumulator contents for both roles.
func (r *Reconciler) Live() (user, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user.String(), r.model.String()
}

// ActiveUtterance returns the text for the single live-display slot: model
// text wins when non-empty, otherwise user text. The two are never shown
// concatenated.
func (r *Reconciler) ActiveUtterance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model.Len() > 0 {
		return r.model.String()
	}
	return r.user.String()
}

// CommitTurn commits both non-empty accumulators into the history — user
// entry first, then model — truncates the history to the bound, and clears
// the accumulators. Committing with both buffers empty is a no-op. This is
// the only path that appends to the history.
func (r *Reconciler) CommitTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u := r.user.String(); u != "" {
		r.history = append(r.history, Entry{Text: u, Role: RoleUser})
	}
	if m := r.model.String(); m != "" {
		r.history = append(r.history, Entry{Text: m, Role: RoleModel})
	}
	if len(r.history) > r.limit {
		r.history = append(r.history[:0], r.history[len(r.history)-r.limit:]...)
	}
	r.user.Reset()
	r.model.Reset()
}

// History returns a snapshot of the committed entries, oldest first.
func (r *Reconciler) History() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.history))
	copy(out, r.history)
	return out
}

// ClearLive discards both accumulators without touching the history. Used on
// session teardown: committed turns survive a stop/start cycle.
func (r *Reconciler) ClearLive() {
	r.mu.Lock()
	r.user.Reset()
	r.model.Reset()
	r.mu.Unlock()
}

// Reset clears everything, history included. Only an explicit conversation
// reset takes this path; session stop never does.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.user.Reset()
	r.model.Reset()
	r.history = nil
	r.mu.Unlock()
}
