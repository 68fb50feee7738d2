package handler

import (
	"errors"
	"sync"
	"time"
)

// ActionState is where a user action on one entity currently stands.
// Destructive actions go idle -> confirming -> submitting -> idle; plain
// actions skip the confirming step.
type ActionState int

const (
	ActionIdle ActionState = iota
	ActionConfirming
	ActionSubmitting
)

func (s ActionState) String() string {
	switch s {
	case ActionIdle:
		return "idle"
	case ActionConfirming:
		return "confirming"
	case ActionSubmitting:
		return "submitting"
	}
	return "unknown"
}

var (
	ErrActionInProgress  = errors.New("action already in progress")
	ErrNotConfirmed      = errors.New("action was not confirmed")
	ErrInvalidTransition = errors.New("invalid action transition")
)

type actionEntry struct {
	state ActionState
	since time.Time
}

// ActionTracker serializes actions per (user, action, entity) key. Two
// requests for the same key cannot both be submitting; different keys never
// block each other.
type ActionTracker struct {
	mu      sync.Mutex
	entries map[string]actionEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewActionTracker returns a tracker whose pending confirmations lapse back
// to idle after ttl.
func NewActionTracker(ttl time.Duration) *ActionTracker {
	return &ActionTracker{
		entries: make(map[string]actionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func ActionKey(userID, action, entityID string) string {
	return userID + "|" + action + "|" + entityID
}

// State returns the current state for key.
func (t *ActionTracker) State(key string) ActionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current(key)
}

// current must be called with mu held.
func (t *ActionTracker) current(key string) ActionState {
	e, ok := t.entries[key]
	if !ok {
		return ActionIdle
	}
	if e.state == ActionConfirming && t.now().Sub(e.since) > t.ttl {
		delete(t.entries, key)
		return ActionIdle
	}
	return e.state
}

// Request opens the confirmation step. Asking again while confirming is
// allowed and restarts the timer.
func (t *ActionTracker) Request(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current(key) == ActionSubmitting {
		return ErrActionInProgress
	}
	t.entries[key] = actionEntry{state: ActionConfirming, since: t.now()}
	return nil
}

// Cancel abandons a pending confirmation.
func (t *ActionTracker) Cancel(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.current(key) {
	case ActionConfirming:
		delete(t.entries, key)
		return nil
	case ActionSubmitting:
		return ErrActionInProgress
	}
	return ErrInvalidTransition
}

// Submit moves a confirmed action to submitting. The caller must call
// Finish when the remote call returns.
func (t *ActionTracker) Submit(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.current(key) {
	case ActionConfirming:
		t.entries[key] = actionEntry{state: ActionSubmitting, since: t.now()}
		return nil
	case ActionSubmitting:
		return ErrActionInProgress
	}
	return ErrNotConfirmed
}

// Begin starts an action that needs no confirmation.
func (t *ActionTracker) Begin(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.current(key) {
	case ActionIdle:
		t.entries[key] = actionEntry{state: ActionSubmitting, since: t.now()}
		return nil
	case ActionSubmitting:
		return ErrActionInProgress
	}
	return ErrInvalidTransition
}

// Finish returns key to idle, whatever the outcome of the remote call.
func (t *ActionTracker) Finish(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Cleanup drops confirmations that have lapsed.
func (t *ActionTracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.entries {
		t.current(key)
	}
}
