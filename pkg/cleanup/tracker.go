package cleanup

import (
	"sort"
	"sync"

	"github.com/marmos91/screening-e2e/internal/logger"
)

// Journal persists tracked entities so they can be swept after a crash.
// Journal errors are logged and never fail tracking.
type Journal interface {
	Append(identifier string, e Entity) error
	Forget(identifier string) error
}

// EntityTracker records the remote entities created under each cleanup
// identifier. It is safe for concurrent use.
type EntityTracker struct {
	mu       sync.RWMutex
	entities map[string]map[Kind][]Entity
	journal  Journal
}

// TrackerOption configures an EntityTracker.
type TrackerOption func(*EntityTracker)

// WithJournal mirrors every tracked entity into j.
func WithJournal(j Journal) TrackerOption {
	return func(t *EntityTracker) {
		t.journal = j
	}
}

// NewEntityTracker creates an empty tracker.
func NewEntityTracker(opts ...TrackerOption) *EntityTracker {
	t := &EntityTracker{
		entities: make(map[string]map[Kind][]Entity),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records e under identifier. Entities with an empty ID are ignored.
// Tracking the same entity twice records it twice; the executor treats the
// second delete as not-found.
func (t *EntityTracker) Track(identifier string, e Entity) {
	if e.ID == "" {
		logger.Warn("Ignoring entity without id",
			logger.KeyIdentifier, identifier,
			logger.KeyEntityKind, string(e.Kind))
		return
	}

	t.mu.Lock()
	byKind, ok := t.entities[identifier]
	if !ok {
		byKind = make(map[Kind][]Entity)
		t.entities[identifier] = byKind
	}
	byKind[e.Kind] = append(byKind[e.Kind], e)
	t.mu.Unlock()

	logger.Debug("📝 Tracked entity",
		logger.KeyIdentifier, identifier,
		logger.KeyEntityKind, string(e.Kind),
		logger.KeyEntityID, e.ID,
		logger.KeyEntityLabel, e.Label)

	if t.journal != nil {
		if err := t.journal.Append(identifier, e); err != nil {
			logger.Warn("Failed to journal tracked entity",
				logger.KeyIdentifier, identifier,
				logger.KeyEntityID, e.ID,
				logger.KeyError, err)
		}
	}
}

// TrackUser records a user created under identifier.
func (t *EntityTracker) TrackUser(identifier, id, email string) {
	t.Track(identifier, User(id, email))
}

// TrackApplication records an application created under identifier.
func (t *EntityTracker) TrackApplication(identifier, id, name string) {
	t.Track(identifier, Application(id, name))
}

// TrackSession records a session created under identifier.
func (t *EntityTracker) TrackSession(identifier, id string) {
	t.Track(identifier, Session(id))
}

// Status returns per-kind counts for identifier. Unknown identifiers report
// zero counts.
func (t *EntityTracker) Status(identifier string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Status
	for k, list := range t.entities[identifier] {
		s.add(k, len(list))
	}
	return s
}

// Entities returns a copy of the entities tracked under identifier in
// deletion order.
func (t *EntityTracker) Entities(identifier string) []Entity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byKind := t.entities[identifier]
	var out []Entity
	for _, k := range deletionOrder {
		out = append(out, byKind[k]...)
	}
	return out
}

// All returns every tracked entity across all identifiers, grouped by kind.
func (t *EntityTracker) All() map[Kind][]Entity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Kind][]Entity)
	for _, byKind := range t.entities {
		for k, list := range byKind {
			out[k] = append(out[k], list...)
		}
	}
	return out
}

// Identifiers returns the identifiers that currently hold entities, sorted.
func (t *EntityTracker) Identifiers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.entities))
	for id, byKind := range t.entities {
		for _, list := range byKind {
			if len(list) > 0 {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Clear forgets everything tracked under identifier.
func (t *EntityTracker) Clear(identifier string) {
	t.mu.Lock()
	delete(t.entities, identifier)
	t.mu.Unlock()

	if t.journal != nil {
		if err := t.journal.Forget(identifier); err != nil {
			logger.Warn("Failed to clear journal entries",
				logger.KeyIdentifier, identifier,
				logger.KeyError, err)
		}
	}
}

// keepJournaled records ents in the journal again after Clear, so a later
// sweep can retry deletes that failed. The in-memory tracker is untouched.
func (t *EntityTracker) keepJournaled(identifier string, ents []Entity) {
	if t.journal == nil {
		return
	}
	for _, e := range ents {
		if err := t.journal.Append(identifier, e); err != nil {
			logger.Warn("Failed to keep failed delete in journal",
				logger.KeyIdentifier, identifier,
				logger.KeyEntityID, e.ID,
				logger.KeyError, err)
		}
	}
}
