package wizard

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Manager owns one Wizard per session. Sessions share the store, hooks and
// validator of the template options and persist under StorageKeyFor(id).
type Manager struct {
	mu       sync.Mutex
	opts     Options
	sessions map[string]*Wizard
}

// NewManager builds a session manager. SessionID and StorageKey of opts are
// ignored.
func NewManager(opts Options) *Manager {
	if opts.Validator == nil {
		opts.Validator = NewRuleValidator(opts.Translator)
	}
	if opts.Store == nil {
		opts.Store = NewInMemorySnapshotStore()
	}
	opts.Telemetry = NormalizeTelemetry(opts.Telemetry)
	opts.SessionID = ""
	opts.StorageKey = ""
	return &Manager{opts: opts, sessions: make(map[string]*Wizard)}
}

// Create starts a new session with a random id.
func (m *Manager) Create(ctx context.Context) *Wizard {
	w, _ := m.Open(ctx, uuid.NewString())
	return w
}

// Open returns the live wizard of session, restoring it from the store on
// first access.
func (m *Manager) Open(ctx context.Context, session string) (*Wizard, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, ErrSessionRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.sessions[session]; ok {
		return w, nil
	}
	opts := m.opts
	opts.SessionID = session
	w := New(ctx, opts)
	m.sessions[session] = w
	m.opts.Telemetry.Record(ctx, "wizard.session.open", map[string]any{"session": session})
	return w, nil
}

// Get returns a live session without touching the store.
func (m *Manager) Get(session string) (*Wizard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[session]
	return w, ok
}

// Close waits for pending encodes and drops the session from memory. The
// snapshot stays in the store.
func (m *Manager) Close(session string) {
	m.mu.Lock()
	w, ok := m.sessions[session]
	delete(m.sessions, session)
	m.mu.Unlock()
	if ok {
		w.Wait()
	}
}

// Discard drops the session and deletes its snapshot.
func (m *Manager) Discard(ctx context.Context, session string) error {
	session = strings.TrimSpace(session)
	if session == "" {
		return ErrSessionRequired
	}
	m.Close(session)
	return NewPersistenceAdapter(m.opts.Store, StorageKeyFor(session), m.opts.Logger).Clear(ctx)
}

// Sessions lists live sessions plus, when the store can enumerate keys,
// persisted ones.
func (m *Manager) Sessions(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	m.mu.Lock()
	for id := range m.sessions {
		seen[id] = true
	}
	m.mu.Unlock()
	if lister, ok := m.opts.Store.(SnapshotLister); ok {
		prefix := DefaultStorageKey + ":"
		keys, err := lister.Keys(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			seen[strings.TrimPrefix(key, prefix)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Wait blocks until every live session finished its pending encodes.
func (m *Manager) Wait() {
	m.mu.Lock()
	live := make([]*Wizard, 0, len(m.sessions))
	for _, w := range m.sessions {
		live = append(live, w)
	}
	m.mu.Unlock()
	for _, w := range live {
		w.Wait()
	}
}
