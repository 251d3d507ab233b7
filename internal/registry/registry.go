// Package registry manages the fleet of concurrent PTY sessions: ID
// allocation, lookup, a "legacy" singleton slot, and a tagged event bus
// republishing each session's events with its terminal ID attached.
//
// Unlike the teacher, which has one agent per daemon process and therefore
// no concurrent registry access, this server fields concurrent remote
// calls across many sessions with no single coordinating goroutine, so the
// registry is guarded by an explicit sync.Mutex throughout (see DESIGN.md).
package registry

import (
	"sort"
	"strconv"
	"sync"

	"ptyctl/internal/ptysession"
)

// LegacyID is the fixed ID of the optional legacy singleton session.
const LegacyID = "legacy"

// Event is a tagged variant republished by the registry, matching
// spec.md §9's {Data, Exit, Start, Created, Killed} shape with a terminal
// ID attached.
type Event struct {
	Kind       EventKind
	TerminalID string
	Data       []byte
	Code       int
	Signal     string
	Command    string
}

// EventKind tags an Event's variant.
type EventKind int

const (
	EventData EventKind = iota
	EventExit
	EventStart
	EventCreated
	EventKilled
)

// Summary is a listing row for one session.
type Summary struct {
	ID      string
	Command string
	Running bool
	Cols    int
	Rows    int
}

// Registry holds the fleet of sessions plus the optional legacy slot. The
// current focus is kept by remote.Dispatcher, not here.
type Registry struct {
	mu sync.Mutex

	sessions map[string]*ptysession.Session
	nextID   int

	legacy *ptysession.Session

	subscribers map[EventKind][]func(Event)
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		sessions:    make(map[string]*ptysession.Session),
		subscribers: make(map[EventKind][]func(Event)),
	}
}

// On registers handler for events of the given kind. Handlers must not block.
func (r *Registry) On(kind EventKind, handler func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[kind] = append(r.subscribers[kind], handler)
}

func (r *Registry) publish(ev Event) {
	r.mu.Lock()
	handlers := append([]func(Event){}, r.subscribers[ev.Kind]...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Create allocates the next ID, constructs and starts a session for recipe,
// attaches event forwarders, inserts it, emits created, and returns it.
func (r *Registry) Create(recipe ptysession.Recipe) (string, *ptysession.Session, error) {
	r.mu.Lock()
	r.nextID++
	id := strconv.Itoa(r.nextID)
	r.mu.Unlock()

	sess := ptysession.New(recipe)
	r.attachForwarders(id, sess)

	if err := sess.Start(); err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	r.publish(Event{Kind: EventCreated, TerminalID: id, Command: recipe.Command})
	return id, sess, nil
}

// SetLegacy starts a session for recipe and installs it as the legacy
// singleton.
func (r *Registry) SetLegacy(recipe ptysession.Recipe) (*ptysession.Session, error) {
	sess := ptysession.New(recipe)
	r.attachForwarders(LegacyID, sess)
	if err := sess.Start(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.legacy = sess
	r.mu.Unlock()
	r.publish(Event{Kind: EventCreated, TerminalID: LegacyID, Command: recipe.Command})
	return sess, nil
}

// Legacy returns the legacy session, or nil if none is installed.
func (r *Registry) Legacy() *ptysession.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.legacy
}

func (r *Registry) attachForwarders(id string, sess *ptysession.Session) {
	sess.Subscribe(func(ev ptysession.Event) {
		switch ev.Kind {
		case ptysession.EventData:
			r.publish(Event{Kind: EventData, TerminalID: id, Data: ev.Data})
		case ptysession.EventExit:
			r.publish(Event{Kind: EventExit, TerminalID: id, Code: ev.Code, Signal: ev.Signal})
		case ptysession.EventStart:
			r.publish(Event{Kind: EventStart, TerminalID: id})
		}
	})
}

// Get looks up a session by ID, checking the legacy slot too.
func (r *Registry) Get(id string) *ptysession.Session {
	if id == LegacyID {
		return r.Legacy()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Has reports whether any session (including legacy) is present.
func (r *Registry) Has() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions) > 0 || r.legacy != nil
}

// Count returns the number of non-legacy sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the current non-legacy session IDs, numerically sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idsLocked()
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, _ := strconv.Atoi(ids[i])
		nj, _ := strconv.Atoi(ids[j])
		return ni < nj
	})
	return ids
}

// LastID returns the largest numeric ID currently present, independent of
// allocation order, to survive out-of-order deletions. The bool is false
// if no non-legacy session exists.
func (r *Registry) LastID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.idsLocked()
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

// Kill requests termination of the session with id, removes it from the
// registry, and emits killed. Unknown IDs (and the legacy ID, which is not
// killable through Kill — only through the session's own Stop) return
// false.
func (r *Registry) Kill(id string) bool {
	if id == LegacyID {
		return false
	}
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	sess.Stop()
	r.publish(Event{Kind: EventKilled, TerminalID: id})
	return true
}

// KillAll stops and removes every non-legacy session.
func (r *Registry) KillAll() {
	for _, id := range r.IDs() {
		r.Kill(id)
	}
}

// List returns a listing row for every session, including legacy if
// installed.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	ids := r.idsLocked()
	legacy := r.legacy
	sessions := make(map[string]*ptysession.Session, len(r.sessions))
	for k, v := range r.sessions {
		sessions[k] = v
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(ids)+1)
	for _, id := range ids {
		out = append(out, summarize(id, sessions[id]))
	}
	if legacy != nil {
		out = append(out, summarize(LegacyID, legacy))
	}
	return out
}

func summarize(id string, sess *ptysession.Session) Summary {
	cols, rows := sess.GetSize()
	return Summary{
		ID:      id,
		Command: sess.Command(),
		Running: sess.IsRunning(),
		Cols:    cols,
		Rows:    rows,
	}
}
