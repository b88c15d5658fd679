package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/mock-interviewer/internal/interview"
)

// entry is one live session plus the configuration it was created with. mu
// serializes actions on the session: one request runs to completion,
// provider round-trip included, before the next one starts.
type entry struct {
	mu         sync.Mutex
	session    *interview.Session
	controller *interview.Controller
	profile    interview.Profile
	model      string
	models     []string
	lastSeen   time.Time
}

// Registry owns all live sessions. Sessions never share state, the registry
// lock only guards the map itself.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (r *Registry) add(e *entry) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	e.session = interview.NewSession(id)
	e.lastSeen = r.now()
	r.entries[id] = e

	return id
}

func (r *Registry) get(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if ok {
		e.lastSeen = r.now()
	}
	return e, ok
}

func (r *Registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Sweep drops sessions idle for longer than ttl and returns how many were dropped.
func (r *Registry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	dropped := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
