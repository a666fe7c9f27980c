package web

import (
	"sync"
	"time"

	"github.com/vbonduro/floorplan/internal/editor"
)

// sessionEntry serialises requests against one editor session; the
// controller underneath is not safe for concurrent use.
type sessionEntry struct {
	mu      sync.Mutex
	sess    *editor.Session
	loadErr error

	// guarded by sessionRegistry.mu
	lastUsed time.Time
}

// sessionRegistry tracks the editor sessions opened over HTTP.
type sessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	now     func() time.Time
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{entries: make(map[string]*sessionEntry), now: time.Now}
}

func (r *sessionRegistry) add(sess *editor.Session, loadErr error) *sessionEntry {
	e := &sessionEntry{sess: sess, loadErr: loadErr}
	r.mu.Lock()
	e.lastUsed = r.now()
	r.entries[sess.ID] = e
	r.mu.Unlock()
	return e
}

// get looks a session up and marks it as used.
func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if ok {
		e.lastUsed = r.now()
	}
	return e, ok
}

func (r *sessionRegistry) remove(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	return e, ok
}

// removeArea drops every session open on areaID.
func (r *sessionRegistry) removeArea(areaID int64) []*sessionEntry {
	return r.removeWhere(func(e *sessionEntry) bool { return e.sess.AreaID == areaID })
}

// removeIdle drops every session last used before cutoff.
func (r *sessionRegistry) removeIdle(cutoff time.Time) []*sessionEntry {
	return r.removeWhere(func(e *sessionEntry) bool { return e.lastUsed.Before(cutoff) })
}

func (r *sessionRegistry) removeWhere(match func(*sessionEntry) bool) []*sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []*sessionEntry
	for id, e := range r.entries {
		if match(e) {
			removed = append(removed, e)
			delete(r.entries, id)
		}
	}
	return removed
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
