package store

import (
	"context"
	"sort"
	"sync"
)

// registry tracks the open connections of every Store in the process, per
// database path. Deletion uses it to find blocking connections; opens use it
// to wait while a deletion is pending.
type registry struct {
	mu  sync.Mutex
	dbs map[string]*dbEntry
}

type dbEntry struct {
	conns map[string]*Store

	// changed is closed (and replaced) every time a connection is released.
	changed chan struct{}

	// deleting is non-nil while a deletion is pending and is closed when it ends.
	deleting chan struct{}
}

var connections = &registry{dbs: make(map[string]*dbEntry)}

// entryLocked returns the entry for path, creating it. r.mu must be held.
func (r *registry) entryLocked(path string) *dbEntry {
	e, ok := r.dbs[path]
	if !ok {
		e = &dbEntry{
			conns:   make(map[string]*Store),
			changed: make(chan struct{}),
		}
		r.dbs[path] = e
	}
	return e
}

// gcLocked drops an entry nobody references. r.mu must be held.
func (r *registry) gcLocked(path string, e *dbEntry) {
	if len(e.conns) == 0 && e.deleting == nil {
		delete(r.dbs, path)
	}
}

// acquire registers connection id of s on path. It waits while a deletion
// of path is pending.
func (r *registry) acquire(ctx context.Context, path, id string, s *Store) error {
	for {
		r.mu.Lock()
		e := r.entryLocked(path)
		if e.deleting == nil {
			e.conns[id] = s
			r.mu.Unlock()
			return nil
		}
		pending := e.deleting
		r.mu.Unlock()

		select {
		case <-pending:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// release unregisters connection id. Releasing an unknown id is a no-op.
func (r *registry) release(path, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.dbs[path]
	if !ok {
		return
	}
	if _, ok := e.conns[id]; !ok {
		return
	}
	delete(e.conns, id)
	close(e.changed)
	e.changed = make(chan struct{})
	r.gcLocked(path, e)
}

// beginDelete marks path as being deleted and returns the connections open
// at that moment. Only one deletion per path runs at a time; later callers wait.
func (r *registry) beginDelete(ctx context.Context, path string) (map[string]*Store, error) {
	for {
		r.mu.Lock()
		e := r.entryLocked(path)
		if e.deleting == nil {
			e.deleting = make(chan struct{})
			open := make(map[string]*Store, len(e.conns))
			for id, s := range e.conns {
				open[id] = s
			}
			r.mu.Unlock()
			return open, nil
		}
		pending := e.deleting
		r.mu.Unlock()

		select {
		case <-pending:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// endDelete clears the pending deletion of path and wakes waiting opens.
func (r *registry) endDelete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.dbs[path]
	if !ok || e.deleting == nil {
		return
	}
	close(e.deleting)
	e.deleting = nil
	r.gcLocked(path, e)
}

// openIDs returns the sorted ids of connections open on path.
func (r *registry) openIDs(path string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.dbs[path]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(e.conns))
	for id := range e.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// awaitIdle blocks until no connection is open on path. It returns early with
// idle=false when stop is closed, and with ctx.Err() when ctx ends.
// A nil stop never fires.
func (r *registry) awaitIdle(ctx context.Context, path string, stop <-chan struct{}) (bool, error) {
	for {
		r.mu.Lock()
		e, ok := r.dbs[path]
		if !ok || len(e.conns) == 0 {
			r.mu.Unlock()
			return true, nil
		}
		changed := e.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-stop:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
