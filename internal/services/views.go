package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// View is anything the registry can tear down
type View interface {
	Close()
}

// ViewRegistry keeps live page-view instances between requests.
//
// Each entry expires after ttl without access; expiry closes the view so
// late backend responses addressed to it are discarded. When limit views are
// live, storing another evicts the least recently used one.
type ViewRegistry[V View] struct {
	mu     sync.Mutex
	views  map[string]*viewEntry[V]
	ttl    time.Duration
	limit  int
	now    func() time.Time
	logger *slog.Logger
	stop   chan struct{}
	once   sync.Once
}

type viewEntry[V View] struct {
	view     V
	lastSeen time.Time
}

// NewViewRegistry creates a registry and starts its cleanup goroutine
func NewViewRegistry[V View](ttl time.Duration, limit int, logger *slog.Logger) *ViewRegistry[V] {
	r := newViewRegistry[V](ttl, limit, logger, time.Now)
	go r.cleanup(time.Minute)
	return r
}

func newViewRegistry[V View](ttl time.Duration, limit int, logger *slog.Logger, now func() time.Time) *ViewRegistry[V] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ViewRegistry[V]{
		views:  make(map[string]*viewEntry[V]),
		ttl:    ttl,
		limit:  limit,
		now:    now,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Put stores a view and returns its id
func (r *ViewRegistry[V]) Put(view V) string {
	id := uuid.NewString()

	r.mu.Lock()
	evicted := r.makeRoom()
	r.views[id] = &viewEntry[V]{view: view, lastSeen: r.now()}
	r.mu.Unlock()

	for _, old := range evicted {
		old.Close()
	}
	if len(evicted) > 0 {
		r.logger.Debug("views evicted to stay under limit", "count", len(evicted), "limit", r.limit)
	}
	return id
}

// makeRoom drops expired views, then the least recently used ones, until
// one more view fits. Callers hold r.mu and close the returned views.
func (r *ViewRegistry[V]) makeRoom() []V {
	if r.limit <= 0 || len(r.views) < r.limit {
		return nil
	}

	var evicted []V
	for id, entry := range r.views {
		if r.expired(entry) {
			evicted = append(evicted, entry.view)
			delete(r.views, id)
		}
	}
	for len(r.views) >= r.limit {
		var oldestID string
		var oldest *viewEntry[V]
		for id, entry := range r.views {
			if oldest == nil || entry.lastSeen.Before(oldest.lastSeen) {
				oldestID, oldest = id, entry
			}
		}
		evicted = append(evicted, oldest.view)
		delete(r.views, oldestID)
	}
	return evicted
}

// Get returns a live view and refreshes its expiry
func (r *ViewRegistry[V]) Get(id string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.views[id]
	if !ok || r.expired(entry) {
		var zero V
		return zero, false
	}
	entry.lastSeen = r.now()
	return entry.view, true
}

// Remove closes and forgets a view
func (r *ViewRegistry[V]) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if ok {
		entry.view.Close()
	}
}

// Len returns the number of tracked views, expired or not
func (r *ViewRegistry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep closes every expired view and returns how many were removed
func (r *ViewRegistry[V]) Sweep() int {
	var expired []V

	r.mu.Lock()
	for id, entry := range r.views {
		if r.expired(entry) {
			expired = append(expired, entry.view)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, view := range expired {
		view.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("expired views removed", "count", len(expired))
	}
	return len(expired)
}

// Close stops the cleanup goroutine and closes all views
func (r *ViewRegistry[V]) Close() {
	r.once.Do(func() { close(r.stop) })

	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*viewEntry[V])
	r.mu.Unlock()

	for _, entry := range views {
		entry.view.Close()
	}
}

func (r *ViewRegistry[V]) expired(entry *viewEntry[V]) bool {
	return r.ttl > 0 && r.now().Sub(entry.lastSeen) > r.ttl
}

// cleanup removes expired views periodically
func (r *ViewRegistry[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.stop:
			return
		}
	}
}
