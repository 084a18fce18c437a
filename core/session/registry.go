package session

import (
	"context"
	"sync"
	"time"

	"github.com/edutracks/console/core"
)

type tab struct {
	store    *Store
	clientID string
	lastSeen time.Time
}

// Registry holds the in-memory session of every open tab. A tab's Store is created, from
// its client's durable storage, the first time the tab is seen; that is the tab's "process start".
type Registry struct {
	mu   sync.Mutex
	tabs map[string]*tab

	open    Opener
	logger  core.Logger
	nowFunc func() time.Time
}

func NewRegistry(open Opener, logger core.Logger) *Registry {
	return &Registry{
		tabs:    make(map[string]*tab),
		open:    open,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Store returns the session store of tabID, restoring it from clientID's storage if needed.
func (r *Registry) Store(ctx context.Context, tabID, clientID string) *Store {
	r.mu.Lock()
	if t, ok := r.tabs[tabID]; ok && t.clientID == clientID {
		t.lastSeen = r.nowFunc()
		r.mu.Unlock()
		return t.store
	}
	r.mu.Unlock()

	// restore outside the lock: storage reads may hit the network
	store := NewStore(ctx, r.open(clientID), r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tabs[tabID]; ok && t.clientID == clientID {
		t.lastSeen = r.nowFunc()
		return t.store
	}
	r.tabs[tabID] = &tab{store: store, clientID: clientID, lastSeen: r.nowFunc()}
	return store
}

// Forget drops the in-memory session of a tab. Durable storage is untouched.
func (r *Registry) Forget(tabID string) {
	r.mu.Lock()
	delete(r.tabs, tabID)
	r.mu.Unlock()
}

// Sweep forgets the tabs that were not seen for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.nowFunc().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id, t := range r.tabs {
		if t.lastSeen.Before(cutoff) {
			delete(r.tabs, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}
