// Package presence tracks which users have recently confirmed themselves
// online. The store is volatile by design: it starts empty on every process
// start and is never persisted. Presence is a best-effort liveness probe,
// re-established by periodic client pings.
package presence

import (
	"errors"
	"sort"
	"sync"
	"time"
)

const (
	// OnlineWindow is how long a user counts as online after a ping.
	OnlineWindow = time.Minute
	// CacheTTL bounds how stale a cached read of the store may be.
	CacheTTL = 30 * time.Second
)

var ErrInvalidUsername = errors.New("presence: empty username")

// Store is the shared volatile map of username to last-confirmed-online.
type Store struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewStore() *Store {
	return &Store{entries: make(map[string]time.Time)}
}

func (s *Store) Set(username string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[username] = t
}

// Snapshot copies the current map so readers never hold the store lock
// while filtering.
func (s *Store) Snapshot() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]time.Time, len(s.entries))
	for u, t := range s.entries {
		snap[u] = t
	}
	return snap
}

// Directory answers presence queries through a read-through snapshot cache.
// Writes go to the store first and refresh the cache immediately, so a
// writer never observes stale data; concurrent readers may observe presence
// up to CacheTTL out of date.
type Directory struct {
	store *Store
	now   func() time.Time

	mu       sync.Mutex
	cache    map[string]time.Time
	cachedAt time.Time
}

func NewDirectory(store *Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

// ConfirmOnline records that the user is online right now.
func (d *Directory) ConfirmOnline(username string) error {
	if username == "" {
		return ErrInvalidUsername
	}
	now := d.now()
	d.store.Set(username, now)

	d.mu.Lock()
	d.cache = d.store.Snapshot()
	d.cachedAt = now
	d.mu.Unlock()
	return nil
}

// IsOnline reports whether the user pinged within the online window.
// Never mutates state.
func (d *Directory) IsOnline(username string) bool {
	last, ok := d.snapshot()[username]
	if !ok {
		return false
	}
	return d.now().Sub(last) < OnlineWindow
}

// OnlineUsers returns the sorted usernames currently inside the window.
func (d *Directory) OnlineUsers() []string {
	now := d.now()
	users := []string{}
	for username, last := range d.snapshot() {
		if now.Sub(last) < OnlineWindow {
			users = append(users, username)
		}
	}
	sort.Strings(users)
	return users
}

func (d *Directory) snapshot() map[string]time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cache == nil || d.now().Sub(d.cachedAt) >= CacheTTL {
		d.cache = d.store.Snapshot()
		d.cachedAt = d.now()
	}
	return d.cache
}
