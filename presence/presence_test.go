package presence

import (
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDirectory() (*Directory, *Store, *fakeClock) {
	store := NewStore()
	clock := &fakeClock{now: time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)}
	d := NewDirectory(store)
	d.now = clock.Now
	return d, store, clock
}

func TestConfirmOnlineValidation(t *testing.T) {
	d, _, _ := newTestDirectory()
	if err := d.ConfirmOnline(""); err == nil {
		t.Fatal("expected an error for the empty username")
	}
	if err := d.ConfirmOnline("alice"); err != nil {
		t.Fatalf("ConfirmOnline: %v", err)
	}
}

func TestOnlineWindow(t *testing.T) {
	d, _, clock := newTestDirectory()

	if d.IsOnline("alice") {
		t.Fatal("alice should start offline")
	}

	d.ConfirmOnline("alice")
	if !d.IsOnline("alice") {
		t.Fatal("alice should be online right after confirming")
	}

	// Still inside the window at 59s.
	clock.advance(59 * time.Second)
	if !d.IsOnline("alice") {
		t.Error("alice should still be online at 59s")
	}

	// At exactly one minute the window closes.
	clock.advance(time.Second)
	if d.IsOnline("alice") {
		t.Error("alice should be offline at 60s")
	}
}

func TestOnlineUsers(t *testing.T) {
	d, _, clock := newTestDirectory()

	d.ConfirmOnline("bob")
	d.ConfirmOnline("alice")

	got := d.OnlineUsers()
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("OnlineUsers = %v, want [alice bob]", got)
	}

	clock.advance(2 * time.Minute)
	if got := d.OnlineUsers(); len(got) != 0 {
		t.Fatalf("OnlineUsers after expiry = %v, want empty", got)
	}
}

func TestWriterNeverSeesStaleCache(t *testing.T) {
	d, _, _ := newTestDirectory()

	d.ConfirmOnline("alice")
	d.ConfirmOnline("bob")

	// Both writes happened within the cache TTL; the second must still be
	// visible immediately because writes refresh the cache eagerly.
	if !d.IsOnline("bob") {
		t.Fatal("write-through cache missed a fresh write")
	}
}

func TestCacheStalenessBounded(t *testing.T) {
	d, store, clock := newTestDirectory()

	d.ConfirmOnline("alice") // primes the cache

	// A write that bypasses this directory's cache, as another process
	// replica would do against the shared store.
	store.Set("carol", clock.Now())

	if d.IsOnline("carol") {
		t.Fatal("carol should not be visible before the cache expires")
	}

	// After the TTL the snapshot is re-read from the store.
	clock.advance(CacheTTL)
	if !d.IsOnline("carol") {
		t.Fatal("carol must be visible once the cache TTL lapsed")
	}
}
