// Package inventory maintains cached session snapshots across many tmux
// servers. The picker refreshes it on a tick; each refresh scans servers
// with bounded parallelism, never issuing more than one command against the
// same server at a time.
package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/muxherd/muxherd/internal/model"
)

// Entry is one server's most recent enumeration result. Err is kept
// alongside the sessions so the picker can render unreachable servers
// instead of silently dropping them.
type Entry struct {
	Server    string
	Sessions  []model.Session
	Err       error
	UpdatedAt time.Time
}

// Store holds per-server entries with an optional TTL. Entries older than
// the TTL fall out of Snapshot, so a server that stops answering does not
// linger with stale data forever. A TTL of 0 keeps entries until they are
// overwritten or removed. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]Entry
}

// NewStore creates a store with the given TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, entries: make(map[string]Entry)}
}

// Upsert records one server's enumeration result, stamping it with the
// current time.
func (s *Store) Upsert(e Entry) {
	e.UpdatedAt = time.Now()
	s.mu.Lock()
	s.entries[e.Server] = e
	s.mu.Unlock()
}

// Remove drops a server's entry, used when discovery no longer reports it.
func (s *Store) Remove(server string) {
	s.mu.Lock()
	delete(s.entries, server)
	s.mu.Unlock()
}

// Snapshot returns the live entries sorted by server name. Expired entries
// are pruned as a side effect.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for server, e := range s.entries {
		if s.ttl > 0 && time.Since(e.UpdatedAt) > s.ttl {
			delete(s.entries, server)
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Server < out[j].Server })
	return out
}

// Refresher rescans servers and feeds the store. Scans run in parallel
// across servers, bounded by Parallel, but each server only ever sees one
// in-flight command.
type Refresher struct {
	// Discover lists the servers to scan. Required unless Servers is set.
	Discover func(ctx context.Context) ([]string, error)
	// Servers, when non-empty, is scanned instead of calling Discover.
	Servers []string
	// List enumerates one server's sessions. Required.
	List func(ctx context.Context, server string) ([]model.Session, error)
	// Exclude skips servers it reports true for. Nil excludes nothing.
	Exclude func(server string) bool
	// Parallel bounds concurrent server scans. Values below 1 mean 1.
	Parallel int
	// Store receives the results. Required.
	Store *Store
}

// Refresh scans every target server, upserts results (errors included),
// drops store entries for servers that vanished, and returns the resulting
// snapshot. The returned error covers discovery only; per-server
// enumeration failures land in their entries.
func (r *Refresher) Refresh(ctx context.Context) ([]Entry, error) {
	servers := r.Servers
	if len(servers) == 0 {
		found, err := r.Discover(ctx)
		if err != nil {
			return nil, err
		}
		servers = found
	}

	targets := make([]string, 0, len(servers))
	for _, s := range servers {
		if r.Exclude != nil && r.Exclude(s) {
			continue
		}
		targets = append(targets, s)
	}

	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}
	if parallel > len(targets) && len(targets) > 0 {
		parallel = len(targets)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)
	for _, server := range targets {
		wg.Add(1)
		go func(server string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sessions, err := r.List(ctx, server)
			r.Store.Upsert(Entry{Server: server, Sessions: sessions, Err: err})
		}(server)
	}
	wg.Wait()

	// Drop servers discovery no longer reports.
	live := make(map[string]bool, len(targets))
	for _, s := range targets {
		live[s] = true
	}
	for _, e := range r.Store.Snapshot() {
		if !live[e.Server] {
			r.Store.Remove(e.Server)
		}
	}

	return r.Store.Snapshot(), nil
}
