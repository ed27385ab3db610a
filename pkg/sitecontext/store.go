package sitecontext

import (
	"sync"
	"time"
)

// DefaultMaxAge bounds how long an untouched override survives the sweep.
const DefaultMaxAge = 24 * time.Hour

// Entry is one scope's override. A nil SiteID means "defer to parent".
type Entry struct {
	SiteID       *int64    `json:"siteId"`
	LastModified time.Time `json:"lastModified"`
}

// ScopeStore maps scope ids (tab or section ids) to site overrides.
type ScopeStore struct {
	mu      sync.RWMutex
	scope   string
	entries map[string]Entry
	now     func() time.Time
}

func NewScopeStore(scope string, now func() time.Time) *ScopeStore {
	if now == nil {
		now = time.Now
	}
	return &ScopeStore{
		scope:   scope,
		entries: make(map[string]Entry),
		now:     now,
	}
}

func (s *ScopeStore) Scope() string {
	return s.scope
}

// SetOverride upserts the override for scopeID. Passing nil still records a
// timestamped entry.
func (s *ScopeStore) SetOverride(scopeID string, siteID *int64) {
	s.mu.Lock()
	s.entries[scopeID] = Entry{SiteID: copyID(siteID), LastModified: s.now()}
	s.mu.Unlock()
}

func (s *ScopeStore) GetOverride(scopeID string) *int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyID(s.entries[scopeID].SiteID)
}

// Has reports whether an entry exists for scopeID, including nil overrides.
func (s *ScopeStore) Has(scopeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[scopeID]
	return ok
}

// Clear drops the entry for scopeID.
func (s *ScopeStore) Clear(scopeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[scopeID]; !ok {
		return false
	}
	delete(s.entries, scopeID)
	return true
}

// ClearAll drops every entry and returns how many were removed.
func (s *ScopeStore) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]Entry)
	return n
}

// EvictStaleEntries removes entries last modified strictly before now-maxAge.
func (s *ScopeStore) EvictStaleEntries(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.entries {
		if entry.LastModified.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *ScopeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy suitable for persistence.
func (s *ScopeStore) Entries() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for id, entry := range s.entries {
		out[id] = Entry{SiteID: copyID(entry.SiteID), LastModified: entry.LastModified}
	}
	return out
}

// Restore replaces the store content with persisted entries.
func (s *ScopeStore) Restore(entries map[string]Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry, len(entries))
	for id, entry := range entries {
		s.entries[id] = Entry{SiteID: copyID(entry.SiteID), LastModified: entry.LastModified}
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
