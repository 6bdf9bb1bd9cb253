package server

import (
	"sync"
	"time"

	"github.com/seemly-ai/seemly/internal/audit"
)

// verdictStore keeps recent verdicts in memory for the status endpoint.
// Entries expire after the configured TTL.
type verdictStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]verdictEntry
}

type verdictEntry struct {
	projectID string
	status    string
	event     *audit.Event
	expiresAt time.Time
}

func newVerdictStore(ttl time.Duration) *verdictStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &verdictStore{
		ttl:  ttl,
		data: make(map[string]verdictEntry),
	}
}

func (s *verdictStore) Start(requestID, projectID string) {
	if s == nil || requestID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.data[requestID] = verdictEntry{
		projectID: projectID,
		status:    "pending",
		expiresAt: time.Now().Add(s.ttl),
	}
}

func (s *verdictStore) Complete(requestID string, ev *audit.Event) {
	if s == nil || requestID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	entry := verdictEntry{
		status:    "completed",
		event:     ev,
		expiresAt: time.Now().Add(s.ttl),
	}
	if existing, ok := s.data[requestID]; ok {
		entry.projectID = existing.projectID
	} else if ev != nil {
		entry.projectID = ev.ProjectID
	}
	s.data[requestID] = entry
}

func (s *verdictStore) Get(requestID string) (verdictEntry, bool) {
	if s == nil || requestID == "" {
		return verdictEntry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	entry, ok := s.data[requestID]
	if !ok {
		return verdictEntry{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.data, requestID)
		return verdictEntry{}, false
	}
	return entry, true
}

func (s *verdictStore) cleanupLocked() {
	now := time.Now()
	for k, v := range s.data {
		if now.After(v.expiresAt) {
			delete(s.data, k)
		}
	}
}
