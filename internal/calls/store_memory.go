package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for single-instance deployments and
// tests. TTL expiry is lazy: entries are dropped when read after their
// deadline. The clock is injectable for deterministic tests.
type MemoryStore struct {
	mu sync.Mutex

	recs  map[string]memRecord
	ptrs  map[string]memPointer
	clock func() time.Time
}

type memRecord struct {
	rec       CallRecord
	expiresAt time.Time
}

type memPointer struct {
	callID    string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recs:  map[string]memRecord{},
		ptrs:  map[string]memPointer{},
		clock: time.Now,
	}
}

// SetClock overrides the store's notion of now. Test helper.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *MemoryStore) Create(_ context.Context, rec CallRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp := s.clock().Add(ttl)
	s.recs[rec.CallID] = memRecord{rec: rec, expiresAt: exp}
	s.ptrs[rec.Caller.ID] = memPointer{callID: rec.CallID, expiresAt: exp}
	s.ptrs[rec.Callee.ID] = memPointer{callID: rec.CallID, expiresAt: exp}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, callID string) (CallRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.recs[callID]
	if !ok {
		return CallRecord{}, false, nil
	}
	if !s.clock().Before(e.expiresAt) {
		delete(s.recs, callID)
		return CallRecord{}, false, nil
	}
	return e.rec, true, nil
}

func (s *MemoryStore) UpdateIfStatus(_ context.Context, rec CallRecord, ttl time.Duration, expect Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.recs[rec.CallID]
	if !ok {
		return false, nil
	}
	if !s.clock().Before(e.expiresAt) {
		delete(s.recs, rec.CallID)
		return false, nil
	}
	if e.rec.Status != expect {
		return false, nil
	}

	exp := s.clock().Add(ttl)
	s.recs[rec.CallID] = memRecord{rec: rec, expiresAt: exp}
	s.ptrs[rec.Caller.ID] = memPointer{callID: rec.CallID, expiresAt: exp}
	s.ptrs[rec.Callee.ID] = memPointer{callID: rec.CallID, expiresAt: exp}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, callID string, userIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recs, callID)
	for _, id := range userIDs {
		delete(s.ptrs, id)
	}
	return nil
}

func (s *MemoryStore) ActiveCallID(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ptrs[userID]
	if !ok {
		return "", false, nil
	}
	if !s.clock().Before(p.expiresAt) {
		delete(s.ptrs, userID)
		return "", false, nil
	}
	return p.callID, true, nil
}

func (s *MemoryStore) DeletePointer(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ptrs, userID)
	return nil
}
