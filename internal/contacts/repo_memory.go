package contacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory contact repository for tests and early
// development. It enforces owner isolation on reads.
type MemoryRepo struct {
	mu       sync.Mutex
	contacts map[string]Contact
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{contacts: map[string]Contact{}}
}

func (r *MemoryRepo) Insert(_ context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
	return nil
}

func (r *MemoryRepo) ByID(_ context.Context, userID, id string) (Contact, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok || c.UserID != userID {
		return Contact{}, false, nil
	}
	return c, true, nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Contact, 0)
	for _, c := range r.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Update(_ context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.contacts[c.ID]
	if !ok || cur.UserID != c.UserID {
		return ErrNotFound
	}
	r.contacts[c.ID] = c
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(r.contacts, id)
	return nil
}
