package users

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory user repository for tests and early
// development.
type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: map[string]User{}}
}

func (r *MemoryRepo) Insert(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
		if u.PhoneNumber != "" && existing.PhoneNumber == u.PhoneNumber {
			return ErrDuplicate
		}
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemoryRepo) ByID(_ context.Context, id string) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	return u, ok, nil
}

func (r *MemoryRepo) ByEmail(_ context.Context, email string) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (r *MemoryRepo) ByPhoneNumber(_ context.Context, phoneNumber string) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if phoneNumber == "" {
		return User{}, false, nil
	}
	for _, u := range r.users {
		if u.PhoneNumber == phoneNumber {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (r *MemoryRepo) UpdatePushToken(_ context.Context, id, pushToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PushToken = pushToken
	r.users[id] = u
	return nil
}
