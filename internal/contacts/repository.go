package contacts

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("contact not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository is the persistence boundary for emergency contacts.
// Ownership invariant: every read and write is scoped by user id; a
// contact is never visible to anyone but its owner.
type Repository interface {
	Insert(ctx context.Context, c Contact) error
	ByID(ctx context.Context, userID, id string) (Contact, bool, error)
	ListByUser(ctx context.Context, userID string) ([]Contact, error)
	Update(ctx context.Context, c Contact) error
	Delete(ctx context.Context, userID, id string) error
}
