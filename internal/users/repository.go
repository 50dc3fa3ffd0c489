package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicate       = errors.New("user already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository is the persistence boundary of the user directory.
// Phone numbers passed in are already normalized.
type Repository interface {
	Insert(ctx context.Context, u User) error
	ByID(ctx context.Context, id string) (User, bool, error)
	ByEmail(ctx context.Context, email string) (User, bool, error)
	ByPhoneNumber(ctx context.Context, phoneNumber string) (User, bool, error)
	UpdatePushToken(ctx context.Context, id, pushToken string) error
}
