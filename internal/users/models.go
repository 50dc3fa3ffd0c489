package users

import "time"

// User is an account in the user directory. PhoneNumber is stored
// normalized (digits only) so callee lookups are a single indexed match.
// PushToken is the mobile push handle; empty means the device is not
// push-capable and the user cannot receive incoming calls.
type User struct {
	ID          string `json:"id" db:"id"`
	Username    string `json:"username" db:"username"`
	Email       string `json:"email" db:"email"`
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`
	PushToken   string `json:"-" db:"push_token"`

	// PasswordHash is never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName is what the counterpart of a call sees; username first,
// email as fallback.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
