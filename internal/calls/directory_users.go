package calls

import (
	"context"

	"temandifa-backend/internal/users"
)

// UsersDirectory adapts the user service to the coordinator's directory
// interface.
type UsersDirectory struct {
	Users *users.Service
}

func (d UsersDirectory) ByPhoneNumber(ctx context.Context, phoneNumber string) (UserInfo, bool, error) {
	u, ok, err := d.Users.ByPhoneNumber(ctx, phoneNumber)
	if err != nil || !ok {
		return UserInfo{}, false, err
	}
	return toUserInfo(u), true, nil
}

func (d UsersDirectory) ByID(ctx context.Context, id string) (UserInfo, bool, error) {
	u, ok, err := d.Users.ByID(ctx, id)
	if err != nil || !ok {
		return UserInfo{}, false, err
	}
	return toUserInfo(u), true, nil
}

func toUserInfo(u users.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		DisplayName: u.DisplayName(),
		PushToken:   u.PushToken,
	}
}
