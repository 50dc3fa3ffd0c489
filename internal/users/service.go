package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service owns account lifecycle and directory lookups. It is consumed by
// the HTTP auth endpoints and, through a thin adapter, by the call
// coordinator for callee resolution.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" || req.Email == "" {
		return User{}, ErrInvalidArgument
	}
	if len(req.Password) < 6 {
		return User{}, ErrInvalidArgument
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := s.clock().UTC()
	u := User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PhoneNumber:  NormalizePhone(req.PhoneNumber),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate validates credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	u, ok, err := s.repo.ByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) ByID(ctx context.Context, id string) (User, bool, error) {
	if id == "" {
		return User{}, false, ErrInvalidArgument
	}
	return s.repo.ByID(ctx, id)
}

// ByPhoneNumber resolves a user by raw phone number; normalization happens
// here so every caller gets the same matching behavior.
func (s *Service) ByPhoneNumber(ctx context.Context, raw string) (User, bool, error) {
	normalized := NormalizePhone(raw)
	if normalized == "" {
		return User{}, false, nil
	}
	return s.repo.ByPhoneNumber(ctx, normalized)
}

func (s *Service) SetPushToken(ctx context.Context, userID, pushToken string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	return s.repo.UpdatePushToken(ctx, userID, strings.TrimSpace(pushToken))
}
