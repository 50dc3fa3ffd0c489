package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service provides emergency-contact CRUD scoped to the owning user.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Create(ctx context.Context, userID, name, phoneNumber string) (Contact, error) {
	name = strings.TrimSpace(name)
	phoneNumber = strings.TrimSpace(phoneNumber)
	if userID == "" || name == "" || phoneNumber == "" {
		return Contact{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	c := Contact{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		PhoneNumber: phoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Contact, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Contact, error) {
	if userID == "" || id == "" {
		return Contact{}, ErrInvalidArgument
	}
	c, ok, err := s.repo.ByID(ctx, userID, id)
	if err != nil {
		return Contact{}, err
	}
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, userID, id, name, phoneNumber string) (Contact, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return Contact{}, err
	}

	if name = strings.TrimSpace(name); name != "" {
		c.Name = name
	}
	if phoneNumber = strings.TrimSpace(phoneNumber); phoneNumber != "" {
		c.PhoneNumber = phoneNumber
	}
	c.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, userID, id)
}
