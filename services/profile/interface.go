package profile

import (
	"context"
	"fmt"

	"furk/models"
	"furk/services/api"
)

type ProfileService interface {
	Get(ctx context.Context) (*models.UserProfile, error)
	Update(ctx context.Context, upd models.ProfileUpdate) (*models.UserProfile, error)
	Create(ctx context.Context, p models.NewProfile) error
}

type DefaultProfileService struct {
	client *api.Client
}

func NewDefaultProfileService(client *api.Client) *DefaultProfileService {
	return &DefaultProfileService{client: client}
}

func (s *DefaultProfileService) Get(ctx context.Context) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.client.Get(ctx, "/users/me", nil, &p); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &p, nil
}

func (s *DefaultProfileService) Update(ctx context.Context, upd models.ProfileUpdate) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.client.Put(ctx, "/users/me", upd, &p); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	return &p, nil
}

// Create writes the profile row for a freshly signed-up account. The account
// is unconfirmed at this point, so the call is unauthenticated.
func (s *DefaultProfileService) Create(ctx context.Context, p models.NewProfile) error {
	if err := s.client.Post(api.WithToken(ctx, ""), "/users", p, nil); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}
