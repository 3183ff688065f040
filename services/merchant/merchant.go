package merchant

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"furk/models"
	"furk/services/api"
)

// Profile returns the caller's merchant profile including verification status.
func (s *DefaultMerchantService) Profile(ctx context.Context) (*models.MerchantProfile, error) {
	var p models.MerchantProfile
	if err := s.client.Get(ctx, "/merchant/profile", nil, &p); err != nil {
		return nil, fmt.Errorf("Profile: %w", err)
	}
	return &p, nil
}

func (s *DefaultMerchantService) Dashboard(ctx context.Context) (*models.MerchantDashboard, error) {
	var d models.MerchantDashboard
	if err := s.client.Get(ctx, "/merchant/dashboard", nil, &d); err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}
	return &d, nil
}

func (s *DefaultMerchantService) BusinessHours(ctx context.Context) ([]models.BusinessHours, error) {
	var hours []models.BusinessHours
	if err := s.client.Get(ctx, "/merchant/business-hours", nil, &hours); err != nil {
		return nil, fmt.Errorf("BusinessHours: %w", err)
	}
	return hours, nil
}

// SetBusinessHours replaces the whole week. Each day may appear once.
func (s *DefaultMerchantService) SetBusinessHours(ctx context.Context, hours []models.BusinessHours) error {
	seen := make(map[int]bool, len(hours))
	for _, h := range hours {
		if seen[h.DayOfWeek] {
			return fmt.Errorf("SetBusinessHours: day %d listed twice", h.DayOfWeek)
		}
		seen[h.DayOfWeek] = true
		if !h.Closed && strings.Compare(h.OpensAt, h.ClosesAt) >= 0 {
			return fmt.Errorf("SetBusinessHours: day %d closes before it opens", h.DayOfWeek)
		}
	}
	if err := s.client.Put(ctx, "/merchant/business-hours", hours, nil); err != nil {
		return fmt.Errorf("SetBusinessHours: %w", err)
	}
	return nil
}

func (s *DefaultMerchantService) Listings(ctx context.Context, limit, offset int, keyword string) ([]models.PetService, error) {
	var list []models.PetService
	if _, err := s.client.GetList(ctx, "/merchant/services", api.PageQuery(limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("Listings: %w", err)
	}
	return list, nil
}

func (s *DefaultMerchantService) CreateListing(ctx context.Context, in models.PetServiceInput) (*models.PetService, error) {
	var out models.PetService
	if err := s.client.Post(ctx, "/merchant/services", in, &out); err != nil {
		return nil, fmt.Errorf("CreateListing: %w", err)
	}
	return &out, nil
}

func (s *DefaultMerchantService) UpdateListing(ctx context.Context, id string, in models.PetServiceInput) (*models.PetService, error) {
	var out models.PetService
	if err := s.client.Put(ctx, "/merchant/services/"+url.PathEscape(id), in, &out); err != nil {
		return nil, fmt.Errorf("UpdateListing: %w", err)
	}
	return &out, nil
}

func (s *DefaultMerchantService) DeleteListing(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, "/merchant/services/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("DeleteListing: %w", err)
	}
	return nil
}
