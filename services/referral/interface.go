// Package referral covers affiliate referral codes and the affiliate's own view.
package referral

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"furk/models"
	"furk/services/api"
)

type ReferralService interface {
	Validate(ctx context.Context, code string) (*models.ReferralValidation, error)
	Dashboard(ctx context.Context) (*models.AffiliateDashboard, error)
	List(ctx context.Context, limit, offset int, keyword string) ([]models.Referral, error)
}

type DefaultReferralService struct {
	client *api.Client
}

func NewDefaultReferralService(client *api.Client) *DefaultReferralService {
	return &DefaultReferralService{client: client}
}

// Validate asks the backend whether code belongs to an active affiliate. It
// runs before an account exists, so no token is sent.
func (s *DefaultReferralService) Validate(ctx context.Context, code string) (*models.ReferralValidation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return &models.ReferralValidation{Valid: false}, nil
	}
	q := url.Values{}
	q.Set("code", code)
	var v models.ReferralValidation
	if err := s.client.Get(api.WithToken(ctx, ""), "/referrals/validate", q, &v); err != nil {
		return nil, fmt.Errorf("Validate: %w", err)
	}
	return &v, nil
}

func (s *DefaultReferralService) Dashboard(ctx context.Context) (*models.AffiliateDashboard, error) {
	var d models.AffiliateDashboard
	if err := s.client.Get(ctx, "/affiliate/dashboard", nil, &d); err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}
	return &d, nil
}

func (s *DefaultReferralService) List(ctx context.Context, limit, offset int, keyword string) ([]models.Referral, error) {
	var list []models.Referral
	if _, err := s.client.GetList(ctx, "/affiliate/referrals", api.PageQuery(limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return list, nil
}
