// Package admin is the merchant application review queue.
package admin

import (
	"context"
	"fmt"
	"net/url"

	"furk/models"
	"furk/services/api"
	"furk/services/lazyload"
)

type AdminService interface {
	Applications(ctx context.Context, status models.ApplicationStatus, limit, offset int, keyword string) ([]models.MerchantApplication, error)
	Approve(ctx context.Context, id string, d models.ApplicationDecision) error
	Reject(ctx context.Context, id string, d models.ApplicationDecision) error
}

type DefaultAdminService struct {
	client *api.Client
}

func NewDefaultAdminService(client *api.Client) *DefaultAdminService {
	return &DefaultAdminService{client: client}
}

// ApplicationsFetch pages through the review queue; the first dep is the status filter.
func ApplicationsFetch(svc AdminService) lazyload.FetchFunc[models.MerchantApplication] {
	return func(ctx context.Context, limit, offset int, keyword string) ([]models.MerchantApplication, error) {
		return svc.Applications(ctx, models.ApplicationStatus(lazyload.Dep(ctx, 0)), limit, offset, keyword)
	}
}

func (s *DefaultAdminService) Applications(ctx context.Context, status models.ApplicationStatus, limit, offset int, keyword string) ([]models.MerchantApplication, error) {
	q := api.PageQuery(limit, offset, keyword)
	if status != "" {
		q.Set("status", string(status))
	}
	var list []models.MerchantApplication
	if _, err := s.client.GetList(ctx, "/admin/applications", q, &list); err != nil {
		return nil, fmt.Errorf("Applications: %w", err)
	}
	return list, nil
}

func (s *DefaultAdminService) Approve(ctx context.Context, id string, d models.ApplicationDecision) error {
	return s.decide(ctx, id, models.ApplicationApproved, d)
}

// Reject requires remarks so the merchant knows what to fix.
func (s *DefaultAdminService) Reject(ctx context.Context, id string, d models.ApplicationDecision) error {
	if d.Remarks == "" {
		return fmt.Errorf("Reject: remarks are required")
	}
	return s.decide(ctx, id, models.ApplicationRejected, d)
}

func (s *DefaultAdminService) decide(ctx context.Context, id string, status models.ApplicationStatus, d models.ApplicationDecision) error {
	body := map[string]string{"status": string(status), "remarks": d.Remarks}
	if err := s.client.Put(ctx, "/admin/applications/"+url.PathEscape(id), body, nil); err != nil {
		return fmt.Errorf("decide %s: %w", status, err)
	}
	return nil
}
