// Package catalog is the owner-facing browse and search of pet services.
package catalog

import (
	"context"
	"fmt"
	"net/url"

	"furk/models"
	"furk/services/api"
	"furk/services/lazyload"
)

type CatalogService interface {
	Services(ctx context.Context, category string, limit, offset int, keyword string) ([]models.PetService, error)
	Service(ctx context.Context, id string) (*models.PetService, error)
	Merchants(ctx context.Context, limit, offset int, keyword string) ([]models.Merchant, error)
}

type DefaultCatalogService struct {
	client *api.Client
}

func NewDefaultCatalogService(client *api.Client) *DefaultCatalogService {
	return &DefaultCatalogService{client: client}
}

// ServicesFetch pages through the catalog; the first dep is the category filter.
func ServicesFetch(svc CatalogService) lazyload.FetchFunc[models.PetService] {
	return func(ctx context.Context, limit, offset int, keyword string) ([]models.PetService, error) {
		return svc.Services(ctx, lazyload.Dep(ctx, 0), limit, offset, keyword)
	}
}

func (s *DefaultCatalogService) Services(ctx context.Context, category string, limit, offset int, keyword string) ([]models.PetService, error) {
	q := api.PageQuery(limit, offset, keyword)
	if category != "" {
		q.Set("category", category)
	}
	var list []models.PetService
	if _, err := s.client.GetList(ctx, "/services", q, &list); err != nil {
		return nil, fmt.Errorf("Services: %w", err)
	}
	return list, nil
}

func (s *DefaultCatalogService) Service(ctx context.Context, id string) (*models.PetService, error) {
	var svc models.PetService
	if err := s.client.Get(ctx, "/services/"+url.PathEscape(id), nil, &svc); err != nil {
		return nil, fmt.Errorf("Service: %w", err)
	}
	return &svc, nil
}

func (s *DefaultCatalogService) Merchants(ctx context.Context, limit, offset int, keyword string) ([]models.Merchant, error) {
	var list []models.Merchant
	if _, err := s.client.GetList(ctx, "/merchants", api.PageQuery(limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("Merchants: %w", err)
	}
	return list, nil
}
