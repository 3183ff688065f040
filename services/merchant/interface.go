// Package merchant is the merchant's own profile, hours and listings.
package merchant

import (
	"context"

	"furk/models"
	"furk/services/api"
)

type MerchantService interface {
	Profile(ctx context.Context) (*models.MerchantProfile, error)
	Dashboard(ctx context.Context) (*models.MerchantDashboard, error)
	BusinessHours(ctx context.Context) ([]models.BusinessHours, error)
	SetBusinessHours(ctx context.Context, hours []models.BusinessHours) error
	Listings(ctx context.Context, limit, offset int, keyword string) ([]models.PetService, error)
	CreateListing(ctx context.Context, in models.PetServiceInput) (*models.PetService, error)
	UpdateListing(ctx context.Context, id string, in models.PetServiceInput) (*models.PetService, error)
	DeleteListing(ctx context.Context, id string) error
}

type DefaultMerchantService struct {
	client *api.Client
}

func NewDefaultMerchantService(client *api.Client) *DefaultMerchantService {
	return &DefaultMerchantService{client: client}
}
