package booking

import (
	"context"
	"net/url"

	"furk/models"
	"furk/services/api"
	"furk/services/lazyload"
)

// BookingService covers bookings from both the owner and the merchant side.
type BookingService interface {
	InProgress(ctx context.Context) ([]models.BookingProgress, error)
	ListOwner(ctx context.Context, status string, limit, offset int, keyword string) ([]models.Booking, error)
	ListMerchant(ctx context.Context, status string, limit, offset int, keyword string) ([]models.Booking, error)
	Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string) error
	UpdateStatus(ctx context.Context, bookingID string, status models.BookingStatus) error
}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	client *api.Client
}

func NewDefaultBookingService(client *api.Client) *DefaultBookingService {
	return &DefaultBookingService{client: client}
}

// OwnerFetch pages through the owner's bookings; the first dep is the status filter.
func OwnerFetch(svc BookingService) lazyload.FetchFunc[models.Booking] {
	return func(ctx context.Context, limit, offset int, keyword string) ([]models.Booking, error) {
		return svc.ListOwner(ctx, lazyload.Dep(ctx, 0), limit, offset, keyword)
	}
}

// MerchantFetch pages through the merchant's bookings; the first dep is the status filter.
func MerchantFetch(svc BookingService) lazyload.FetchFunc[models.Booking] {
	return func(ctx context.Context, limit, offset int, keyword string) ([]models.Booking, error) {
		return svc.ListMerchant(ctx, lazyload.Dep(ctx, 0), limit, offset, keyword)
	}
}

func pageQuery(status string, limit, offset int, keyword string) url.Values {
	q := api.PageQuery(limit, offset, keyword)
	if status != "" {
		q.Set("status", status)
	}
	return q
}
