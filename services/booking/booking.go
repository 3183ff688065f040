package booking

import (
	"context"
	"fmt"
	"net/url"

	"furk/models"
)

// InProgress lists the caller's bookings that are not yet finished. The
// progress widget shows the most recently modified one.
func (s *DefaultBookingService) InProgress(ctx context.Context) ([]models.BookingProgress, error) {
	var list []models.BookingProgress
	if err := s.client.Get(ctx, "/bookings/in-progress", nil, &list); err != nil {
		return nil, fmt.Errorf("InProgress: %w", err)
	}
	return list, nil
}

func (s *DefaultBookingService) ListOwner(ctx context.Context, status string, limit, offset int, keyword string) ([]models.Booking, error) {
	var list []models.Booking
	if _, err := s.client.GetList(ctx, "/bookings", pageQuery(status, limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("ListOwner: %w", err)
	}
	return list, nil
}

func (s *DefaultBookingService) ListMerchant(ctx context.Context, status string, limit, offset int, keyword string) ([]models.Booking, error) {
	var list []models.Booking
	if _, err := s.client.GetList(ctx, "/merchant/bookings", pageQuery(status, limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("ListMerchant: %w", err)
	}
	return list, nil
}

func (s *DefaultBookingService) Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	var b models.Booking
	if err := s.client.Post(ctx, "/bookings", req, &b); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return &b, nil
}

func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID string) error {
	if err := s.client.Put(ctx, "/bookings/"+url.PathEscape(bookingID)+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	return nil
}

func (s *DefaultBookingService) UpdateStatus(ctx context.Context, bookingID string, status models.BookingStatus) error {
	body := map[string]string{"booking_status": string(status)}
	if err := s.client.Put(ctx, "/merchant/bookings/"+url.PathEscape(bookingID)+"/status", body, nil); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}
