package models

import (
	"encoding/json"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state the real-time channel reports.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingError      BookingStatus = "ERROR" // fallback for anything unrecognised
)

// NormalizeBookingStatus maps raw status text onto the enum, defaulting to BookingError.
func NormalizeBookingStatus(raw string) BookingStatus {
	switch s := BookingStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case BookingPending, BookingInProgress, BookingCompleted:
		return s
	default:
		return BookingError
	}
}

// UnmarshalJSON never fails on an unknown status; it lands on BookingError.
func (s *BookingStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = BookingError
		return nil
	}
	*s = NormalizeBookingStatus(raw)
	return nil
}

// BookingProgress is the snapshot shown by the real-time progress widget.
type BookingProgress struct {
	UserID        string        `json:"user_id"`
	ServiceID     string        `json:"service_id"`
	ServiceName   string        `json:"service_name"`
	BookingStatus BookingStatus `json:"booking_status"`
	ModifiedAt    Timestamp     `json:"modified_at"`
}

// LatestProgress picks the most recently modified entry, or nil for an empty list.
func LatestProgress(list []BookingProgress) *BookingProgress {
	var latest *BookingProgress
	for i := range list {
		if latest == nil || list[i].ModifiedAt.After(latest.ModifiedAt.Time) {
			latest = &list[i]
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}

// Booking is a booking record as listed for owners and merchants.
type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	MerchantID    string        `json:"merchant_id"`
	ServiceID     string        `json:"service_id"`
	ServiceName   string        `json:"service_name"`
	PetName       string        `json:"pet_name,omitempty"`
	ScheduledAt   Timestamp     `json:"scheduled_at"`
	BookingStatus BookingStatus `json:"booking_status"`
	TotalPrice    float64       `json:"total_price"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     Timestamp     `json:"created_at"`
	ModifiedAt    Timestamp     `json:"modified_at"`
}

// BookingRequest is what an owner submits to book a service.
type BookingRequest struct {
	ServiceID   string `json:"service_id" binding:"required"`
	PetName     string `json:"pet_name" binding:"required"`
	ScheduledAt string `json:"scheduled_at" binding:"required"` // RFC3339
	Notes       string `json:"notes,omitempty"`
}

// BookingStatusUpdate is what a merchant submits to move a booking along.
type BookingStatusUpdate struct {
	Status string `json:"status" binding:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// Timestamp decodes the handful of time encodings the backend emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var epoch float64
	if err := json.Unmarshal(b, &epoch); err == nil {
		sec := int64(epoch)
		t.Time = time.Unix(sec, int64((epoch-float64(sec))*1e9)).UTC()
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
