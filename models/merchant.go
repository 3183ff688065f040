// File: models/merchant.go
package models

// Merchant is the public view of a merchant.
type Merchant struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"business_name"`
	Address      string  `json:"address,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
}

// MerchantProfile is the merchant's own profile, including the flags the
// session caches for gating.
type MerchantProfile struct {
	Merchant
	Email            string         `json:"email"`
	PhoneNumber      string         `json:"phone_number,omitempty"`
	Status           MerchantStatus `json:"status"`
	HasBusinessHours bool           `json:"has_business_hours"`
}

// BusinessHours is one weekday's opening window.
type BusinessHours struct {
	DayOfWeek int    `json:"day_of_week" binding:"gte=0,lte=6"` // 0 = Sunday
	OpensAt   string `json:"opens_at"`                          // "HH:MM"
	ClosesAt  string `json:"closes_at"`                         // "HH:MM"
	Closed    bool   `json:"closed"`
}

// MerchantDashboard is the summary block on the merchant landing page.
type MerchantDashboard struct {
	PendingBookings   int     `json:"pending_bookings"`
	ActiveBookings    int     `json:"active_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	TotalEarnings     float64 `json:"total_earnings"`
	AverageRating     float64 `json:"average_rating"`
}
