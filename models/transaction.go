package models

// Transaction is a ledger line shown to merchants and affiliates.
type Transaction struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id,omitempty"`
	Type        string    `json:"type"` // e.g. "payment", "commission", "payout"
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}
