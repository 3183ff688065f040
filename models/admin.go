package models

// ApplicationStatus tracks a merchant application through admin review.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// MerchantApplication is an entry in the admin review queue.
type MerchantApplication struct {
	ID           string            `json:"id"`
	MerchantID   string            `json:"merchant_id"`
	BusinessName string            `json:"business_name"`
	Email        string            `json:"email"`
	Documents    []string          `json:"documents,omitempty"`
	Status       ApplicationStatus `json:"status"`
	Remarks      string            `json:"remarks,omitempty"`
	SubmittedAt  Timestamp         `json:"submitted_at"`
}

// ApplicationDecision is the admin's verdict on an application.
type ApplicationDecision struct {
	Remarks string `json:"remarks,omitempty"`
}
