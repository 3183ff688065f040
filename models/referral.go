// File: models/referral.go
package models

// Referral is one account signed up through an affiliate's code.
type Referral struct {
	ID           string    `json:"id"`
	ReferredName string    `json:"referred_name"`
	ReferredRole Role      `json:"referred_role"`
	Status       string    `json:"status"`
	Earned       float64   `json:"earned"`
	CreatedAt    Timestamp `json:"created_at"`
}

// AffiliateDashboard is the affiliate landing-page summary.
type AffiliateDashboard struct {
	ReferralCode   string  `json:"referral_code"`
	TotalReferrals int     `json:"total_referrals"`
	ActiveMembers  int     `json:"active_members"`
	TotalEarned    float64 `json:"total_earned"`
	PendingPayout  float64 `json:"pending_payout"`
}

// ReferralValidation is the backend's answer to "is this code usable".
type ReferralValidation struct {
	Valid       bool   `json:"valid"`
	AffiliateID string `json:"affiliate_id,omitempty"`
}
