// File: models/service.go
package models

// PetService is a listing a merchant offers to pet owners.
type PetService struct {
	ID           string    `json:"id"`
	MerchantID   string    `json:"merchant_id"`
	MerchantName string    `json:"merchant_name,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`      // e.g. "grooming", "boarding", "veterinary"
	Price        float64   `json:"price"`         // display price; pricing rules live in the backend
	DurationMins int       `json:"duration_mins"` // nominal service length
	Images       []string  `json:"images,omitempty"`
	Rating       float64   `json:"rating,omitempty"`
	Latitude     float64   `json:"latitude,omitempty"`
	Longitude    float64   `json:"longitude,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    Timestamp `json:"created_at"`
}

// PetServiceInput is what a merchant submits to create or edit a listing.
type PetServiceInput struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category" binding:"required"`
	Price        float64  `json:"price" binding:"gte=0"`
	DurationMins int      `json:"duration_mins" binding:"gte=0"`
	Images       []string `json:"images,omitempty"`
	Active       bool     `json:"active"`
}
