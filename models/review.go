package models

type Review struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"service_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

type ReviewInput struct {
	BookingID string `json:"booking_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,gte=1,lte=5"`
	Comment   string `json:"comment,omitempty"`
}
