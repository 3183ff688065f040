// File: models/envelope.go
package models

import "encoding/json"

// Envelope is the backend's response wrapper: { success, data, message } with
// an extra top-level count on paginated list endpoints.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Count   int             `json:"count,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Page is a decoded paginated list.
type Page[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}
