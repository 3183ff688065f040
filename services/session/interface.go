// Package session holds the server-side record behind each browser session.
//
// The store is the only shared mutable state in the BFF. Everything may read
// it, but only the auth service is handed a Writer.
package session

import (
	"context"
	"errors"

	"furk/models"
)

// ErrNotFound is returned by Load when no record exists for the id.
var ErrNotFound = errors.New("session not found")

// EventKind says what happened to a session record.
type EventKind string

const (
	EventSaved   EventKind = "session.saved"
	EventCleared EventKind = "session.cleared"
)

// Event is published after every successful Save or Clear.
type Event struct {
	Kind      EventKind
	SessionID string
	Role      models.Role
}

// Reader is the read side of the store, handed to guards, the API client and
// anything else that only needs to look.
type Reader interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	// Subscribe returns a channel of events and a function that ends the subscription.
	Subscribe(buf int) (<-chan Event, func())
	// PopNotice returns and removes the one-shot notice for id, if any.
	PopNotice(ctx context.Context, id string) (string, error)
}

// Writer is the write side of the store.
type Writer interface {
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context, id string) error
	SetNotice(ctx context.Context, id, notice string) error
}

// Store is both sides together; only wiring code and the auth service see it.
type Store interface {
	Reader
	Writer
}
