// Package session holds the authenticated user's backend token and display state,
// for both browser sessions and the CLI credentials file.
package session

import (
	"context"
	"time"

	"resumeforge/internal/types"
)

// Session is what the client knows about a logged-in user
type Session struct {
	ID              string     `json:"id"`
	Token           string     `json:"token"`
	User            types.User `json:"user"`
	ActiveProfileID string     `json:"activeProfileId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Authenticated reports token presence only. The token itself is opaque to the client.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Store persists sessions by id. Load returns (nil, nil) for an unknown or expired id.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type contextKey struct{}

// NewContext returns ctx carrying s
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, or nil when the request is anonymous.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
