// Package session keeps the bearer-token sessions issued at login.
package session

import (
	"context"
	"errors"
	"time"

	"example.com/ecoguard/internal/models"
)

// ErrNotFound is returned for unknown or expired tokens
var ErrNotFound = errors.New("session not found")

// Session is an authenticated operator, keyed by an opaque token
type Session struct {
	Token     string      `json:"token"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Store issues, resolves and revokes sessions
type Store interface {
	Create(ctx context.Context, username string, role models.Role) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Invalidate(ctx context.Context, token string) error
	// Sweep drops expired sessions and returns how many were removed
	Sweep(ctx context.Context) (int, error)
	Close() error
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx, if any
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Username returns the session user on ctx, or fallback when there is none
func Username(ctx context.Context, fallback string) string {
	if s, ok := FromContext(ctx); ok && s.Username != "" {
		return s.Username
	}
	return fallback
}
