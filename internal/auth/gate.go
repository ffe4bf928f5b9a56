// Package auth decides whether a request may reach the API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/session"

	"github.com/sirupsen/logrus"
)

// Decision is the outcome of admitting a request
type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Request is the part of an HTTP request the gate looks at
type Request struct {
	Method          string
	Path            string
	DeviceKeyHeader string
	DeviceKeyQuery  string
	Authorization   string
}

// Scope classifies a path
type Scope int

const (
	ScopeOther Scope = iota
	ScopeLogin
	ScopeDevice
	ScopeAdmin
	ScopeUser
)

const bearerPrefix = "bearer "

// Gate admits requests based on the device secret and the session store
type Gate struct {
	basePath  string
	deviceKey string
	sessions  session.Store
	log       *logrus.Logger
}

// NewGate creates a gate for routes mounted under basePath
func NewGate(basePath, deviceKey string, sessions session.Store, log *logrus.Logger) *Gate {
	if log == nil {
		log = logrus.New()
	}
	return &Gate{
		basePath:  strings.TrimRight(basePath, "/"),
		deviceKey: deviceKey,
		sessions:  sessions,
		log:       log,
	}
}

// ScopeOf classifies path relative to the gate's base path
func (g *Gate) ScopeOf(path string) Scope {
	rel := strings.TrimPrefix(path, g.basePath)
	switch {
	case rel == "/auth/login":
		return ScopeLogin
	case hasSegmentPrefix(rel, "/device"):
		return ScopeDevice
	case hasSegmentPrefix(rel, "/admin"):
		return ScopeAdmin
	case hasSegmentPrefix(rel, "/user"):
		return ScopeUser
	}
	return ScopeOther
}

// Admit applies the admission rules in order. The session is returned only when
// the request was admitted with a bearer token.
func (g *Gate) Admit(ctx context.Context, req Request) (Decision, *session.Session) {
	if req.Method == http.MethodOptions {
		return Allow, nil
	}

	scope := g.ScopeOf(req.Path)
	switch scope {
	case ScopeLogin:
		return Allow, nil
	case ScopeDevice:
		if g.validDeviceKey(req) {
			return Allow, nil
		}
		return Unauthenticated, nil
	}

	token, ok := bearerToken(req.Authorization)
	if !ok {
		return Unauthenticated, nil
	}

	s, err := g.sessions.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			g.log.WithError(err).Warn("Session lookup failed")
		}
		return Unauthenticated, nil
	}

	switch scope {
	case ScopeAdmin:
		if s.Role != models.RoleAdmin {
			return Forbidden, s
		}
	case ScopeUser:
		if s.Role != models.RoleUser {
			return Forbidden, s
		}
	}
	return Allow, s
}

// DeviceKey returns the presented credential that matches the device secret,
// checking the header first and then the query parameter.
func (g *Gate) DeviceKey(req Request) (string, bool) {
	for _, key := range []string{req.DeviceKeyHeader, req.DeviceKeyQuery} {
		if g.matchesDeviceKey(key) {
			return key, true
		}
	}
	return "", false
}

func (g *Gate) validDeviceKey(req Request) bool {
	_, ok := g.DeviceKey(req)
	return ok
}

func (g *Gate) matchesDeviceKey(key string) bool {
	if key == "" || g.deviceKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(g.deviceKey)) == 1
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
