package auth

import (
	"context"
	"testing"

	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceKey = "demo-device-key"

func newTestGate(t *testing.T) (*Gate, string, string) {
	t.Helper()
	store := session.NewMemoryStore(0)
	ctx := context.Background()

	admin, err := store.Create(ctx, "admin", models.RoleAdmin)
	require.NoError(t, err)
	user, err := store.Create(ctx, "user", models.RoleUser)
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewGate("/api", deviceKey, store, log), admin.Token, user.Token
}

func TestAdmit(t *testing.T) {
	gate, adminToken, userToken := newTestGate(t)

	tests := []struct {
		name string
		req  Request
		want Decision
	}{
		{"preflight on admin path", Request{Method: "OPTIONS", Path: "/api/admin/thresholds"}, Allow},
		{"login is public", Request{Method: "POST", Path: "/api/auth/login"}, Allow},
		{"device key header", Request{Method: "POST", Path: "/api/device/sensor-data", DeviceKeyHeader: deviceKey}, Allow},
		{"device key query", Request{Method: "GET", Path: "/api/device/thresholds", DeviceKeyQuery: deviceKey}, Allow},
		{"wrong device key", Request{Method: "GET", Path: "/api/device/commands", DeviceKeyHeader: "nope"}, Unauthenticated},
		{"stale header with right query", Request{Method: "GET", Path: "/api/device/thresholds", DeviceKeyHeader: "stale", DeviceKeyQuery: deviceKey}, Allow},
		{"right header with stale query", Request{Method: "GET", Path: "/api/device/commands", DeviceKeyHeader: deviceKey, DeviceKeyQuery: "stale"}, Allow},
		{"wrong header and wrong query", Request{Method: "GET", Path: "/api/device/commands", DeviceKeyHeader: "nope", DeviceKeyQuery: "nope"}, Unauthenticated},
		{"missing device key", Request{Method: "GET", Path: "/api/device/commands"}, Unauthenticated},
		{"bearer is not a device credential", Request{Method: "GET", Path: "/api/device/commands", Authorization: "Bearer " + adminToken}, Unauthenticated},
		{"admin without token", Request{Method: "GET", Path: "/api/admin/thresholds"}, Unauthenticated},
		{"admin with unknown token", Request{Method: "GET", Path: "/api/admin/thresholds", Authorization: "Bearer bogus"}, Unauthenticated},
		{"admin with admin token", Request{Method: "GET", Path: "/api/admin/thresholds", Authorization: "Bearer " + adminToken}, Allow},
		{"admin with user token", Request{Method: "GET", Path: "/api/admin/thresholds", Authorization: "Bearer " + userToken}, Forbidden},
		{"user with user token", Request{Method: "GET", Path: "/api/user/alerts", Authorization: "Bearer " + userToken}, Allow},
		{"user with admin token", Request{Method: "GET", Path: "/api/user/alerts", Authorization: "Bearer " + adminToken}, Forbidden},
		{"logout any role", Request{Method: "POST", Path: "/api/auth/logout", Authorization: "bearer " + userToken}, Allow},
		{"malformed authorization", Request{Method: "GET", Path: "/api/admin/thresholds", Authorization: adminToken}, Unauthenticated},
		{"prefix lookalike is not device scope", Request{Method: "GET", Path: "/api/devices", DeviceKeyHeader: deviceKey}, Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := gate.Admit(context.Background(), tt.req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdmitReturnsSession(t *testing.T) {
	gate, adminToken, _ := newTestGate(t)

	d, s := gate.Admit(context.Background(), Request{Method: "PUT", Path: "/api/admin/thresholds/1", Authorization: "Bearer " + adminToken})
	require.Equal(t, Allow, d)
	require.NotNil(t, s)
	assert.Equal(t, "admin", s.Username)

	d, s = gate.Admit(context.Background(), Request{Method: "POST", Path: "/api/device/sensor-data", DeviceKeyHeader: deviceKey})
	assert.Equal(t, Allow, d)
	assert.Nil(t, s)
}

func TestScopeOfWithoutBasePath(t *testing.T) {
	gate := NewGate("", deviceKey, session.NewMemoryStore(0), nil)
	assert.Equal(t, ScopeDevice, gate.ScopeOf("/device/commands/3/ack"))
	assert.Equal(t, ScopeLogin, gate.ScopeOf("/auth/login"))
	assert.Equal(t, ScopeAdmin, gate.ScopeOf("/admin"))
	assert.Equal(t, ScopeOther, gate.ScopeOf("/auth/logout"))
}

func TestDeviceKeyPicksMatchingCredential(t *testing.T) {
	gate, _, _ := newTestGate(t)

	key, ok := gate.DeviceKey(Request{DeviceKeyHeader: "stale", DeviceKeyQuery: deviceKey})
	require.True(t, ok)
	assert.Equal(t, deviceKey, key)

	key, ok = gate.DeviceKey(Request{DeviceKeyHeader: deviceKey})
	require.True(t, ok)
	assert.Equal(t, deviceKey, key)

	_, ok = gate.DeviceKey(Request{DeviceKeyHeader: "stale", DeviceKeyQuery: "stale"})
	assert.False(t, ok)
}
