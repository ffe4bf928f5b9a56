package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "demo-device-key", cfg.Device.Key)
	assert.Equal(t, 20*time.Second, cfg.Device.OnlineThreshold())
	assert.Equal(t, 10, cfg.Device.HistoryLimit)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("ECOGUARD_DEVICE_KEY", "field-unit-7")
	t.Setenv("ECOGUARD_AUTH_SESSIONTTL", "0s")

	require.NoError(t, InitConfig(""))
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "field-unit-7", cfg.Device.Key)
	assert.Equal(t, time.Duration(0), cfg.Auth.SessionTTL)
}

func TestValidateRejectsEmptyDeviceKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()
	viper.Set("device.key", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateTrimsBasePath(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{BasePath: "/api/"},
		Device: DeviceConfig{Key: "k", OnlineThresholdSeconds: 20, HistoryLimit: 10},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/api", cfg.Server.BasePath)

	cfg.Server.BasePath = "api"
	assert.Error(t, cfg.Validate())
}
