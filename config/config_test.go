package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8800, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8800", cfg.Service.URL)
	assert.Equal(t, 30000000, cfg.Service.MaxImageSize)
	assert.Equal(t, []string{"https://api.hive.blog", "https://api.deathwing.me"}, cfg.RPC.Nodes)
	assert.Equal(t, 2*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, "fs", cfg.UploadStore.Type)
	assert.Equal(t, 1280, cfg.ProxyStore.MaxImageWidth)
	assert.Equal(t, 8000, cfg.ProxyStore.MaxCustomImageWidth)
	assert.Equal(t, 10.0, cfg.UploadLimits.Reputation)
	assert.Equal(t, "hivesigner", cfg.UploadLimits.AppAccount)
	assert.Equal(t, 5*time.Minute, cfg.Blacklist.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("SERVICE_URL", "https://images.example.com")
	t.Setenv("RPC_NODES", "https://rpc1.example.com,https://rpc2.example.com")
	t.Setenv("UPLOAD_LIMIT_REPUTATION", "25.5")
	t.Setenv("UPLOAD_STORE_TYPE", "memory")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "https://images.example.com", cfg.Service.URL)
	assert.Equal(t, []string{"https://rpc1.example.com", "https://rpc2.example.com"}, cfg.RPC.Nodes)
	assert.Equal(t, 25.5, cfg.UploadLimits.Reputation)
	assert.Equal(t, "memory", cfg.UploadStore.Type)
}

func TestNewConfigRejectsInvalid(t *testing.T) {
	t.Run("bad store type", func(t *testing.T) {
		t.Setenv("UPLOAD_STORE_TYPE", "ftp")
		_, err := NewConfig()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		_, err := NewConfig()
		assert.Error(t, err)
	})

	t.Run("relative service url", func(t *testing.T) {
		t.Setenv("SERVICE_URL", "/images")
		_, err := NewConfig()
		assert.Error(t, err)
	})
}

func TestServiceURL(t *testing.T) {
	t.Setenv("SERVICE_URL", "https://images.example.com")
	cfg, err := NewConfig()
	require.NoError(t, err)

	u := cfg.ServiceURL()
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "images.example.com", u.Host)
}
