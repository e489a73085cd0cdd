package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehoster/config"
	"imagehoster/driver/blobstore"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Service.URL = "http://localhost:8800"
	cfg.Service.DefaultAvatar = "https://images.hive.blog/default_avatar.png"
	cfg.Service.DefaultCover = "https://images.hive.blog/default_cover.png"
	cfg.Service.MaxImageSize = 1 << 20
	cfg.UploadStore.Type = "memory"
	cfg.ProxyStore.Type = "memory"
	cfg.RPC.Nodes = []string{"https://api.example.com"}
	return cfg
}

func TestNewApplicationComponents(t *testing.T) {
	components, err := NewApplicationComponents(testConfig())
	require.NoError(t, err)

	assert.IsType(t, &blobstore.MemoryStore{}, components.UploadStore)
	assert.IsType(t, &blobstore.MemoryStore{}, components.ProxyStore)
	assert.NotNil(t, components.Blacklist)
	assert.NotNil(t, components.ChainClient)
	assert.NotNil(t, components.ProxyUsecase)
	assert.NotNil(t, components.UploadUsecase)
	assert.NotNil(t, components.ServeUsecase)
	assert.NotNil(t, components.ProfileUsecase)
}

func TestNewApplicationComponentsBadStore(t *testing.T) {
	cfg := testConfig()
	cfg.UploadStore.Type = "ftp"

	_, err := NewApplicationComponents(cfg)
	assert.Error(t, err)
}
