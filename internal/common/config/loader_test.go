package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func minimalConfig() *Config {
	cfg := &Config{}
	cfg.Backend.BaseURL = "http://backend:3000"
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := minimalConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, ":9090", cfg.Server.MetricsAddress)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, "application/pdf", cfg.Upload.ContentType)
	assert.Equal(t, 300000, cfg.Notifications.PollInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidateConfigRequiresBackendURL(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	err := validateConfig(cfg)
	assert.ErrorContains(t, err, "backend.base_url")
}

func TestValidateConfigRedisStoreNeedsAddress(t *testing.T) {
	cfg := minimalConfig()
	cfg.Session.Store = "redis"

	err := validateConfig(cfg)
	assert.ErrorContains(t, err, "database.redis.address")

	cfg.Database.Redis.Address = "localhost:6379"
	assert.NoError(t, validateConfig(cfg))
}

func TestValidateConfigUnknownStoreRejected(t *testing.T) {
	cfg := minimalConfig()
	cfg.Session.Store = "dynamo"

	err := validateConfig(cfg)
	assert.ErrorContains(t, err, "session.store")
}

func TestValidateConfigSearchNeedsAddresses(t *testing.T) {
	cfg := minimalConfig()
	cfg.Search.Enabled = true

	err := validateConfig(cfg)
	assert.ErrorContains(t, err, "elasticsearch.addresses")
}

func TestValidateConfigReceiptsNeedRegion(t *testing.T) {
	cfg := minimalConfig()
	cfg.Notifications.Email.Enabled = true

	err := validateConfig(cfg)
	assert.ErrorContains(t, err, "notifications.aws.region")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetDuration(30000))
}
