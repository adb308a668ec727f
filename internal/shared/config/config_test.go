package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `database:
  user: orders
  password: secret
  database: ecommerce_orders

rabbitmq:
  user: guest
  password: guest
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost", cfg.RabbitMQ.Host)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 300, cfg.Events.TTLSeconds)
	assert.Equal(t, 3, cfg.Notifications.BatchSize)
	assert.Equal(t, 60, cfg.Notifications.BatchWaitSeconds)
	assert.Equal(t, 3, cfg.Notifications.MaxAttempts)
	assert.Equal(t, 240, cfg.Notifications.DLQRetentionHours)
}

func TestLoadParsesAllSections(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `database:
  host: db.internal
  port: 5433
  user: orders
  password: secret
  database: ecommerce_orders

rabbitmq:
  host: mq.internal
  user: svc
  password: svc

redis:
  host: cache.internal
  db: 2

events:
  ttl_seconds: 600 # longer retention in staging

notifications:
  smtp_host: mail.internal
  batch_size: 5
  max_attempts: 4
`))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "mq.internal", cfg.RabbitMQ.Host)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 600, cfg.Events.TTLSeconds)
	assert.Equal(t, "mail.internal", cfg.Notifications.SMTPHost)
	assert.Equal(t, 5, cfg.Notifications.BatchSize)
	assert.Equal(t, 4, cfg.Notifications.MaxAttempts)
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, `database:
  host: localhost

rabbitmq:
  host: localhost
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user is required")
	assert.Contains(t, err.Error(), "rabbitmq.user is required")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, minimalConfig+`
events:
  ttl: 300
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
