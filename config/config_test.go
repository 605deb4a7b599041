package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
http:
  address: ":8081"
storage:
  driver: postgres
  reviews_driver: mongo
database:
  host: localhost
  port: 5432
  user: trips
  password: secret
  name: tripmates
  ssl_mode: disable
mongo:
  uri: mongodb://localhost:27017
  database: tripmates
redis:
  addr: localhost:6379
kafka:
  brokers: ["localhost:9092"]
  connection_events_topic: connection_events
  notifications_topic: notifications
  group_id: tripmates-worker
notifications:
  distributed_pair_lock: true
matching:
  plans_cache_ttl_seconds: 30
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, StorageMongo, cfg.Storage.ReviewsDriver)
	assert.Equal(t, "host=localhost port=5432 user=trips password=secret dbname=tripmates sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 3, cfg.Kafka.PublishRetries)
	assert.Equal(t, 30*time.Second, cfg.Matching.PlansCacheTTL())
	assert.Equal(t, 20, cfg.Matching.DefaultLimit)
	assert.Equal(t, 5*time.Second, cfg.Notifications.PairLockTTL())
	assert.Equal(t, 24*time.Hour, cfg.Reviews.SessionTTL())
	assert.Equal(t, "@every 15m", cfg.Worker.PlanStatusSchedule)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, StorageMemory, cfg.Storage.ReviewsDriver)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.SMTP.Enabled())
}

func TestParse_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expectedErr string
	}{
		{name: "unknown driver", input: "storage: {driver: sqlite}", expectedErr: "unknown storage driver"},
		{name: "unknown reviews driver", input: "storage: {reviews_driver: cassandra}", expectedErr: "unknown reviews storage driver"},
		{name: "mongo without uri", input: "storage: {reviews_driver: mongo}", expectedErr: "mongo.uri is required"},
		{name: "lock without redis", input: "notifications: {distributed_pair_lock: true}", expectedErr: "requires redis.addr"},
		{name: "malformed yaml", input: "http: [", expectedErr: "failed to parse config"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.input))
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: from-file\n"), 0o644))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
