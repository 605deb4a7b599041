package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	GRPC          GRPCConfig          `yaml:"grpc"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Database      DatabaseConfig      `yaml:"database"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Matching      MatchingConfig      `yaml:"matching"`
	Reviews       ReviewsConfig       `yaml:"reviews"`
	Worker        WorkerConfig        `yaml:"worker"`
	SMTP          SMTPConfig          `yaml:"smtp"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// StorageConfig selects repository drivers. Reviews may live in MongoDB while
// plans and connections stay relational.
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	ReviewsDriver string `yaml:"reviews_driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers               []string `yaml:"brokers"`
	ConnectionEventsTopic string   `yaml:"connection_events_topic"`
	NotificationsTopic    string   `yaml:"notifications_topic"`
	GroupID               string   `yaml:"group_id"`
	PublishRetries        int      `yaml:"publish_retries"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type NotificationsConfig struct {
	HandlerTimeoutSeconds int  `yaml:"handler_timeout_seconds"`
	DistributedPairLock   bool `yaml:"distributed_pair_lock"`
	PairLockTTLSeconds    int  `yaml:"pair_lock_ttl_seconds"`
}

func (n NotificationsConfig) HandlerTimeout() time.Duration {
	return time.Duration(n.HandlerTimeoutSeconds) * time.Second
}

func (n NotificationsConfig) PairLockTTL() time.Duration {
	return time.Duration(n.PairLockTTLSeconds) * time.Second
}

type MatchingConfig struct {
	DefaultLimit         int `yaml:"default_limit"`
	MaxLimit             int `yaml:"max_limit"`
	PlansCacheTTLSeconds int `yaml:"plans_cache_ttl_seconds"`
}

func (m MatchingConfig) PlansCacheTTL() time.Duration {
	return time.Duration(m.PlansCacheTTLSeconds) * time.Second
}

type ReviewsConfig struct {
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

func (r ReviewsConfig) SessionTTL() time.Duration {
	return time.Duration(r.SessionTTLMinutes) * time.Minute
}

type WorkerConfig struct {
	PlanStatusSchedule string `yaml:"plan_status_schedule"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// LoadConfig reads the YAML file at path. Values from a local .env file (if any)
// and the process environment override secrets in the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.ReviewsDriver == "" {
		c.Storage.ReviewsDriver = c.Storage.Driver
	}
	if c.Kafka.PublishRetries <= 0 {
		c.Kafka.PublishRetries = 3
	}
	if c.Notifications.PairLockTTLSeconds <= 0 {
		c.Notifications.PairLockTTLSeconds = 5
	}
	if c.Matching.DefaultLimit <= 0 {
		c.Matching.DefaultLimit = 20
	}
	if c.Matching.MaxLimit <= 0 {
		c.Matching.MaxLimit = 100
	}
	if c.Reviews.SessionTTLMinutes <= 0 {
		c.Reviews.SessionTTLMinutes = 24 * 60
	}
	if c.Worker.PlanStatusSchedule == "" {
		c.Worker.PlanStatusSchedule = "@every 15m"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Storage.ReviewsDriver {
	case StorageMemory, StoragePostgres, StorageMongo:
	default:
		return fmt.Errorf("unknown reviews storage driver %q", c.Storage.ReviewsDriver)
	}
	if c.Storage.ReviewsDriver == StorageMongo && c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required for the mongo reviews driver")
	}
	if c.Notifications.DistributedPairLock && !c.Redis.Enabled() {
		return fmt.Errorf("notifications.distributed_pair_lock requires redis.addr")
	}
	return nil
}
