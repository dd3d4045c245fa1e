package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. PAIRDATE_JWT_SECRET.
const EnvPrefix = "PAIRDATE"

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AWS      AWSConfig      `yaml:"aws"`
	APNs     APNsConfig     `yaml:"apns"`
	Push     PushConfig     `yaml:"push"`
	Invite   InviteConfig   `yaml:"invite"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
}

// DatabaseConfig holds database configuration.
// Driver "memory" runs without Postgres (local demos only).
type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	SSLMode     string `yaml:"sslmode"`
	AutoMigrate bool   `yaml:"auto_migrate" split_words:"true"`
}

// RedisConfig holds the image URL cache connection. Empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl" split_words:"true"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region     string        `yaml:"region"`
	S3Bucket   string        `yaml:"s3_bucket" split_words:"true"`
	AccessKey  string        `yaml:"access_key" split_words:"true"`
	SecretKey  string        `yaml:"secret_key" split_words:"true"`
	Endpoint   string        `yaml:"endpoint"`
	PresignTTL time.Duration `yaml:"presign_ttl" split_words:"true"`
}

// APNsConfig holds token-based Apple push configuration
type APNsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	KeyFile    string `yaml:"key_file" split_words:"true"`
	KeyID      string `yaml:"key_id" split_words:"true"`
	TeamID     string `yaml:"team_id" split_words:"true"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// PushConfig sizes the background push dispatcher
type PushConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size" split_words:"true"`
}

// InviteConfig controls invite code generation
type InviteConfig struct {
	CodeLength     int `yaml:"code_length" split_words:"true"`
	FallbackLength int `yaml:"fallback_length" split_words:"true"`
	MaxAttempts    int `yaml:"max_attempts" split_words:"true"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, then applies environment
// overrides. A missing file is not an error when the environment is enough.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = 50 * time.Minute
	}
	if c.AWS.PresignTTL <= 0 {
		c.AWS.PresignTTL = time.Hour
	}
	if c.Push.Workers <= 0 {
		c.Push.Workers = 2
	}
	if c.Push.QueueSize <= 0 {
		c.Push.QueueSize = 256
	}
	if c.Invite.CodeLength <= 0 {
		c.Invite.CodeLength = 6
	}
	if c.Invite.FallbackLength <= c.Invite.CodeLength {
		c.Invite.FallbackLength = c.Invite.CodeLength + 2
	}
	if c.Invite.MaxAttempts <= 0 {
		c.Invite.MaxAttempts = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.APNs.Enabled && (c.APNs.KeyFile == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		return errors.New("apns.key_file, apns.key_id, apns.team_id and apns.topic are required when apns is enabled")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
