package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	JWT           JWTConfig           `envconfig:"JWT"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	Store         StoreConfig         `envconfig:"STORE"`
	Cache         CacheConfig         `envconfig:"CACHE"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type AWSConfig struct {
	Region  string `envconfig:"REGION" default:"us-east-1"`
	Profile string `envconfig:"PROFILE" default:""`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

type RedisConfig struct {
	Address     string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password    string        `envconfig:"PASSWORD" default:""`
	Database    int           `envconfig:"DATABASE" default:"0"`
	MaxRetries  int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize    int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled  bool          `envconfig:"TLS_ENABLED" default:"false"`
}

// JWTConfig holds the token service configuration. The signing secret is
// process-wide state, loaded exactly once at startup: either from
// JWT_SECRET directly or from AWS Secrets Manager when
// JWT_SECRET_FROM_SECRETS is set. An unresolved secret is startup-fatal.
type JWTConfig struct {
	Secret            string        `envconfig:"SECRET" default:""`
	SecretFromSecrets bool          `envconfig:"SECRET_FROM_SECRETS" default:"false"`
	SecretName        string        `envconfig:"SECRET_NAME" default:""`
	TTL               time.Duration `envconfig:"TTL" default:"20m"`
}

type DynamoDBConfig struct {
	UsersTableName string `envconfig:"USERS_TABLE_NAME" default:"marketloom-users"`
	Region         string `envconfig:"REGION" default:"us-east-1"`
}

// StoreConfig selects the credential store backend. "memory" is for
// local development and tests only.
type StoreConfig struct {
	Backend string `envconfig:"BACKEND" default:"dynamodb"`
}

type CacheConfig struct {
	Enabled bool          `envconfig:"ENABLED" default:"true"`
	TTL     time.Duration `envconfig:"TTL" default:"60s"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"true"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	// The token service refuses an empty secret too; failing here keeps
	// the process from getting anywhere near signing with a default key.
	if cfg.JWT.SecretFromSecrets {
		if cfg.JWT.SecretName == "" {
			return fmt.Errorf("JWT_SECRET_NAME is required when JWT_SECRET_FROM_SECRETS is set")
		}
	} else if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWT.TTL <= 0 {
		return fmt.Errorf("invalid JWT TTL: %s", cfg.JWT.TTL)
	}

	switch cfg.Store.Backend {
	case "dynamodb", "memory":
	default:
		return fmt.Errorf("invalid store backend: %s", cfg.Store.Backend)
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
