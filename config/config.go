package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Env    string       `yaml:"env" env:"GO_ENV" env-default:"development"`
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Auth   AuthConfig   `yaml:"auth"`
	CORS   CORSConfig   `yaml:"cors"`
	Redis  RedisConfig  `yaml:"redis"`
	Upload UploadConfig `yaml:"upload"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"5001"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type MongoConfig struct {
	URI          string `yaml:"uri"          env:"MONGODB_URI"          env-required:"true"`
	Database     string `yaml:"database"     env:"MONGODB_DATABASE"     env-default:"spotfix"`
	Transactions bool   `yaml:"transactions" env:"MONGODB_TRANSACTIONS" env-default:"false"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"JWT_TTL"    env-default:"168h"`
}

type CORSConfig struct {
	Origins     string `yaml:"origins"      env:"CORS_ORIGINS" env-default:"http://localhost:5173"`
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL"`
}

type RedisConfig struct {
	Address         string `yaml:"address"           env:"REDIS_ADDRESS"`
	Password        string `yaml:"password"          env:"REDIS_PASSWORD"`
	IssueQueue      string `yaml:"issue_queue"       env:"REDIS_QUEUE_FOR_ISSUE_LIMIT" env-default:"spotfix:issue-limit"`
	IssueDailyLimit int    `yaml:"issue_daily_limit" env:"ISSUE_DAILY_LIMIT"           env-default:"20"`
}

type UploadConfig struct {
	Backend  string `yaml:"backend"   env:"UPLOAD_BACKEND" env-default:"disk"`
	Dir      string `yaml:"dir"       env:"UPLOAD_DIR"     env-default:"uploads"`
	S3Bucket string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Region string `yaml:"s3_region" env:"S3_REGION"      env-default:"us-east-1"`
	S3Prefix string `yaml:"s3_prefix" env:"S3_PREFIX"      env-default:"issues"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads configuration from the environment, layered over an optional
// YAML file named by CONFIG_PATH.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Redis.IssueDailyLimit < 1 {
		errs = append(errs, errors.New("ISSUE_DAILY_LIMIT must be at least 1"))
	}
	switch c.Upload.Backend {
	case "disk":
		if c.Upload.Dir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the disk backend"))
		}
	case "s3":
		if c.Upload.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("UPLOAD_BACKEND %q must be disk or s3", c.Upload.Backend))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether error details must be withheld from responses.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AllowedOrigins merges CORS_ORIGINS and FRONTEND_URL without duplicates.
func (c CORSConfig) AllowedOrigins() []string {
	seen := map[string]bool{}
	var origins []string
	for _, o := range append(strings.Split(c.Origins, ","), c.FrontendURL) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}
