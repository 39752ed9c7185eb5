// Package config loads judgecore's typed configuration from YAML with
// environment-variable overrides, mirroring the teacher's cmd/*/config.go
// load-then-override pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultRunTimeout      = 15 * time.Second
	defaultMemoryLimit     = "512m"
	defaultMaxFileBytes    = 50_000
	defaultMaxTotalBytes   = 200_000
	defaultMinSecurityScor = 60
	defaultBcryptRounds    = 12
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// DatabaseConfig holds the relational store DSN and pool sizing.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// RedisConfig holds the rate-limit counter store settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DockerConfig holds sandbox container engine settings.
type DockerConfig struct {
	Host            string `yaml:"host"`
	NetworkDisabled bool   `yaml:"networkDisabled"`
}

// GradingConfig holds execution and size limits.
type GradingConfig struct {
	RunTimeout        time.Duration `yaml:"runTimeout"`
	MemoryLimit       string        `yaml:"memoryLimit"`
	MaxFileBytes      int           `yaml:"maxFileBytes"`
	MaxTotalFileBytes int           `yaml:"maxTotalFileBytes"`
}

// DeploymentValidationConfig holds the C4 gate's settings.
type DeploymentValidationConfig struct {
	Enabled         bool `yaml:"enabled"`
	MinSecurityScore int `yaml:"minSecurityScore"`
}

// AuthConfig holds JWT verification, password hashing, and CSRF token
// signing settings.
type AuthConfig struct {
	JWTSecret    string `yaml:"jwtSecret"`
	SecretKey    string `yaml:"secretKey"`
	BcryptRounds int    `yaml:"bcryptRounds"`
}

// RateLimitConfig holds per-endpoint quotas (requests per hour).
type RateLimitConfig struct {
	RegisterPerHour int `yaml:"registerPerHour"`
	LoginPerHour    int `yaml:"loginPerHour"`
	RunPerHour      int `yaml:"runPerHour"`
	SubmitPerHour   int `yaml:"submitPerHour"`
}

// Config is judgecore's top-level configuration.
type Config struct {
	Server     ServerConfig               `yaml:"server"`
	Database   DatabaseConfig             `yaml:"database"`
	Redis      RedisConfig                `yaml:"redis"`
	Docker     DockerConfig               `yaml:"docker"`
	Grading    GradingConfig              `yaml:"grading"`
	Deployment DeploymentValidationConfig `yaml:"deploymentValidation"`
	Auth       AuthConfig                 `yaml:"auth"`
	RateLimit  RateLimitConfig            `yaml:"rateLimit"`
	AllowedOrigins []string                `yaml:"allowedOrigins"`
}

// Load reads path (if non-empty and present) then applies the well-known
// environment-variable overrides listed in applyEnvOverrides on top,
// matching the teacher's layered YAML-then-env config pattern.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file failed: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file failed: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required (DB_DSN or database.dsn)")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required (JWT_SECRET or auth.jwtSecret)")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         defaultHTTPAddr,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Grading: GradingConfig{
			RunTimeout:        defaultRunTimeout,
			MemoryLimit:       defaultMemoryLimit,
			MaxFileBytes:      defaultMaxFileBytes,
			MaxTotalFileBytes: defaultMaxTotalBytes,
		},
		Deployment: DeploymentValidationConfig{
			Enabled:          false,
			MinSecurityScore: defaultMinSecurityScor,
		},
		Auth: AuthConfig{
			BcryptRounds: defaultBcryptRounds,
		},
		RateLimit: RateLimitConfig{
			RegisterPerHour: 10,
			LoginPerHour:    20,
			RunPerHour:      50,
			SubmitPerHour:   30,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	strEnv("DB_DSN", &cfg.Database.DSN)
	strEnv("JWT_SECRET", &cfg.Auth.JWTSecret)
	strEnv("SECRET_KEY", &cfg.Auth.SecretKey)
	intEnv("BCRYPT_ROUNDS", &cfg.Auth.BcryptRounds)
	durEnv("RUN_TIMEOUT_SECONDS", &cfg.Grading.RunTimeout, time.Second)
	strEnv("MEMORY_LIMIT", &cfg.Grading.MemoryLimit)
	intEnv("MAX_FILE_SIZE", &cfg.Grading.MaxFileBytes)
	intEnv("MAX_TOTAL_FILES_SIZE", &cfg.Grading.MaxTotalFileBytes)
	strEnv("DOCKER_HOST", &cfg.Docker.Host)
	boolEnv("DOCKER_NETWORK_DISABLED", &cfg.Docker.NetworkDisabled)
	boolEnv("ENABLE_DEPLOYMENT_VALIDATION", &cfg.Deployment.Enabled)
	intEnv("MIN_SECURITY_SCORE", &cfg.Deployment.MinSecurityScore)
	strEnv("REDIS_ADDR", &cfg.Redis.Addr)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
}

func strEnv(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func intEnv(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func boolEnv(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func durEnv(name string, dst *time.Duration, unit time.Duration) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * unit
		}
	}
}
