// Package config loads application configuration from environment variables
// and the users file.
//
// Process settings come from the environment (optionally seeded from a .env
// file). Accounts, their public base URLs, and optionally the database DSN
// and webhook URL come from a TOML file:
//
//	[users.alice]
//	id = 7
//	token = "eyJhbGciOiJIUzUxMiJ9..."
//
//	[web]
//	alice = ["https://i.example.com"]
//
//	[database]
//	dsn = "postgres://..."
//
//	[webhook]
//	url = "https://hooks.example.com/upload"
//
// Environment variables win over file values. User names are case-insensitive
// and normalised to lower case.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mediagate/uploader/internal/user"
)

// Storage drivers.
const (
	DriverLocal = "local"
	DriverMinio = "minio"
)

// Config holds all runtime configuration for the service. It is built once
// at startup and never modified.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	DatabaseURL string

	ImageRoot    string
	AudioRoot    string
	PublicURL    string // base of deletion links and the client config
	AudioBaseURL string

	WebhookURL     string
	WebhookAsync   bool
	WebhookTimeout time.Duration

	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int

	// Object storage (S3-compatible), used when StorageDriver is "minio".
	StorageDriver      string
	StorageEndpoint    string
	StorageAccessKey   string
	StorageSecretKey   string
	StorageBucket      string
	StorageAudioBucket string
	StorageUseSSL      bool

	Users []user.User

	// DotenvLoaded records whether a .env file was found.
	DotenvLoaded bool
}

type fileUser struct {
	ID    int64  `mapstructure:"id"`
	Token string `mapstructure:"token"`
}

type fileConfig struct {
	Users    map[string]fileUser `mapstructure:"users"`
	Web      map[string][]string `mapstructure:"web"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Webhook struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"webhook"`
}

// Load reads configuration from a .env file (if present), environment
// variables, and the users file named by CONFIG_FILE.
func Load() (*Config, error) {
	dotenv := godotenv.Load() == nil

	file, err := readFile(getEnv("CONFIG_FILE", "config.toml"))
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(getEnv("WEBHOOK_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("parse WEBHOOK_TIMEOUT: %w", err)
	}
	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "104857600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
	}
	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "9000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", file.Database.DSN),

		ImageRoot:    getEnv("IMAGE_ROOT", "/etc/images"),
		AudioRoot:    getEnv("AUDIO_ROOT", "/etc/audio"),
		PublicURL:    strings.TrimRight(getEnv("PUBLIC_URL", "https://upload.umbra-is.gay"), "/"),
		AudioBaseURL: strings.TrimRight(getEnv("AUDIO_BASE_URL", "https://audio.saikoro.moe"), "/"),

		WebhookURL:     getEnv("WEBHOOK_URL", file.Webhook.URL),
		WebhookAsync:   getEnv("WEBHOOK_MODE", "sync") == "async",
		WebhookTimeout: timeout,

		MaxUploadBytes: maxUpload,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,

		StorageDriver:      getEnv("STORAGE_DRIVER", DriverLocal),
		StorageEndpoint:    getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:   getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:   getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:      getEnv("STORAGE_BUCKET", "images"),
		StorageAudioBucket: getEnv("STORAGE_AUDIO_BUCKET", "audio"),
		StorageUseSSL:      getEnv("STORAGE_USE_SSL", "false") == "true",

		Users:        file.users(),
		DotenvLoaded: dotenv,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Directory builds the immutable user table.
func (c *Config) Directory() (*user.Directory, error) {
	return user.NewDirectory(c.Users)
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("no database configured: set DATABASE_URL or [database] dsn")
	}
	if c.StorageDriver != DriverLocal && c.StorageDriver != DriverMinio {
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if mode := getEnv("WEBHOOK_MODE", "sync"); mode != "sync" && mode != "async" {
		return fmt.Errorf("WEBHOOK_MODE must be sync or async, got %q", mode)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("no users configured")
	}
	for _, u := range c.Users {
		if len(u.URLs) == 0 {
			return fmt.Errorf("user %q has no [web] URLs", u.Name)
		}
	}
	if _, err := c.Directory(); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	return nil
}

func readFile(path string) (*fileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return &fc, nil
}

// users merges [users] and [web] into a list sorted by id.
func (fc *fileConfig) users() []user.User {
	out := make([]user.User, 0, len(fc.Users))
	for name, u := range fc.Users {
		out = append(out, user.User{
			Name:  name,
			ID:    u.ID,
			Token: u.Token,
			URLs:  trimURLs(fc.Web[name]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func trimURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
