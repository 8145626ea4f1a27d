// package config loads application configuration from the environment,
// an optional .env file and an optional YAML overlay.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const minSecretLen = 32

// Config holds all application configuration.
type Config struct {
	// remote api
	APIBaseURL string        `yaml:"api_base_url"`
	APITimeout time.Duration `yaml:"api_timeout"`
	APIRPS     float64       `yaml:"api_rps"`
	APIBurst   int           `yaml:"api_burst"`

	// durable client state
	StorageDSN string `yaml:"storage_dsn"`

	// nats, empty disables auth event publishing
	NatsURL string `yaml:"nats_url"`

	// server
	HTTPPort       int      `yaml:"http_port"`
	PublicURL      string   `yaml:"public_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// browser sessions, SessionSecret signs the client cookie and a random
	// one is generated when empty
	SessionSecret string        `yaml:"session_secret"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`
	ClientIdleTTL time.Duration `yaml:"client_idle_ttl"`

	// route guard requires an auth type marker on protected pages
	StrictGuard bool `yaml:"strict_guard"`

	// telegram
	TGBotToken    string `yaml:"tg_bot_token"`
	TGBotUsername string `yaml:"tg_bot_username"`
	TGAppName     string `yaml:"tg_app_name"`

	// logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Load reads configuration with sensible defaults. Precedence, lowest first:
// defaults, .env file, process environment, YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := fromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile builds a config from the environment and the YAML file at path,
// rejecting keys the file should not contain.
func LoadFile(path string) (*Config, error) {
	cfg := fromEnv()
	if err := cfg.applyFile(path, true); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api"),
		APITimeout:     getEnvDuration("API_TIMEOUT", 15*time.Second),
		APIRPS:         getEnvFloat("API_RPS", 5),
		APIBurst:       getEnvInt("API_BURST", 2),
		StorageDSN:     getEnv("STORAGE_DSN", "./data/finlog.db"),
		NatsURL:        getEnv("NATS_URL", ""),
		HTTPPort:       getEnvInt("HTTP_PORT", 3100),
		PublicURL:      getEnv("PUBLIC_URL", "http://localhost:3100"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"https://web.telegram.org"}),
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		SessionMaxAge:  getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		ClientIdleTTL:  getEnvDuration("CLIENT_IDLE_TTL", 30*time.Minute),
		StrictGuard:    getEnvBool("STRICT_GUARD", false),
		TGBotToken:     getEnv("TG_BOT_TOKEN", ""),
		TGBotUsername:  getEnv("TG_BOT_USERNAME", ""),
		TGAppName:      getEnv("TG_APP_NAME", "app"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
}

// ApplyFile overlays values from a YAML file. Keys absent from the file keep
// their current values.
func (c *Config) ApplyFile(path string) error {
	return c.applyFile(path, false)
}

func (c *Config) applyFile(path string, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(strict)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would make the client unusable.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if c.APIRPS <= 0 {
		return fmt.Errorf("api_rps must be positive, got %v", c.APIRPS)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < minSecretLen {
		return fmt.Errorf("session_secret must be at least %d bytes", minSecretLen)
	}
	if c.SessionMaxAge <= 0 || c.ClientIdleTTL <= 0 {
		return fmt.Errorf("session_max_age and client_idle_ttl must be positive")
	}
	return nil
}

// SecureCookies reports whether the client is served over https.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicURL, "https://")
}

// TelegramEnabled reports whether the launcher bot can run.
func (c *Config) TelegramEnabled() bool {
	return c.TGBotToken != "" && c.TGBotUsername != ""
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
