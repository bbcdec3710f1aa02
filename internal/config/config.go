package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/infohub/internal/client"
	"github.com/kjstillabower/infohub/internal/models"
	"github.com/kjstillabower/infohub/internal/validation"
)

// Config holds service configuration loaded from YAML, .env and env.
type Config struct {
	Env        string
	ServerPort string

	APIKey       string
	GenAIURL     string
	GenAIModel   string
	GenAITimeout time.Duration // 0 means no deadline

	SessionBackend        string // "in_memory" or "memcached"
	SessionIdleTTL        time.Duration
	SessionPreferenceTTL  time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	// StaticLocation, when set, replaces browser geolocation for every session.
	StaticLocation *models.Position

	DefaultPrincipal string

	RefreshRateLimitRPS   float64
	RefreshRateLimitBurst int

	ShutdownTimeout time.Duration
	InFlightTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	GenAI struct {
		URL     string `yaml:"url"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"genai"`

	Session struct {
		Backend       string `yaml:"backend"`
		IdleTTL       string `yaml:"idle_ttl"`
		PreferenceTTL string `yaml:"preference_ttl"`
		Memcached     struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"session"`

	Location struct {
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
	} `yaml:"location"`

	Currency struct {
		DefaultPrincipal string `yaml:"default_principal"`
	} `yaml:"currency"`

	Reliability struct {
		RefreshRateLimitRPS   float64 `yaml:"refresh_rate_limit_rps"`
		RefreshRateLimitBurst int     `yaml:"refresh_rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout         string `yaml:"timeout"`
		InFlightTimeout string `yaml:"inflight_timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	APIKey string `yaml:"api_key"`
}

// ErrMissingAPIKey is returned when no credential is found in env, .env or secrets.
var ErrMissingAPIKey = errors.New("API_KEY required (set env, .env or config/secrets.yaml api_key)")

// Load reads configuration from config/{ENV_NAME}.yaml (default dev),
// config/secrets.yaml and a .env file in the working directory. Variables
// already set in the environment win over .env. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env file: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{Env: env}

	cfg.ServerPort = firstNonEmpty(os.Getenv("SERVER_PORT"), fc.Server.Port, "8080")

	cfg.APIKey = firstNonEmpty(os.Getenv("API_KEY"), os.Getenv("GEMINI_API_KEY"))
	if cfg.APIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.APIKey = strings.TrimSpace(sec.APIKey)
		}
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg.GenAIURL = firstNonEmpty(fc.GenAI.URL, client.DefaultBaseURL)
	cfg.GenAIModel = firstNonEmpty(fc.GenAI.Model, client.DefaultModel)
	cfg.GenAITimeout = parseDurationOrZero(fc.GenAI.Timeout, 0)

	cfg.SessionBackend = strings.ToLower(firstNonEmpty(os.Getenv("SESSION_BACKEND"), fc.Session.Backend, "in_memory"))
	cfg.SessionIdleTTL = parseDuration(fc.Session.IdleTTL, 30*time.Minute)
	cfg.SessionPreferenceTTL = parseDuration(fc.Session.PreferenceTTL, 7*24*time.Hour)
	cfg.MemcachedAddrs = firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Session.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Session.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Session.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	if lat, lon := fc.Location.Latitude, fc.Location.Longitude; lat != nil || lon != nil {
		if lat == nil || lon == nil {
			return nil, fmt.Errorf("location.latitude and location.longitude must be set together")
		}
		pos, err := validation.ValidatePosition(*lat, *lon)
		if err != nil {
			return nil, fmt.Errorf("location: %w", err)
		}
		cfg.StaticLocation = &pos
	}

	cfg.DefaultPrincipal = firstNonEmpty(fc.Currency.DefaultPrincipal, "1000")

	cfg.RefreshRateLimitRPS = fc.Reliability.RefreshRateLimitRPS
	if cfg.RefreshRateLimitRPS <= 0 {
		cfg.RefreshRateLimitRPS = 2
	}
	cfg.RefreshRateLimitBurst = fc.Reliability.RefreshRateLimitBurst
	if cfg.RefreshRateLimitBurst <= 0 {
		cfg.RefreshRateLimitBurst = 5
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero is returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.GenAITimeout < 0 {
		return fmt.Errorf("genai.timeout must not be negative")
	}
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", cfg.ServerPort)
	}
	switch cfg.SessionBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("session.backend must be in_memory or memcached, got %q", cfg.SessionBackend)
	}
	return nil
}
