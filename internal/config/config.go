package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tailscale/hujson"
)

//go:embed schema.json
var schemaJSON string

type Config struct {
	Server    ServerConfig    `json:"server"`
	Store     StoreConfig     `json:"store"`
	Client    ClientConfig    `json:"client"`
	Host      HostConfig      `json:"host"`
	Intercept InterceptConfig `json:"intercept"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	ListenAddr       string `json:"listen_addr"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	PanelPath        string `json:"panel_path"`
	SessionPath      string `json:"session_path"`
	PanelAuthToken   string `json:"panel_auth_token"`
	SessionAuthToken string `json:"session_auth_token"`
}

type StoreConfig struct {
	// Driver is memory, redis or sqlite. Empty picks redis when RedisAddr is
	// set and memory otherwise.
	Driver     string `json:"driver"`
	RedisAddr  string `json:"redis_addr"`
	SQLitePath string `json:"sqlite_path"`
}

type ClientConfig struct {
	Enabled                  bool       `json:"enabled"`
	ReconnectIntervalSeconds int        `json:"reconnect_interval_seconds"`
	Upstreams                []Upstream `json:"upstreams"`
}

// Upstream is a game server the bridge dials and treats as a session.
type Upstream struct {
	EndpointID string `json:"endpoint_id"`
	URL        string `json:"url"`
	AuthToken  string `json:"auth_token,omitempty"`
}

type HostConfig struct {
	Version     string `json:"version"`
	ProfilePath string `json:"profile_path"`
}

type InterceptConfig struct {
	BlockedKinds []string `json:"blocked_kinds"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:       envOrDefault("BRIDGE_LISTEN_ADDR", ":8080"),
			PanelPath:        "/ws/panel",
			SessionPath:      "/ws/session",
			PanelAuthToken:   os.Getenv("PANEL_AUTH_TOKEN"),
			SessionAuthToken: os.Getenv("SESSION_AUTH_TOKEN"),
		},
		Store: StoreConfig{
			RedisAddr:  os.Getenv("REDIS_ADDR"),
			SQLitePath: os.Getenv("SQLITE_PATH"),
		},
		Client: ClientConfig{
			Enabled:                  false,
			ReconnectIntervalSeconds: 5,
		},
		Host: HostConfig{
			Version: envOrDefault("HOST_VERSION", "v1_10_R1"),
		},
		Log: LogConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: "text",
		},
	}
}

// Load reads a JSON config file, comments and trailing commas allowed, over
// the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, normalize(&cfg)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config failed: %w", err)
	}
	if err := Parse(content, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes content over cfg and normalizes the result.
func Parse(content []byte, cfg *Config) error {
	std, err := hujson.Standardize(content)
	if err != nil {
		return fmt.Errorf("parse config failed: %w", err)
	}
	if err := validate(std); err != nil {
		return err
	}
	if err := json.Unmarshal(std, cfg); err != nil {
		return fmt.Errorf("parse config failed: %w", err)
	}
	return normalize(cfg)
}

func validate(std []byte) error {
	schema, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile config schema failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(std, &doc); err != nil {
		return fmt.Errorf("parse config failed: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func normalize(cfg *Config) error {
	if cfg.Server.PanelPath == "" {
		cfg.Server.PanelPath = "/ws/panel"
	}
	if cfg.Server.SessionPath == "" {
		cfg.Server.SessionPath = "/ws/session"
	}
	if cfg.Server.ListenAddr == "" {
		if cfg.Server.Host != "" && cfg.Server.Port > 0 {
			cfg.Server.ListenAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		} else {
			cfg.Server.ListenAddr = ":8080"
		}
	}
	if cfg.Client.ReconnectIntervalSeconds <= 0 {
		cfg.Client.ReconnectIntervalSeconds = 5
	}
	if cfg.Store.Driver == "" {
		if cfg.Store.RedisAddr != "" {
			cfg.Store.Driver = "redis"
		} else {
			cfg.Store.Driver = "memory"
		}
	}
	switch cfg.Store.Driver {
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("store driver redis needs redis_addr")
		}
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			return fmt.Errorf("store driver sqlite needs sqlite_path")
		}
	}
	if cfg.Host.Version == "" {
		cfg.Host.Version = "v1_10_R1"
	}
	return nil
}

// Logger builds the process logger from the log section.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c LogConfig) level() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
