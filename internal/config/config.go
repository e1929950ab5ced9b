package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider kinds.
const (
	ProviderPostGIS  = "postgis"
	ProviderOverpass = "overpass"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Provider ProviderConfig `yaml:"provider"`
	PostGIS  PostGISConfig  `yaml:"postgis"`
	Overpass OverpassConfig `yaml:"overpass"`
	Geo      GeoConfig      `yaml:"geo"`
	Profiles ProfilesConfig `yaml:"profiles"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// HermesConfig configures event publishing. An empty URL disables it.
type HermesConfig struct {
	URL string `yaml:"url"`
}

type ProviderConfig struct {
	Kind        string `yaml:"kind"`
	Parallelism int    `yaml:"parallelism"`
}

type PostGISConfig struct {
	Schema string `yaml:"schema"`
	SRID   int    `yaml:"srid"`
}

type OverpassConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// GeoConfig bounds the points and radii providers accept.
type GeoConfig struct {
	MinLat    float64 `yaml:"min_lat"`
	MaxLat    float64 `yaml:"max_lat"`
	MinLon    float64 `yaml:"min_lon"`
	MaxLon    float64 `yaml:"max_lon"`
	MaxRadius float64 `yaml:"max_radius"`
}

// ProfilesConfig points at a profile table. An empty path uses the built-in one.
type ProfilesConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	DefaultType        string   `yaml:"default_type"`
	DefaultRadius      float64  `yaml:"default_radius"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	CORSOrigins        []string `yaml:"cors_origins"`
	BatchLimit         int      `yaml:"batch_limit"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

func (c *Config) OverpassTimeout() time.Duration {
	return time.Duration(c.Overpass.TimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Provider: ProviderConfig{
			Kind:        ProviderPostGIS,
			Parallelism: 4,
		},
		PostGIS: PostGISConfig{
			Schema: "public",
			SRID:   2180,
		},
		Overpass: OverpassConfig{
			URL:       "https://overpass-api.de/api/interpreter",
			TimeoutMs: 25000,
		},
		Geo: GeoConfig{
			MinLat:    49.0,
			MaxLat:    54.9,
			MinLon:    14.1,
			MaxLon:    24.2,
			MaxRadius: 5000,
		},
		API: APIConfig{
			DefaultType:        "cafe",
			DefaultRadius:      500,
			RateLimitPerMinute: 120,
			CORSOrigins:        []string{"*"},
			BatchLimit:         50,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderPostGIS, ProviderOverpass:
	default:
		return fmt.Errorf("config: unknown provider kind %q", c.Provider.Kind)
	}
	if c.Geo.MinLat >= c.Geo.MaxLat || c.Geo.MinLon >= c.Geo.MaxLon {
		return fmt.Errorf("config: geo bounding box is empty")
	}
	if c.Geo.MaxRadius < 0 {
		return fmt.Errorf("config: geo.max_radius must not be negative")
	}
	if c.API.DefaultRadius <= 0 || (c.Geo.MaxRadius > 0 && c.API.DefaultRadius > c.Geo.MaxRadius) {
		return fmt.Errorf("config: api.default_radius %v outside (0, %v]", c.API.DefaultRadius, c.Geo.MaxRadius)
	}
	if c.API.BatchLimit < 1 {
		return fmt.Errorf("config: api.batch_limit must be at least 1")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SITESELECT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("SITESELECT_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("SITESELECT_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SITESELECT_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("SITESELECT_PROVIDER"); v != "" {
		cfg.Provider.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("SITESELECT_PROVIDER_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.Parallelism = n
		}
	}
	if v := os.Getenv("SITESELECT_POSTGIS_SCHEMA"); v != "" {
		cfg.PostGIS.Schema = v
	}
	if v := os.Getenv("SITESELECT_OVERPASS_URL"); v != "" {
		cfg.Overpass.URL = v
	}
	if v := os.Getenv("SITESELECT_MAX_RADIUS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Geo.MaxRadius = f
		}
	}
	if v := os.Getenv("SITESELECT_PROFILES_PATH"); v != "" {
		cfg.Profiles.Path = v
	}
	if v := os.Getenv("SITESELECT_CORS_ORIGINS"); v != "" {
		cfg.API.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SITESELECT_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("SITESELECT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SITESELECT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SITESELECT_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
