package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // API_TIMEZONE must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/facilityops/sensor-dashboard/internal/logging"
	"github.com/facilityops/sensor-dashboard/services/api/charts"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL    string
	Port           int
	BearerToken    string
	DefaultRange   charts.Range
	Location       *time.Location
	MaxPageLimit   int
	DefaultLimit   int
	AutoMigrate    bool
	MetricsEnabled bool
	LogLevel       slog.Level
	LogJSON        bool
}

// Load reads configuration from environment variables (optionally .env and CONFIG_FILE).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("API_DEFAULT_RANGE", "24h")
	v.SetDefault("API_TIMEZONE", "UTC")
	v.SetDefault("API_MAX_PAGE_LIMIT", "500")
	v.SetDefault("API_DEFAULT_LIMIT", "100")
	v.SetDefault("METRICS_ENABLED", "true")
	v.SetDefault("LOG_LEVEL", "info")
	return v
}

// FromViper builds a Config from v, reading CONFIG_FILE first when set.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{Port: 8080}

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := v.GetString("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := v.GetString("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	r, err := charts.ParseRange(v.GetString("API_DEFAULT_RANGE"))
	if err != nil {
		return cfg, fmt.Errorf("invalid API_DEFAULT_RANGE: %w", err)
	}
	cfg.DefaultRange = r

	loc, err := time.LoadLocation(v.GetString("API_TIMEZONE"))
	if err != nil {
		return cfg, fmt.Errorf("invalid API_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.MaxPageLimit, err = positiveInt(v, "API_MAX_PAGE_LIMIT"); err != nil {
		return cfg, err
	}
	if cfg.DefaultLimit, err = positiveInt(v, "API_DEFAULT_LIMIT"); err != nil {
		return cfg, err
	}
	if cfg.DefaultLimit > cfg.MaxPageLimit {
		cfg.DefaultLimit = cfg.MaxPageLimit
	}

	if cfg.AutoMigrate, err = boolean(v, "AUTO_MIGRATE"); err != nil {
		return cfg, err
	}
	if cfg.MetricsEnabled, err = boolean(v, "METRICS_ENABLED"); err != nil {
		return cfg, err
	}
	if cfg.LogJSON, err = boolean(v, "LOG_JSON"); err != nil {
		return cfg, err
	}

	if cfg.LogLevel, err = logging.ParseLevel(v.GetString("LOG_LEVEL")); err != nil {
		return cfg, err
	}

	cfg.BearerToken = v.GetString("API_BEARER_TOKEN")

	return cfg, nil
}

func positiveInt(v *viper.Viper, key string) (int, error) {
	s := v.GetString(key)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", key, s)
	}
	return n, nil
}

func boolean(v *viper.Viper, key string) (bool, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", key, s)
	}
	return b, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
