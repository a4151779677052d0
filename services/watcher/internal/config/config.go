package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/facilityops/sensor-dashboard/internal/logging"
)

const (
	defaultBroker        = "tcp://localhost:1883"
	defaultTopic         = "facility/sensors/#"
	defaultClientPrefix  = "sensor-watcher"
	defaultMinInterval   = 5 * time.Minute
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	defaultKeepAlive     = 30 * time.Second
	maxKeepAlive         = 65535 * time.Second
)

// Config holds runtime configuration for the watcher service.
type Config struct {
	DatabaseURL   string
	Broker        string
	Topic         string
	ClientID      string
	Username      string
	Password      string
	KeepAlive     time.Duration
	MinInterval   time.Duration
	BatchSize     int
	FlushInterval time.Duration
	DryRun        bool
	LogLevel      slog.Level
	LogJSON       bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString("DATABASE_URL"))
	if cfg.DatabaseURL == "" && !dryRun(v) {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.Broker = strings.TrimSpace(v.GetString("MQTT_BROKER"))
	if cfg.Broker == "" {
		cfg.Broker = defaultBroker
	}

	cfg.Topic = strings.TrimSpace(v.GetString("MQTT_TOPIC"))
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}

	cfg.ClientID = strings.TrimSpace(v.GetString("MQTT_CLIENT_ID"))
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientPrefix
	}
	cfg.ClientID += "-" + uuid.NewString()[:8]

	cfg.Username = v.GetString("MQTT_USERNAME")
	cfg.Password = v.GetString("MQTT_PASSWORD")

	var err error
	if cfg.KeepAlive, err = duration(v, "MQTT_KEEPALIVE", defaultKeepAlive); err != nil {
		return cfg, err
	}
	// The CONNECT packet carries keep alive as a 16-bit count of seconds.
	if cfg.KeepAlive < 0 || cfg.KeepAlive > maxKeepAlive {
		return cfg, fmt.Errorf("invalid MQTT_KEEPALIVE: %s (must be between 0s and %s)", cfg.KeepAlive, maxKeepAlive)
	}
	if cfg.MinInterval, err = duration(v, "WATCHER_MIN_INTERVAL", defaultMinInterval); err != nil {
		return cfg, err
	}
	if cfg.FlushInterval, err = duration(v, "WATCHER_FLUSH_INTERVAL", defaultFlushInterval); err != nil {
		return cfg, err
	}
	if cfg.FlushInterval <= 0 {
		return cfg, fmt.Errorf("invalid WATCHER_FLUSH_INTERVAL: %s", cfg.FlushInterval)
	}

	cfg.BatchSize = defaultBatchSize
	if s := strings.TrimSpace(v.GetString("WATCHER_BATCH_SIZE")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid WATCHER_BATCH_SIZE: %s", s)
		}
		cfg.BatchSize = n
	}

	cfg.DryRun = dryRun(v)
	cfg.LogJSON = v.GetBool("LOG_JSON")
	if cfg.LogLevel, err = logging.ParseLevel(v.GetString("LOG_LEVEL")); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func dryRun(v *viper.Viper) bool {
	s := strings.TrimSpace(v.GetString("DRY_RUN"))
	return s == "1" || strings.EqualFold(s, "true")
}
