package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/sensor-dashboard/services/watcher/internal/config"
)

func TestFromViper(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		env map[string]string

		want    config.Config
		wantErr bool
	}{
		"Defaults": {
			env: map[string]string{"DATABASE_URL": "postgres://db"},
			want: config.Config{
				DatabaseURL:   "postgres://db",
				Broker:        "tcp://localhost:1883",
				Topic:         "facility/sensors/#",
				KeepAlive:     30 * time.Second,
				MinInterval:   5 * time.Minute,
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
				LogLevel:      slog.LevelInfo,
			},
		},
		"Overrides": {
			env: map[string]string{
				"DATABASE_URL":           "postgres://db",
				"MQTT_BROKER":            "tcp://broker:1883",
				"MQTT_TOPIC":             "plant/+/sensors/#",
				"MQTT_CLIENT_ID":         "rack-watcher",
				"MQTT_USERNAME":          "watcher",
				"MQTT_PASSWORD":          "secret",
				"MQTT_KEEPALIVE":         "65535s",
				"WATCHER_MIN_INTERVAL":   "30s",
				"WATCHER_BATCH_SIZE":     "10",
				"WATCHER_FLUSH_INTERVAL": "1s",
				"DRY_RUN":                "true",
				"LOG_LEVEL":              "debug",
			},
			want: config.Config{
				DatabaseURL:   "postgres://db",
				Broker:        "tcp://broker:1883",
				Topic:         "plant/+/sensors/#",
				Username:      "watcher",
				Password:      "secret",
				KeepAlive:     65535 * time.Second,
				MinInterval:   30 * time.Second,
				BatchSize:     10,
				FlushInterval: time.Second,
				DryRun:        true,
				LogLevel:      slog.LevelDebug,
			},
		},
		"Dry run without database": {
			env: map[string]string{"DRY_RUN": "1"},
			want: config.Config{
				Broker:        "tcp://localhost:1883",
				Topic:         "facility/sensors/#",
				KeepAlive:     30 * time.Second,
				MinInterval:   5 * time.Minute,
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
				DryRun:        true,
				LogLevel:      slog.LevelInfo,
			},
		},

		"Error when DATABASE_URL is missing": {env: map[string]string{}, wantErr: true},
		"Error on invalid min interval":      {env: map[string]string{"DATABASE_URL": "x", "WATCHER_MIN_INTERVAL": "5 minutes"}, wantErr: true},
		"Error on invalid batch size":        {env: map[string]string{"DATABASE_URL": "x", "WATCHER_BATCH_SIZE": "0"}, wantErr: true},
		"Error on zero flush interval":       {env: map[string]string{"DATABASE_URL": "x", "WATCHER_FLUSH_INTERVAL": "0s"}, wantErr: true},
		"Error on invalid log level":         {env: map[string]string{"DATABASE_URL": "x", "LOG_LEVEL": "loud"}, wantErr: true},
		"Error on negative keep alive":       {env: map[string]string{"DATABASE_URL": "x", "MQTT_KEEPALIVE": "-1s"}, wantErr: true},
		"Error on keep alive overflow":       {env: map[string]string{"DATABASE_URL": "x", "MQTT_KEEPALIVE": "65536s"}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			v := viper.New()
			for k, val := range tc.env {
				v.Set(k, val)
			}

			got, err := config.FromViper(v)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			wantPrefix := "sensor-watcher-"
			if id, ok := tc.env["MQTT_CLIENT_ID"]; ok {
				wantPrefix = id + "-"
			}
			require.True(t, strings.HasPrefix(got.ClientID, wantPrefix), "client id %q", got.ClientID)
			require.Len(t, got.ClientID, len(wantPrefix)+8)
			got.ClientID = ""

			require.Equal(t, tc.want, got)
		})
	}
}
