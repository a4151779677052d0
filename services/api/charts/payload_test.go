package charts_test

import (
	"testing"
	"time"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFields(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		sensorType string
		payload    string

		want map[string]float64
	}{
		"Temperature prefers temp over temperature": {
			sensorType: "Temperature",
			payload:    `{"temperature": 30, "temp": 21.5, "humidity": 40}`,
			want:       map[string]float64{"temp": 21.5, "hum": 40},
		},
		"Temperature falls back to aliases": {
			sensorType: "temperature",
			payload:    `{"temperature": 30, "humidity": 40}`,
			want:       map[string]float64{"temp": 30, "hum": 40},
		},
		"Temperature with quoted numbers": {
			sensorType: "TEMPERATURE",
			payload:    `{"temp": "19.5"}`,
			want:       map[string]float64{"temp": 19.5},
		},
		"Air flow": {
			sensorType: "Air Flow",
			payload:    `{"air_flow_lpm": 120.5, "air_pressure_hpa": 1012}`,
			want:       map[string]float64{"airFlow": 120.5, "pressure": 1012},
		},
		"Vibration with missing axis": {
			sensorType: "Vibration",
			payload:    `{"vibration_x": 3, "vibration_y": 4}`,
			want:       map[string]float64{"vibrationX": 3, "vibrationY": 4, "vibrationMagnitude": 5},
		},
		"Vibration without axes": {
			sensorType: "Vibration",
			payload:    `{}`,
			want:       map[string]float64{"vibrationMagnitude": 0},
		},
		"Dust sensor": {
			sensorType: "Dust Sensor",
			payload:    `{"dust_level_ug_m3": 12, "temperature": 22, "humidity": 45, "temp": 99}`,
			want:       map[string]float64{"dustLevel": 12, "temp": 22, "hum": 45},
		},
		"Humidity": {
			sensorType: "Humidity",
			payload:    `{"hum": 55, "temp": 23, "humidity": 99}`,
			want:       map[string]float64{"hum": 55, "temp": 23},
		},
		"Pressure": {
			sensorType: "Pressure",
			payload:    `{"air_pressure_hpa": 1001.3}`,
			want:       map[string]float64{"pressure": 1001.3},
		},
		"Out of range number only drops its field": {
			sensorType: "Temperature",
			payload:    `{"temp": 1e400, "hum": 50}`,
			want:       map[string]float64{"hum": 50},
		},
		"Out of range primary falls back to alias": {
			sensorType: "Temperature",
			payload:    `{"temp": -1e400, "temperature": 18}`,
			want:       map[string]float64{"temp": 18},
		},
		"Missing fields are omitted": {
			sensorType: "Pressure",
			payload:    `{"other": 1}`,
			want:       map[string]float64{},
		},
		"Unknown type keeps identity only": {
			sensorType: "Door Contact",
			payload:    `{"open": 1}`,
			want:       map[string]float64{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := charts.RawRecord{
				Timestamp:  "2024-05-01T10:00:00Z",
				SensorType: tc.sensorType,
				DeviceID:   3,
				RawPayload: tc.payload,
			}
			got, err := charts.Normalize(rec, charts.Range1h, nil)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Fields)
			require.Equal(t, tc.sensorType, got.SensorType)
			require.Equal(t, "10:00", got.FormattedTime)
			require.Empty(t, got.DeviceName)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		timestamp string
		payload   string

		wantErr error
	}{
		"Malformed JSON":    {timestamp: "2024-05-01T10:00:00Z", payload: "{not json", wantErr: charts.ErrMalformedPayload},
		"Empty payload":     {timestamp: "2024-05-01T10:00:00Z", payload: "", wantErr: charts.ErrMalformedPayload},
		"Null payload":      {timestamp: "2024-05-01T10:00:00Z", payload: "null", wantErr: charts.ErrMalformedPayload},
		"Array payload":     {timestamp: "2024-05-01T10:00:00Z", payload: "[1,2]", wantErr: charts.ErrMalformedPayload},
		"Trailing data":     {timestamp: "2024-05-01T10:00:00Z", payload: `{"temp": 1} {}`, wantErr: charts.ErrMalformedPayload},
		"Invalid timestamp": {timestamp: "yesterday", payload: `{"temp": 1}`, wantErr: charts.ErrInvalidTimestamp},
		"Empty timestamp":   {timestamp: "", payload: `{"temp": 1}`, wantErr: charts.ErrInvalidTimestamp},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := charts.Normalize(charts.RawRecord{
				Timestamp:  tc.timestamp,
				SensorType: "Temperature",
				RawPayload: tc.payload,
			}, charts.Range1h, nil)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestVibrationMagnitudeFormat(t *testing.T) {
	t.Parallel()

	p, err := charts.Normalize(charts.RawRecord{
		Timestamp:  "2024-05-01T10:00:00Z",
		SensorType: "Vibration",
		RawPayload: `{"vibration_x": 3, "vibration_y": 4, "vibration_z": 0}`,
	}, charts.Range1h, nil)
	require.NoError(t, err)

	got, ok := p.Format(charts.FieldVibrationMagnitude)
	require.True(t, ok)
	require.Equal(t, "5.000", got)

	p, err = charts.Normalize(charts.RawRecord{
		Timestamp:  "2024-05-01T10:00:00Z",
		SensorType: "Vibration",
		RawPayload: `{"vibration_x": 1, "vibration_y": 1, "vibration_z": 1}`,
	}, charts.Range1h, nil)
	require.NoError(t, err)

	got, _ = p.Format(charts.FieldVibrationMagnitude)
	require.Equal(t, "1.732", got)
}

func TestNormalizeFormattedTime(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		code string
		want string
	}{
		"1h":  {code: "1h", want: "14:07"},
		"6h":  {code: "6h", want: "14:07"},
		"24h": {code: "24h", want: "14:07"},
		"1d":  {code: "1d", want: "14:07"},
		"7d":  {code: "7d", want: "03/09 14:07"},
		"1w":  {code: "1w", want: "03/09 14:07"},
		"30d": {code: "30d", want: "03/09"},
		"1m":  {code: "1m", want: "03/09"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, err := charts.ParseRange(tc.code)
			require.NoError(t, err)

			p, err := charts.Normalize(charts.RawRecord{
				Timestamp:  "2024-03-09T14:07:31.250Z",
				SensorType: "Humidity",
				RawPayload: `{"hum": 1}`,
			}, r, time.UTC)
			require.NoError(t, err)
			require.Equal(t, tc.want, p.FormattedTime)
			require.Equal(t, "2024-03-09T14:07:31.250Z", p.Timestamp, "original timestamp is kept")
		})
	}
}
