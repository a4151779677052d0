package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facilityops/sensor-dashboard/services/watcher/internal/models"
	"github.com/facilityops/sensor-dashboard/services/watcher/internal/utils"
)

func intPtr(v int) *int { return &v }

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	received := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)

	tests := map[string]struct {
		topic   string
		payload string

		want    models.RecordRow
		wantErr bool
	}{
		"Full envelope": {
			topic:   "facility/sensors/rack-1/temperature",
			payload: `{"deviceId":7,"deviceName":"rack-1","containmentId":2,"sensorType":"Temperature","timestamp":"2024-05-01T09:59:00+02:00","payload":{"temp":21.5}}`,
			want: models.RecordRow{
				DeviceID:      7,
				DeviceName:    "rack-1",
				ContainmentID: intPtr(2),
				SensorType:    "Temperature",
				TS:            time.Date(2024, 5, 1, 7, 59, 0, 0, time.UTC),
				RawPayload:    `{"temp":21.5}`,
			},
		},
		"Sensor type from topic and receipt time": {
			topic:   "facility/sensors/7/Vibration",
			payload: `{"deviceId":7,"payload": {"vibration_x":3} }`,
			want: models.RecordRow{
				DeviceID:   7,
				SensorType: "Vibration",
				TS:         time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC),
				RawPayload: `{"vibration_x":3}`,
			},
		},
		"Timestamp without zone is UTC": {
			topic:   "facility/sensors/dust",
			payload: `{"deviceId":1,"sensorType":"Dust Sensor","timestamp":"2024-05-01T08:00:00","payload":{}}`,
			want: models.RecordRow{
				DeviceID:   1,
				SensorType: "Dust Sensor",
				TS:         time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
				RawPayload: `{}`,
			},
		},

		"Error on invalid JSON":          {topic: "facility/sensors/x", payload: `{deviceId`, wantErr: true},
		"Error on missing device":        {topic: "facility/sensors/x", payload: `{"payload":{}}`, wantErr: true},
		"Error on array payload":         {topic: "facility/sensors/x", payload: `{"deviceId":1,"payload":[1]}`, wantErr: true},
		"Error on missing payload":       {topic: "facility/sensors/x", payload: `{"deviceId":1}`, wantErr: true},
		"Error on wildcard-only type":    {topic: "facility/sensors/#", payload: `{"deviceId":1,"payload":{}}`, wantErr: true},
		"Error on unparseable timestamp": {topic: "facility/sensors/x", payload: `{"deviceId":1,"timestamp":"yesterday","payload":{}}`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := utils.ParseEnvelope(tc.topic, []byte(tc.payload), received)
			if tc.wantErr {
				require.ErrorIs(t, err, utils.ErrInvalidEnvelope)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBuildDeviceRows(t *testing.T) {
	t.Parallel()

	rows := []models.RecordRow{
		{DeviceID: 2, DeviceName: "rack-2"},
		{DeviceID: 1},
		{DeviceID: 2, ContainmentID: intPtr(4)},
		{DeviceID: 1, DeviceName: "rack-1"},
	}

	got := utils.BuildDeviceRows(rows)
	require.Equal(t, []models.DeviceRow{
		{ID: 1, Name: "rack-1"},
		{ID: 2, Name: "rack-2", ContainmentID: intPtr(4)},
	}, got)
}

func TestSeriesKeys(t *testing.T) {
	t.Parallel()

	rows := []models.RecordRow{
		{DeviceID: 1, SensorType: "Temperature"},
		{DeviceID: 1, SensorType: "Humidity"},
		{DeviceID: 1, SensorType: "Temperature"},
		{DeviceID: 2, SensorType: "Temperature"},
	}

	require.Equal(t, []models.SeriesKey{
		{DeviceID: 1, SensorType: "Temperature"},
		{DeviceID: 1, SensorType: "Humidity"},
		{DeviceID: 2, SensorType: "Temperature"},
	}, utils.SeriesKeys(rows))
}

func TestFilterNewRecords(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	row := func(device int, offset time.Duration, payload string) models.RecordRow {
		return models.RecordRow{DeviceID: device, SensorType: "Temperature", TS: base.Add(offset), RawPayload: payload}
	}

	tests := map[string]struct {
		rows []models.RecordRow
		last map[models.SeriesKey]models.LastRecord

		wantKept int
	}{
		"Unknown series is kept": {
			rows:     []models.RecordRow{row(1, 0, `{"temp":1}`)},
			wantKept: 1,
		},
		"Identical payload within interval is dropped": {
			rows: []models.RecordRow{row(1, time.Minute, `{"temp":1}`)},
			last: map[models.SeriesKey]models.LastRecord{
				{DeviceID: 1, SensorType: "Temperature"}: {RawPayload: `{ "temp": 1 }`, TS: base},
			},
			wantKept: 0,
		},
		"Changed payload within interval is kept": {
			rows: []models.RecordRow{row(1, time.Minute, `{"temp":2}`)},
			last: map[models.SeriesKey]models.LastRecord{
				{DeviceID: 1, SensorType: "Temperature"}: {RawPayload: `{"temp":1}`, TS: base},
			},
			wantKept: 1,
		},
		"Identical payload after interval is kept": {
			rows: []models.RecordRow{row(1, 5*time.Minute, `{"temp":1}`)},
			last: map[models.SeriesKey]models.LastRecord{
				{DeviceID: 1, SensorType: "Temperature"}: {RawPayload: `{"temp":1}`, TS: base},
			},
			wantKept: 1,
		},
		"Duplicates inside one batch are dropped": {
			rows:     []models.RecordRow{row(1, 0, `{"temp":1}`), row(1, time.Second, `{"temp":1}`), row(2, time.Second, `{"temp":1}`)},
			wantKept: 2,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			last := tc.last
			if last == nil {
				last = map[models.SeriesKey]models.LastRecord{}
			}
			got := utils.FilterNewRecords(tc.rows, last, 5*time.Minute)
			require.Len(t, got, tc.wantKept)
			for _, r := range got {
				require.Equal(t, r.TS, last[r.Key()].TS, "last record must follow kept rows")
			}
		})
	}
}

func TestTopicSensorType(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		topic string
		want  string
	}{
		"Last segment":   {topic: "facility/sensors/7/Air Flow", want: "Air Flow"},
		"Single segment": {topic: "pressure", want: "pressure"},
		"Multi wildcard": {topic: "facility/#", want: ""},
		"Trailing slash": {topic: "facility/sensors/", want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, utils.TopicSensorType(tc.topic))
		})
	}
}
