package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/relvacode/iso8601"

	"github.com/facilityops/sensor-dashboard/services/watcher/internal/models"
)

// ErrInvalidEnvelope is returned for messages that cannot become a record.
var ErrInvalidEnvelope = errors.New("invalid sensor envelope")

// ParseEnvelope converts an MQTT message into a record row. The sensor type
// falls back to the last topic segment and the timestamp to receivedAt.
func ParseEnvelope(topic string, payload []byte, receivedAt time.Time) (models.RecordRow, error) {
	var env models.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return models.RecordRow{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.DeviceID <= 0 {
		return models.RecordRow{}, fmt.Errorf("%w: missing deviceId", ErrInvalidEnvelope)
	}

	raw := bytes.TrimSpace(env.Payload)
	if len(raw) == 0 || raw[0] != '{' {
		return models.RecordRow{}, fmt.Errorf("%w: payload must be an object", ErrInvalidEnvelope)
	}

	sensorType := strings.TrimSpace(env.SensorType)
	if sensorType == "" {
		sensorType = TopicSensorType(topic)
	}
	if sensorType == "" {
		return models.RecordRow{}, fmt.Errorf("%w: missing sensorType", ErrInvalidEnvelope)
	}

	ts := receivedAt.UTC()
	if s := strings.TrimSpace(env.Timestamp); s != "" {
		parsed, err := iso8601.ParseString(s)
		if err != nil {
			return models.RecordRow{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidEnvelope, s, err)
		}
		ts = parsed.UTC()
	}

	return models.RecordRow{
		DeviceID:      env.DeviceID,
		DeviceName:    strings.TrimSpace(env.DeviceName),
		ContainmentID: env.ContainmentID,
		SensorType:    sensorType,
		TS:            ts.Truncate(time.Millisecond),
		RawPayload:    string(raw),
	}, nil
}

// TopicSensorType returns the last non-wildcard segment of topic.
func TopicSensorType(topic string) string {
	parts := strings.Split(topic, "/")
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "#" || last == "+" {
		return ""
	}
	return last
}

// BuildDeviceRows collects one device row per device id, later rows winning.
func BuildDeviceRows(rows []models.RecordRow) []models.DeviceRow {
	byID := make(map[int]models.DeviceRow, len(rows))
	for _, r := range rows {
		dev := byID[r.DeviceID]
		dev.ID = r.DeviceID
		if r.DeviceName != "" {
			dev.Name = r.DeviceName
		}
		if r.ContainmentID != nil {
			dev.ContainmentID = r.ContainmentID
		}
		byID[r.DeviceID] = dev
	}

	out := make([]models.DeviceRow, 0, len(byID))
	for _, dev := range byID {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SeriesKeys extracts the distinct (device, sensor type) pairs of rows.
func SeriesKeys(rows []models.RecordRow) []models.SeriesKey {
	seen := make(map[models.SeriesKey]struct{}, len(rows))
	keys := make([]models.SeriesKey, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// FilterNewRecords selects rows that should be inserted. A row is dropped
// when it arrives within minInterval of the previous record of its series
// and carries an identical payload. last is updated with every kept row.
func FilterNewRecords(
	rows []models.RecordRow,
	last map[models.SeriesKey]models.LastRecord,
	minInterval time.Duration,
) []models.RecordRow {
	out := make([]models.RecordRow, 0, len(rows))
	for _, row := range rows {
		prev, ok := last[row.Key()]
		if ok && row.TS.Sub(prev.TS) < minInterval && PayloadsEqual(prev.RawPayload, row.RawPayload) {
			continue
		}
		out = append(out, row)
		if !ok || !row.TS.Before(prev.TS) {
			last[row.Key()] = models.LastRecord{RawPayload: row.RawPayload, TS: row.TS}
		}
	}
	return out
}

// PayloadsEqual compares two raw payloads ignoring insignificant whitespace.
func PayloadsEqual(a, b string) bool {
	if a == b {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, []byte(a)) != nil || json.Compact(&cb, []byte(b)) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
