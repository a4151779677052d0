package charts

import (
	"encoding/json"
	"strconv"
	"time"
)

// isoLayout matches the millisecond UTC form produced by browsers' toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Device carries the optional display metadata of a record's device.
type Device struct {
	Name string `json:"name"`
}

// RawRecord is a sensor record as served by the record store.
type RawRecord struct {
	Timestamp  string  `json:"timestamp"`
	SensorType string  `json:"sensorType"`
	DeviceID   int     `json:"deviceId"`
	Device     *Device `json:"device,omitempty"`
	RawPayload string  `json:"rawPayload"`
}

// DeviceName returns the device display name or "".
func (r RawRecord) DeviceName() string {
	if r.Device == nil {
		return ""
	}
	return r.Device.Name
}

// Point is a chart-ready data point. For aggregated series it represents a
// bucket and its fields are bucket means.
type Point struct {
	Timestamp     string
	FormattedTime string
	SensorType    string
	DeviceName    string
	Fields        map[string]float64

	at         time.Time
	aggregated bool
}

// Time returns the instant the point is plotted at.
func (p Point) Time() time.Time {
	return p.at
}

// Aggregated reports whether the point is a bucket mean.
func (p Point) Aggregated() bool {
	return p.aggregated
}

// Value returns a numeric field and whether the point carries it.
func (p Point) Value(field string) (float64, bool) {
	v, ok := p.Fields[field]
	return v, ok
}

// Format renders a field the way it is sent to chart consumers.
func (p Point) Format(field string) (string, bool) {
	v, ok := p.Fields[field]
	if !ok {
		return "", false
	}
	if field == FieldVibrationMagnitude && !p.aggregated {
		return strconv.FormatFloat(v, 'f', 3, 64), true
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// flatten produces the flat key/value form consumed by charts.
func (p Point) flatten() map[string]any {
	out := make(map[string]any, len(p.Fields)+4)
	out["timestamp"] = p.Timestamp
	out["formattedTime"] = p.FormattedTime
	out["sensorType"] = p.SensorType
	out["deviceName"] = p.DeviceName
	for k, v := range p.Fields {
		if k == FieldVibrationMagnitude && !p.aggregated {
			s, _ := p.Format(k)
			out[k] = s
			continue
		}
		out[k] = v
	}
	return out
}

// MarshalJSON emits the point as a single flat object.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.flatten())
}

// MarshalYAML emits the point as a single flat mapping.
func (p Point) MarshalYAML() (any, error) {
	return p.flatten(), nil
}
