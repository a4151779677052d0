package charts

import (
	"errors"
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
)

// ErrInvalidTimestamp is returned when a record timestamp is not ISO-8601.
var ErrInvalidTimestamp = errors.New("invalid record timestamp")

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := iso8601.ParseString(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return t, nil
}

// Normalize converts one raw record into a chart point for range r.
// Records whose payload or timestamp cannot be parsed return an error and
// must be skipped by the caller.
func Normalize(rec RawRecord, r Range, loc *time.Location) (Point, error) {
	at, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return Point{}, err
	}

	payload, err := ParsePayload(rec.SensorType, rec.RawPayload)
	if err != nil {
		return Point{}, err
	}

	return Point{
		Timestamp:     rec.Timestamp,
		FormattedTime: r.FormatTime(at, loc),
		SensorType:    rec.SensorType,
		DeviceName:    rec.DeviceName(),
		Fields:        payload.fields(),
		at:            at,
	}, nil
}
