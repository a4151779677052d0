package models

import (
	"encoding/json"
	"time"
)

// Envelope models the JSON message published by facility sensors.
type Envelope struct {
	DeviceID      int             `json:"deviceId"`
	DeviceName    string          `json:"deviceName,omitempty"`
	ContainmentID *int            `json:"containmentId,omitempty"`
	SensorType    string          `json:"sensorType,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// DeviceRow captures the device metadata for DB operations.
type DeviceRow struct {
	ID            int
	Name          string
	ContainmentID *int
}

// RecordRow is a normalized sensor record ready for insertion.
type RecordRow struct {
	DeviceID   int
	DeviceName string
	// ContainmentID is carried to the device upsert.
	ContainmentID *int
	SensorType    string
	TS            time.Time
	RawPayload    string
}

// Key identifies the series a record belongs to for deduplication.
func (r RecordRow) Key() SeriesKey {
	return SeriesKey{DeviceID: r.DeviceID, SensorType: r.SensorType}
}

// SeriesKey is a (device, sensor type) pair.
type SeriesKey struct {
	DeviceID   int
	SensorType string
}

// LastRecord represents the most recent stored record for comparison.
type LastRecord struct {
	RawPayload string
	TS         time.Time
}
