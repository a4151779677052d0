package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facilityops/sensor-dashboard/services/watcher/internal/models"
)

const upsertDeviceSQL = `INSERT INTO facility.devices (id, name, containment_id, created_at, updated_at)
VALUES ($1, COALESCE(NULLIF($2::text, ''), 'device-' || $1::int::text), $3, NOW(), NOW())
ON CONFLICT (id) DO UPDATE
SET name = CASE WHEN $2::text = '' THEN facility.devices.name ELSE EXCLUDED.name END,
    containment_id = COALESCE(EXCLUDED.containment_id, facility.devices.containment_id),
    updated_at = NOW()`

const lastRecordsSQL = `
SELECT DISTINCT ON (r.device_id, r.sensor_type) r.device_id, r.sensor_type, r.raw_payload, r.ts
FROM facility.sensor_records r
JOIN unnest($1::int[], $2::text[]) AS k(device_id, sensor_type)
  ON k.device_id = r.device_id AND k.sensor_type = r.sensor_type
ORDER BY r.device_id, r.sensor_type, r.ts DESC`

const insertRecordSQL = `INSERT INTO facility.sensor_records (device_id, sensor_type, ts, raw_payload, created_at)
VALUES ($1, $2, $3, $4, NOW())`

// Writer persists watcher output through a pgx pool.
type Writer struct {
	Pool *pgxpool.Pool
}

// UpsertDevices inserts/updates device metadata. Empty names keep the stored name.
func (w Writer) UpsertDevices(ctx context.Context, devices []models.DeviceRow) error {
	return UpsertDevices(ctx, w.Pool, devices)
}

// FetchLastRecords loads the most recent stored record per series.
func (w Writer) FetchLastRecords(ctx context.Context, keys []models.SeriesKey) (map[models.SeriesKey]models.LastRecord, error) {
	return FetchLastRecords(ctx, w.Pool, keys)
}

// InsertRecords writes new sensor records.
func (w Writer) InsertRecords(ctx context.Context, rows []models.RecordRow) error {
	return InsertRecords(ctx, w.Pool, rows)
}

// UpsertDevices inserts/updates device metadata records.
func UpsertDevices(ctx context.Context, pool *pgxpool.Pool, devices []models.DeviceRow) error {
	if len(devices) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range devices {
		batch.Queue(upsertDeviceSQL, d.ID, d.Name, d.ContainmentID)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range devices {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// FetchLastRecords loads the most recent stored record for each key.
func FetchLastRecords(ctx context.Context, pool *pgxpool.Pool, keys []models.SeriesKey) (map[models.SeriesKey]models.LastRecord, error) {
	result := make(map[models.SeriesKey]models.LastRecord, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	deviceIDs := make([]int32, len(keys))
	sensorTypes := make([]string, len(keys))
	for i, k := range keys {
		deviceIDs[i] = int32(k.DeviceID)
		sensorTypes[i] = k.SensorType
	}

	rows, err := pool.Query(ctx, lastRecordsSQL, deviceIDs, sensorTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key models.SeriesKey
		var last models.LastRecord
		var ts time.Time
		if err := rows.Scan(&key.DeviceID, &key.SensorType, &last.RawPayload, &ts); err != nil {
			return nil, err
		}
		last.TS = ts.UTC()
		result[key] = last
	}

	return result, rows.Err()
}

// InsertRecords writes new record entries to sensor_records.
func InsertRecords(ctx context.Context, pool *pgxpool.Pool, records []models.RecordRow) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertRecordSQL, r.DeviceID, r.SensorType, r.TS, r.RawPayload)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range records {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}
