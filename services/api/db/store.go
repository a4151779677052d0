package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Device represents a monitored device.
type Device struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	ContainmentID *int      `json:"containment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const listDevicesSQL = `
    SELECT id, name, containment_id, created_at, updated_at
    FROM facility.devices
`

// ListDevices returns all devices, optionally limited to one containment.
func (s *Store) ListDevices(ctx context.Context, containmentID *int) ([]Device, error) {
	sql := listDevicesSQL
	args := []any{}
	if containmentID != nil {
		sql += " WHERE containment_id = $1"
		args = append(args, *containmentID)
	}
	sql += " ORDER BY id"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.Name, &d.ContainmentID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// GetDevice returns a device by id, or nil when it does not exist.
func (s *Store) GetDevice(ctx context.Context, id int) (*Device, error) {
	row := s.pool.QueryRow(ctx, listDevicesSQL+" WHERE id = $1", id)

	var d Device
	if err := row.Scan(&d.ID, &d.Name, &d.ContainmentID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// RecordQuery holds filters for retrieving raw sensor records.
type RecordQuery struct {
	Start         *time.Time
	End           *time.Time
	ContainmentID *int
	DeviceID      *int
	SensorType    string
	Limit         int
}

const recordsBase = `
    SELECT r.ts, r.sensor_type, r.device_id, d.name, r.raw_payload
    FROM facility.sensor_records r
    LEFT JOIN facility.devices d ON d.id = r.device_id
`

// whereClause renders the filters of q starting at placeholder $1.
func (q RecordQuery) whereClause() (string, []any) {
	conditions := []string{}
	args := []any{}

	if q.Start != nil {
		args = append(args, *q.Start)
		conditions = append(conditions, "r.ts >= $"+strconv.Itoa(len(args)))
	}
	if q.End != nil {
		args = append(args, *q.End)
		conditions = append(conditions, "r.ts <= $"+strconv.Itoa(len(args)))
	}
	if q.ContainmentID != nil {
		args = append(args, *q.ContainmentID)
		conditions = append(conditions, "d.containment_id = $"+strconv.Itoa(len(args)))
	}
	if q.DeviceID != nil {
		args = append(args, *q.DeviceID)
		conditions = append(conditions, "r.device_id = $"+strconv.Itoa(len(args)))
	}
	if q.SensorType != "" {
		args = append(args, q.SensorType)
		conditions = append(conditions, "lower(r.sensor_type) = lower($"+strconv.Itoa(len(args))+")")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// recordsSQL builds the newest-first records query for q.
func recordsSQL(q RecordQuery) (string, []any) {
	where, args := q.whereClause()
	sql := recordsBase + where + " ORDER BY r.ts DESC, r.id DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}
	return sql, args
}

// ListSensorRecords returns raw records matching q, newest first. Callers
// that chart the result sort it themselves.
func (s *Store) ListSensorRecords(ctx context.Context, q RecordQuery) ([]charts.RawRecord, error) {
	sql, args := recordsSQL(q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]charts.RawRecord, error) {
	records := make([]charts.RawRecord, 0)
	for rows.Next() {
		var (
			ts   time.Time
			name *string
			rec  charts.RawRecord
		)
		if err := rows.Scan(&ts, &rec.SensorType, &rec.DeviceID, &name, &rec.RawPayload); err != nil {
			return nil, err
		}
		rec.Timestamp = charts.FormatISO(ts)
		if name != nil {
			rec.Device = &charts.Device{Name: *name}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
