package db

import (
	"context"
	"strconv"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
)

// RecordsPage is one page of sensor records plus the total matching count.
type RecordsPage struct {
	Records    []charts.RawRecord `json:"records"`
	TotalCount int                `json:"total_count"`
}

// recordsPageSQL builds the count and page queries for q.
func recordsPageSQL(q RecordQuery, limit, offset int) (string, string, []any, []any) {
	where, args := q.whereClause()

	countSQL := "SELECT COUNT(*) FROM facility.sensor_records r " +
		"LEFT JOIN facility.devices d ON d.id = r.device_id" + where

	pageArgs := append(append([]any{}, args...), limit, offset)
	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	pageSQL := recordsBase + where +
		" ORDER BY r.ts DESC, r.id DESC" +
		" LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(offsetPos)

	return countSQL, pageSQL, args, pageArgs
}

// ListSensorRecordsPage returns the page of records matching q at limit/offset,
// newest first, together with the total count.
func (s *Store) ListSensorRecordsPage(ctx context.Context, q RecordQuery, limit, offset int) (*RecordsPage, error) {
	countSQL, pageSQL, countArgs, pageArgs := recordsPageSQL(q, limit, offset)

	var totalCount int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&totalCount); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	return &RecordsPage{Records: records, TotalCount: totalCount}, nil
}

// SensorTypeCount is the number of stored records of one sensor type.
type SensorTypeCount struct {
	SensorType string `json:"sensor_type"`
	Records    int    `json:"records"`
}

// CountSensorTypes counts the records matching q per sensor type.
func (s *Store) CountSensorTypes(ctx context.Context, q RecordQuery) ([]SensorTypeCount, error) {
	where, args := q.whereClause()
	query := "SELECT r.sensor_type, COUNT(*) FROM facility.sensor_records r " +
		"LEFT JOIN facility.devices d ON d.id = r.device_id" + where +
		" GROUP BY r.sensor_type ORDER BY r.sensor_type"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]SensorTypeCount, 0)
	for rows.Next() {
		var c SensorTypeCount
		if err := rows.Scan(&c.SensorType, &c.Records); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
