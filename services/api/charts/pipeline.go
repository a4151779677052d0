package charts

import (
	"log/slog"
	"sort"
	"time"
)

// Pipeline turns raw records into chart series. The zero value renders
// labels in UTC and logs through slog.Default.
type Pipeline struct {
	Location *time.Location
	Logger   *slog.Logger
	// OnSkip is called once per record that could not be normalized.
	OnSkip func(rec RawRecord, err error)
}

// SeriesSummary describes one sensor type of a computed result.
type SeriesSummary struct {
	SensorType string `json:"sensor_type" yaml:"sensor_type"`
	Points     int    `json:"points" yaml:"points"`
	Records    int    `json:"records" yaml:"records"`
}

// Result is the output of one pipeline run.
type Result struct {
	Range   Range
	Series  Series
	Summary []SeriesSummary
	Records int
	Skipped int
}

// Count returns the number of points charted for sensorType.
func (r Result) Count(sensorType string) int {
	return len(r.Series[sensorType])
}

// Compute runs the default pipeline.
func Compute(records []RawRecord, r Range) Result {
	return Pipeline{}.Compute(records, r)
}

// Compute normalizes, groups and, for long ranges, downsamples records.
// Every call starts from scratch; nothing from previous runs is reused.
func (p Pipeline) Compute(records []RawRecord, r Range) Result {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	points := make([]Point, 0, len(records))
	skipped := 0
	for _, rec := range records {
		pt, err := Normalize(rec, r, p.Location)
		if err != nil {
			skipped++
			log.Warn("skipping sensor record",
				"sensor_type", rec.SensorType,
				"device_id", rec.DeviceID,
				"timestamp", rec.Timestamp,
				"error", err)
			if p.OnSkip != nil {
				p.OnSkip(rec, err)
			}
			continue
		}
		points = append(points, pt)
	}

	grouped := Group(points)
	series := make(Series, len(grouped))
	summary := make([]SeriesSummary, 0, len(grouped))
	for sensorType, pts := range grouped {
		series[sensorType] = Aggregate(pts, r, p.Location)
		summary = append(summary, SeriesSummary{
			SensorType: sensorType,
			Points:     len(series[sensorType]),
			Records:    len(pts),
		})
	}
	sort.Slice(summary, func(i, j int) bool {
		return summary[i].SensorType < summary[j].SensorType
	})

	return Result{
		Range:   r,
		Series:  series,
		Summary: summary,
		Records: len(records),
		Skipped: skipped,
	}
}
