package charts

import (
	"sort"
	"time"
)

// Series maps a sensor type to its points ordered by time.
type Series map[string][]Point

// Group partitions points by sensor type and sorts each partition by time.
// Points with equal timestamps keep their input order.
func Group(points []Point) Series {
	out := make(Series)
	for _, p := range points {
		out[p.SensorType] = append(out[p.SensorType], p)
	}
	for _, pts := range out {
		sort.SliceStable(pts, func(i, j int) bool {
			return pts[i].at.Before(pts[j].at)
		})
	}
	return out
}

// BucketStart returns the start of the width-wide bucket containing t,
// aligned on the Unix epoch.
func BucketStart(t time.Time, width time.Duration) time.Time {
	w := width.Milliseconds()
	ms := t.UnixMilli()
	key := ms / w
	if ms%w != 0 && ms < 0 {
		key--
	}
	return time.UnixMilli(key * w).UTC()
}

type bucket struct {
	start  time.Time
	points []Point
}

// Aggregate downsamples a time-ordered series for r. Ranges without a
// bucket width return the series as is.
func Aggregate(points []Point, r Range, loc *time.Location) []Point {
	if !r.Aggregated() {
		return points
	}
	if len(points) == 0 {
		return []Point{}
	}

	index := make(map[int64]int)
	buckets := make([]*bucket, 0)
	for _, p := range points {
		start := BucketStart(p.at, r.BucketWidth())
		i, ok := index[start.UnixMilli()]
		if !ok {
			i = len(buckets)
			index[start.UnixMilli()] = i
			buckets = append(buckets, &bucket{start: start})
		}
		buckets[i].points = append(buckets[i].points, p)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].start.Before(buckets[j].start)
	})

	out := make([]Point, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.mean(r, loc))
	}
	return out
}

func (b *bucket) mean(r Range, loc *time.Location) Point {
	first := b.points[0]
	fields := make(map[string]float64)
	for _, name := range NumericFields {
		var sum float64
		var n int
		for _, p := range b.points {
			if v, ok := p.Fields[name]; ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			fields[name] = roundTo(sum/float64(n), 2)
		}
	}

	return Point{
		Timestamp:     FormatISO(b.start),
		FormattedTime: r.FormatTime(b.start, loc),
		SensorType:    first.SensorType,
		DeviceName:    first.DeviceName,
		Fields:        fields,
		at:            b.start,
		aggregated:    true,
	}
}
