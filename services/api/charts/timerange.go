package charts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownRange is returned when a range code is not one of the supported codes.
var ErrUnknownRange = errors.New("unknown time range")

// Range is a dashboard time-range selection such as "1h" or "7d".
type Range struct {
	code        string
	window      time.Duration
	bucketWidth time.Duration
	layout      string
	pageSize    int
}

const (
	layoutClock    = "15:04"
	layoutDayClock = "01/02 15:04"
	layoutDay      = "01/02"
)

var (
	Range1h  = Range{code: "1h", window: time.Hour, layout: layoutClock, pageSize: 2000}
	Range6h  = Range{code: "6h", window: 6 * time.Hour, layout: layoutClock, pageSize: 2000}
	Range24h = Range{code: "24h", window: 24 * time.Hour, layout: layoutClock, pageSize: 2000}
	Range7d  = Range{code: "7d", window: 7 * 24 * time.Hour, bucketWidth: 120 * time.Minute, layout: layoutDayClock, pageSize: 5000}
	Range30d = Range{code: "30d", window: 30 * 24 * time.Hour, bucketWidth: 720 * time.Minute, layout: layoutDay, pageSize: 10000}
)

var rangeAliases = map[string]Range{
	"1h":  Range1h,
	"6h":  Range6h,
	"24h": Range24h,
	"1d":  Range24h,
	"7d":  Range7d,
	"1w":  Range7d,
	"30d": Range30d,
	"1m":  Range30d,
}

// Ranges lists the supported ranges, shortest first.
func Ranges() []Range {
	return []Range{Range1h, Range6h, Range24h, Range7d, Range30d}
}

// ParseRange resolves a range code, accepting the aliases 1d, 1w and 1m.
func ParseRange(code string) (Range, error) {
	r, ok := rangeAliases[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownRange, code)
	}
	return r, nil
}

// Code returns the canonical code of the range.
func (r Range) Code() string {
	return r.code
}

func (r Range) String() string {
	return r.code
}

// Window is the span of time the range covers.
func (r Range) Window() time.Duration {
	return r.window
}

// BucketWidth is the downsampling interval; zero means points pass through.
func (r Range) BucketWidth() time.Duration {
	return r.bucketWidth
}

// Aggregated reports whether series for this range are downsampled.
func (r Range) Aggregated() bool {
	return r.bucketWidth > 0
}

// PageSize is the number of records the data source is asked for.
func (r Range) PageSize() int {
	return r.pageSize
}

// FormatTime renders t for chart axis labels in loc.
func (r Range) FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	layout := r.layout
	if layout == "" {
		layout = layoutClock
	}
	return t.In(loc).Format(layout)
}

// Bounds returns the [start, end] window ending at end.
func (r Range) Bounds(end time.Time) (time.Time, time.Time) {
	return end.Add(-r.window), end
}
