package charts_test

import (
	"testing"
	"time"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		code string

		wantCode     string
		wantWindow   time.Duration
		wantBucket   time.Duration
		wantPageSize int
		wantErr      bool
	}{
		"One hour":         {code: "1h", wantCode: "1h", wantWindow: time.Hour, wantPageSize: 2000},
		"Six hours":        {code: "6h", wantCode: "6h", wantWindow: 6 * time.Hour, wantPageSize: 2000},
		"One day":          {code: "24h", wantCode: "24h", wantWindow: 24 * time.Hour, wantPageSize: 2000},
		"One day alias":    {code: "1d", wantCode: "24h", wantWindow: 24 * time.Hour, wantPageSize: 2000},
		"One week":         {code: "7d", wantCode: "7d", wantWindow: 168 * time.Hour, wantBucket: 2 * time.Hour, wantPageSize: 5000},
		"One week alias":   {code: "1w", wantCode: "7d", wantWindow: 168 * time.Hour, wantBucket: 2 * time.Hour, wantPageSize: 5000},
		"One month":        {code: "30d", wantCode: "30d", wantWindow: 720 * time.Hour, wantBucket: 12 * time.Hour, wantPageSize: 10000},
		"One month alias":  {code: "1m", wantCode: "30d", wantWindow: 720 * time.Hour, wantBucket: 12 * time.Hour, wantPageSize: 10000},
		"Case and padding": {code: " 1W ", wantCode: "7d", wantWindow: 168 * time.Hour, wantBucket: 2 * time.Hour, wantPageSize: 5000},

		"Empty code":   {code: "", wantErr: true},
		"Unknown code": {code: "2h", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := charts.ParseRange(tc.code)
			if tc.wantErr {
				require.ErrorIs(t, err, charts.ErrUnknownRange)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCode, got.Code())
			require.Equal(t, tc.wantWindow, got.Window())
			require.Equal(t, tc.wantBucket, got.BucketWidth())
			require.Equal(t, tc.wantBucket > 0, got.Aggregated())
			require.Equal(t, tc.wantPageSize, got.PageSize())
		})
	}
}

func TestRangeBounds(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
	start, gotEnd := charts.Range7d.Bounds(end)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, end, gotEnd)
}
