package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
	"github.com/facilityops/sensor-dashboard/services/api/db"
)

// chartWindow resolves the range and [start, end] window of a chart request.
// The window ends at the end parameter, or now when it is absent.
func (s *Server) chartWindow(c *gin.Context) (charts.Range, db.RecordQuery, error) {
	r := s.cfg.DefaultRange
	if code := c.Query("range"); code != "" {
		parsed, err := charts.ParseRange(code)
		if err != nil {
			return r, db.RecordQuery{}, err
		}
		r = parsed
	}

	q, err := recordFilters(c)
	if err != nil {
		return r, q, err
	}

	end := s.now().UTC()
	if t, err := optionalTime(c, "end"); err != nil {
		return r, q, err
	} else if t != nil {
		end = *t
	}

	start, end := r.Bounds(end)
	q.Start, q.End = &start, &end
	return r, q, nil
}

// handleV1SensorCharts returns chart series per sensor type
// GET /api/v1/charts/sensors?range=7d&containment_id=4&device_id=12
func (s *Server) handleV1SensorCharts(c *gin.Context) {
	r, q, err := s.chartWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Limit = r.PageSize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	records, err := s.store.ListSensorRecords(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res := s.pipeline.Compute(records, r)
	s.metrics.recordPoints(res)

	c.JSON(http.StatusOK, gin.H{
		"data": res.Series,
		"meta": gin.H{
			"range":          r.Code(),
			"start":          q.Start.Format(time.RFC3339),
			"end":            q.End.Format(time.RFC3339),
			"aggregated":     r.Aggregated(),
			"bucket_minutes": int(r.BucketWidth() / time.Minute),
			"records":        res.Records,
			"skipped":        res.Skipped,
			"truncated":      len(records) >= r.PageSize(),
			"series":         res.Summary,
			"generated_at":   s.now().UTC().Format(time.RFC3339),
		},
	})
}

// handleV1SensorTypes returns record counts per sensor type in the window
// GET /api/v1/charts/sensor-types?range=24h
func (s *Server) handleV1SensorTypes(c *gin.Context) {
	r, q, err := s.chartWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.SensorType = ""

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	counts, err := s.store.CountSensorTypes(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": counts,
		"meta": gin.H{
			"range": r.Code(),
			"count": len(counts),
		},
	})
}

// handleV1ChartRanges lists the supported range codes
// GET /api/v1/charts/ranges
func (s *Server) handleV1ChartRanges(c *gin.Context) {
	ranges := make([]gin.H, 0, len(charts.Ranges()))
	for _, r := range charts.Ranges() {
		ranges = append(ranges, gin.H{
			"code":           r.Code(),
			"window_minutes": int(r.Window() / time.Minute),
			"bucket_minutes": int(r.BucketWidth() / time.Minute),
			"page_size":      r.PageSize(),
			"default":        r.Code() == s.cfg.DefaultRange.Code(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": ranges})
}
