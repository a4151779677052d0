package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
)

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	skippedRecords  *prometheus.CounterVec
	chartPoints     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Tracks the number of HTTP requests per route.",
			}, []string{"method", "route", "code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "Tracks the latencies of HTTP requests per route.",
				// Max of 10.24s.
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			}, []string{"method", "route"},
		),
		skippedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chart_skipped_records_total",
				Help: "Sensor records dropped from charts because they could not be parsed.",
			}, []string{"sensor_type"},
		),
		chartPoints: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chart_points_total",
				Help: "Chart points served per range.",
			}, []string{"range"},
		),
	}
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *metrics) recordSkipped(rec charts.RawRecord, _ error) {
	if m == nil {
		return
	}
	m.skippedRecords.WithLabelValues(rec.SensorType).Inc()
}

func (m *metrics) recordPoints(res charts.Result) {
	if m == nil {
		return
	}
	var n int
	for _, s := range res.Summary {
		n += s.Points
	}
	m.chartPoints.WithLabelValues(res.Range.Code()).Add(float64(n))
}
