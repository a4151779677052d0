package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SetNow replaces the clock used to resolve chart windows.
func SetNow(s *Server, now func() time.Time) {
	s.now = now
}

// SkippedRecordsCounter exposes the skipped records counter.
func SkippedRecordsCounter(s *Server) *prometheus.CounterVec {
	return s.metrics.skippedRecords
}
