package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
	"github.com/facilityops/sensor-dashboard/services/api/db"
)

// optionalInt parses an integer query parameter; absent yields nil.
func optionalInt(c *gin.Context, name string) (*int, error) {
	s := c.Query(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &v, nil
}

// optionalTime parses an RFC3339 query parameter; absent yields nil.
func optionalTime(c *gin.Context, name string) (*time.Time, error) {
	s := c.Query(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s time format, expected RFC3339", name)
	}
	t = t.UTC()
	return &t, nil
}

// recordFilters reads the containment, device and sensor type filters.
func recordFilters(c *gin.Context) (db.RecordQuery, error) {
	var q db.RecordQuery
	var err error
	if q.ContainmentID, err = optionalInt(c, "containment_id"); err != nil {
		return q, err
	}
	if q.DeviceID, err = optionalInt(c, "device_id"); err != nil {
		return q, err
	}
	q.SensorType = c.Query("sensor_type")
	return q, nil
}

// handleV1ListDevices returns all devices
// GET /api/v1/core/devices?containment_id=4
func (s *Server) handleV1ListDevices(c *gin.Context) {
	containmentID, err := optionalInt(c, "containment_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	devices, err := s.store.ListDevices(ctx, containmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": devices,
		"meta": gin.H{
			"count": len(devices),
		},
	})
}

// handleV1GetDevice returns details for a specific device
// GET /api/v1/core/devices/:id
func (s *Server) handleV1GetDevice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	device, err := s.store.GetDevice(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if device == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": device,
	})
}

// handleV1ListRecords returns a page of raw sensor records, newest first
// GET /api/v1/core/records?range=24h&device_id=3&page=1&limit=100
// GET /api/v1/core/records?start=2024-01-01T00:00:00Z&end=2024-01-02T00:00:00Z
func (s *Server) handleV1ListRecords(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val > 0 {
			page = val
		}
	}

	limit := s.cfg.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= s.cfg.MaxPageLimit {
			limit = val
		}
	}

	offset := (page - 1) * limit

	q, err := recordFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if code := c.Query("range"); code != "" {
		r, err := charts.ParseRange(code)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		start, end := r.Bounds(s.now().UTC())
		q.Start, q.End = &start, &end
	}
	if q.Start == nil {
		if q.Start, err = optionalTime(c, "start"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if q.End == nil {
		if q.End, err = optionalTime(c, "end"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := s.store.ListSensorRecordsPage(ctx, q, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Records,
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total_count": result.TotalCount,
			"total_pages": (result.TotalCount + limit - 1) / limit,
		},
	})
}
