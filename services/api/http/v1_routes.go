package http

import "github.com/gin-gonic/gin"

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/core, /api/v1/charts
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	// Core endpoints - devices and raw records
	core := v1.Group("/core")
	{
		core.GET("/devices", s.handleV1ListDevices)
		core.GET("/devices/:id", s.handleV1GetDevice)
		core.GET("/records", s.handleV1ListRecords)
	}

	// Chart endpoints - series computed from raw records
	chart := v1.Group("/charts")
	{
		chart.GET("/ranges", s.handleV1ChartRanges)
		chart.GET("/sensors", s.handleV1SensorCharts)
		chart.GET("/sensor-types", s.handleV1SensorTypes)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
