package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dubeyaashish/itradebook-sub000/pkg/health"
)

// HealthHandlers serves liveness, readiness and metrics endpoints
type HealthHandlers struct {
	checker *health.HealthChecker
}

// NewHealthHandlers creates new health handlers
func NewHealthHandlers(checker *health.HealthChecker) *HealthHandlers {
	return &HealthHandlers{checker: checker}
}

// Health reports the overall health with per-component results
func (h *HealthHandlers) Health(c *gin.Context) {
	status, results := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": results,
	})
}

// Ready reports whether the service can take traffic
func (h *HealthHandlers) Ready(c *gin.Context) {
	if !h.checker.IsHealthy(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// Live reports process liveness
func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}

// Metrics exposes Prometheus metrics
func (h *HealthHandlers) Metrics() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
