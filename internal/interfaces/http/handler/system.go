package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves health and liveness endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	pinger    Pinger
}

// Pinger checks a backing store's connectivity
type Pinger interface {
	Ping() error
}

// NewSystemHandler creates a system handler. pinger is optional.
func NewSystemHandler(pinger Pinger) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		pinger:    pinger,
	}
}

// HealthResponse is the health check payload
type HealthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health reports process and database health
func (h *SystemHandler) Health(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(); err != nil {
			h.Error(c, 503, "UNHEALTHY", "Database is unreachable")
			return
		}
	}
	h.Success(c, HealthResponse{
		Status:    "ok",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
