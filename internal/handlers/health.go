package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"lab-accession-backend/internal/models"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping() error
}

// ServiceStatus is what health reports about the accession service.
// *services.AccessionService implements it.
type ServiceStatus interface {
	PersistenceEnabled() bool
	RealtimeEnabled() bool
	ActiveSessions() int
}

type HealthHandler struct {
	environment string
	db          Pinger
	service     ServiceStatus
}

func NewHealthHandler(environment string, db Pinger, service ServiceStatus) *HealthHandler {
	return &HealthHandler{environment: environment, db: db, service: service}
}

// Check godoc
// @Summary     Health check
// @Description Returns the health status of the API and its optional backends
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Failure     503 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	response := models.HealthResponse{
		Status:      "ok",
		Environment: h.environment,
		Database:    "disabled",
		Realtime:    "disabled",
	}
	if h.service != nil {
		response.Sessions = h.service.ActiveSessions()
		if h.service.RealtimeEnabled() {
			response.Realtime = "enabled"
		}
		if h.service.PersistenceEnabled() {
			response.Database = "enabled"
		}
	}

	status := http.StatusOK
	if h.db != nil {
		response.Database = "ok"
		if err := h.db.Ping(); err != nil {
			response.Status = "degraded"
			response.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, response)
}
