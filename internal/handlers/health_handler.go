package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swifttransit/booking-core/internal/cache"
	"github.com/swifttransit/booking-core/internal/database"
	"github.com/swifttransit/booking-core/internal/queue"
)

// HealthHandler reports process health: database reachability, cache
// degradation state, and queue depths.
type HealthHandler struct {
	db    database.DB
	store cache.Store
	jobs  *queue.Manager
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db database.DB, store cache.Store, jobs *queue.Manager) *HealthHandler {
	return &HealthHandler{db: db, store: store, jobs: jobs}
}

// RegisterRoutes registers the health routes
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "ok"
	if err := h.db.Ping(); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	// The cache is best-effort; a degraded cache does not fail health
	cacheStatus := "ok"
	probe := "health_probe"
	if !h.store.Set(ctx, probe, "1", time.Second) {
		cacheStatus = "degraded"
	}

	c.JSON(status, gin.H{
		"database": dbStatus,
		"cache":    cacheStatus,
		"queue":    h.jobs.Stats(),
	})
}
