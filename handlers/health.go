package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/utils/cache"
)

// HealthHandler reports liveness of the service and its collaborators
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewHealthHandler creates the health handler
func NewHealthHandler(db *gorm.DB, redisCache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{db: db, cache: redisCache}
}

// Check reports overall health. Degraded collaborators are reported but do
// not fail the endpoint; the service keeps serving with fail-open semantics
// when redis is down.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
		dbStatus = "unreachable"
	}

	cacheStatus := "ok"
	if h.cache == nil {
		cacheStatus = "disabled"
	} else if err := h.cache.GetClient().Ping(c.Context()).Err(); err != nil {
		cacheStatus = "unreachable"
	}

	status := "ok"
	if dbStatus != "ok" {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
