package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/cache"
)

// CacheHandler reports and resets the aggregate cache.
type CacheHandler struct {
	cache *cache.Cache
}

// NewCacheHandler constructs handler.
func NewCacheHandler(c *cache.Cache) *CacheHandler {
	return &CacheHandler{cache: c}
}

// Stats GET /api/cache/stats.
func (h *CacheHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.cache.Stats()})
}

// Clear DELETE /api/cache.
func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	h.cache.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}
