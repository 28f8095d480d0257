package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/vitrina/internal/services"
)

// MetricsHandler exposes the behavioral metrics endpoints.
type MetricsHandler struct {
	metrics *services.MetricsService
}

// NewMetricsHandler constructs MetricsHandler.
func NewMetricsHandler(metrics *services.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Track records a client-side view or dwell event.
func (h *MetricsHandler) Track(c *fiber.Ctx) error {
	var event services.TrackEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false})
	}

	if err := h.metrics.Track(c.Context(), event); err != nil {
		if errors.Is(err, services.ErrUnknownEvent) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// TopProducts returns the most viewed products.
func (h *MetricsHandler) TopProducts(c *fiber.Ctx) error {
	items, err := h.metrics.TopProducts(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// TopPages returns the most viewed pages.
func (h *MetricsHandler) TopPages(c *fiber.Ctx) error {
	items, err := h.metrics.TopPages(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}
