package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vitrina/internal/middleware"
	"github.com/example/vitrina/internal/models"
	"github.com/example/vitrina/internal/services"
)

// OrderHandler manages order, tracking and teleport endpoints.
type OrderHandler struct {
	db       *gorm.DB
	checkout *services.CheckoutService
	tracking *services.TrackingService
	notify   *services.NotificationService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, checkout *services.CheckoutService, tracking *services.TrackingService, notify *services.NotificationService) *OrderHandler {
	return &OrderHandler{db: db, checkout: checkout, tracking: tracking, notify: notify}
}

type checkoutRequest struct {
	CartID string                `json:"cartId"`
	Info   services.DeliveryInfo `json:"info"`
}

// DemoCheckout places an order from a session cart and kicks off the
// delivery simulation. Works for guests; an authenticated caller gets the
// order attributed and notified.
func (h *OrderHandler) DemoCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}
	if _, err := uuid.Parse(req.CartID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}
	if !req.Info.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}

	var userID *uint
	if id, ok := middleware.GetCurrentUserID(c); ok {
		userID = &id
	}

	order, err := h.checkout.Checkout(c.Context(), req.CartID, userID)
	if err != nil {
		if errors.Is(err, services.ErrEmptyCart) {
			return fiber.NewError(fiber.StatusBadRequest, "empty_cart")
		}
		var invalid *services.InvalidProductError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":     "invalid_product",
				"productId": invalid.ProductID,
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"order":    order,
		"tracking": fiber.Map{"id": order.ID},
	})
}

// ListOrders returns the caller's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var orders []models.Order
	if err := h.db.Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"items": orders})
}

// GetOrder returns a single order with its items.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_params")
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "not_found")
		}
		return err
	}

	return c.JSON(fiber.Map{"order": order})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus sets an order's status to any of the known values.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_input")
	}

	var req statusRequest
	if err := c.BodyParser(&req); err != nil || !models.ValidStatus(req.Status) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_input")
	}

	var order models.Order
	if err := h.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "not_found")
		}
		return err
	}

	if err := h.db.Model(&order).Update("status", req.Status).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"order": order})
}

// Tracking returns the delivery projection for polling clients. Unknown or
// expired orders degrade to empty state rather than erroring: the client
// polls every two seconds and an error would just flap its UI.
func (h *OrderHandler) Tracking(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return c.JSON(services.TrackingSnapshot{
			State:    map[string]string{},
			Schedule: map[string]string{},
			Events:   []services.TrackingEvent{},
		})
	}

	return c.JSON(h.tracking.Snapshot(c.Context(), orderID))
}

type teleportRequest struct {
	FeeConfirmed bool `json:"feeConfirmed"`
}

// Teleport short-circuits the simulation to delivered for a mock fee. The
// unconfirmed call is a fee quote and mutates nothing. The confirmed call
// completes the order from any phase; pending simulation timers are not
// cancelled, their terminal step no-ops once the phase is delivered. No
// tracking event is appended on this path.
func (h *OrderHandler) Teleport(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := parseOrderID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_input")
	}

	var req teleportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_input")
	}

	fee, err := h.tracking.Fee(c.Context(), orderID)
	if err != nil {
		return err
	}

	if !req.FeeConfirmed {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "fee_required",
			"fee":   fee,
		})
	}

	var order models.Order
	if err := h.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "not_found")
		}
		return err
	}
	if order.UserID != nil && *order.UserID != userID {
		return fiber.NewError(fiber.StatusForbidden, "not_owner")
	}

	if err := h.db.Model(&order).Update("status", models.StatusCompleted).Error; err != nil {
		middleware.RecordOrderOperation("teleport", false)
		return err
	}
	h.tracking.SetState(c.Context(), orderID, services.PhaseDelivered, 100)

	h.notify.Push(c.Context(), userID, services.NotifySuccess,
		"Instant delivery complete", "Teleport", map[string]any{"orderId": orderID})
	middleware.RecordOrderOperation("teleport", true)

	return c.JSON(fiber.Map{"ok": true})
}

func parseOrderID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid order id")
	}
	return uint(id), nil
}
