package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/vitrina/internal/kv"
)

// CartHandler manages session carts stored as redis hashes.
type CartHandler struct {
	rdb *redis.Client
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(rdb *redis.Client) *CartHandler {
	return &CartHandler{rdb: rdb}
}

type cartItem struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// Init hands out a fresh cart id. Nothing is written until the first item.
func (h *CartHandler) Init(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"cartId": uuid.NewString()})
}

// Get returns the cart's line items.
func (h *CartHandler) Get(c *fiber.Ctx) error {
	cartID, err := parseCartID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_params")
	}

	entries, err := h.rdb.HGetAll(c.Context(), kv.CartKey(cartID)).Result()
	if err != nil {
		return err
	}

	items := make([]cartItem, 0, len(entries))
	for rawID, rawQty := range entries {
		productID, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			continue
		}
		qty, _ := strconv.Atoi(rawQty)
		items = append(items, cartItem{ProductID: uint(productID), Quantity: qty})
	}

	return c.JSON(fiber.Map{"items": items})
}

type cartItemRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// AddItem increments a line's quantity and refreshes the cart TTL.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	cartID, err := parseCartID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_params")
	}

	var req cartItemRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == 0 || req.Quantity < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}

	key := kv.CartKey(cartID)
	field := strconv.FormatUint(uint64(req.ProductID), 10)
	if err := h.rdb.HIncrBy(c.Context(), key, field, int64(req.Quantity)).Err(); err != nil {
		return err
	}
	h.rdb.Expire(c.Context(), key, kv.CartTTL)

	return c.JSON(fiber.Map{"ok": true})
}

// UpdateItem sets a line's quantity; zero removes the line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	cartID, err := parseCartID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_params")
	}

	var req cartItemRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == 0 || req.Quantity < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}

	key := kv.CartKey(cartID)
	field := strconv.FormatUint(uint64(req.ProductID), 10)
	if req.Quantity == 0 {
		if err := h.rdb.HDel(c.Context(), key, field).Err(); err != nil {
			return err
		}
	} else {
		if err := h.rdb.HSet(c.Context(), key, field, strconv.Itoa(req.Quantity)).Err(); err != nil {
			return err
		}
	}
	h.rdb.Expire(c.Context(), key, kv.CartTTL)

	return c.JSON(fiber.Map{"ok": true})
}

func parseCartID(c *fiber.Ctx) (string, error) {
	id, err := uuid.Parse(c.Params("cartId"))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
