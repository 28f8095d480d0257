package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/vitrina/internal/kv"
	"github.com/example/vitrina/internal/middleware"
	"github.com/example/vitrina/internal/models"
)

// ErrEmptyCart is returned when the cart has no line items.
var ErrEmptyCart = errors.New("empty_cart")

// InvalidProductError names a cart line whose product no longer exists.
type InvalidProductError struct {
	ProductID uint
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product %d", e.ProductID)
}

// DeliveryInfo is the recipient data captured at checkout. It is validated
// for presence but not consumed by the simulation.
type DeliveryInfo struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes"`
}

// Valid reports whether the delivery info meets the minimum lengths.
func (i DeliveryInfo) Valid() bool {
	return len(i.FullName) >= 2 && len(i.Address) >= 5 && len(i.Phone) >= 5
}

// CheckoutService turns a session cart into an order and starts the
// delivery simulation for it.
type CheckoutService struct {
	db       *gorm.DB
	rdb      *redis.Client
	tracking *TrackingService
	notify   *NotificationService
	engine   *Engine
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(db *gorm.DB, rdb *redis.Client, tracking *TrackingService, notify *NotificationService, engine *Engine) *CheckoutService {
	return &CheckoutService{db: db, rdb: rdb, tracking: tracking, notify: notify, engine: engine}
}

// Checkout validates the cart, snapshots prices, creates the order with its
// items in one write, clears the cart and initializes tracking. userID is
// nil for guest checkouts.
//
// Not idempotent: clearing the cart is irreversible, so a request retried
// after that point sees ErrEmptyCart. At-most-once checkout is the accepted
// contract.
func (s *CheckoutService) Checkout(ctx context.Context, cartID string, userID *uint) (*models.Order, error) {
	cartKey := kv.CartKey(cartID)
	entries, err := s.rdb.HGetAll(ctx, cartKey).Result()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}

	type line struct {
		productID uint
		quantity  int
	}
	lines := make([]line, 0, len(entries))
	ids := make([]uint, 0, len(entries))
	for rawID, rawQty := range entries {
		productID, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return nil, &InvalidProductError{ProductID: 0}
		}
		qty, _ := strconv.Atoi(rawQty)
		lines = append(lines, line{productID: uint(productID), quantity: qty})
		ids = append(ids, uint(productID))
	}

	var products []models.Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var total float64
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.productID]
		if !ok {
			return nil, &InvalidProductError{ProductID: l.productID}
		}
		total += p.Price * float64(l.quantity)
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Quantity:  l.quantity,
			Price:     p.Price,
		})
	}

	order := models.Order{
		UserID: userID,
		Status: models.StatusPending,
		Total:  total,
		Items:  items,
	}
	if err := s.db.Create(&order).Error; err != nil {
		middleware.RecordOrderOperation("checkout", false)
		return nil, err
	}

	// Point of no return: a retry from here on sees an empty cart.
	s.rdb.Del(ctx, cartKey)

	sch := NewSchedule(total)
	s.tracking.Init(ctx, order.ID, sch)
	s.tracking.AppendEvent(ctx, order.ID, EventCreated, fmt.Sprintf("Order #%d created", order.ID))

	if userID != nil {
		s.notify.Push(ctx, *userID, NotifySuccess,
			fmt.Sprintf("Order #%d created", order.ID), "Thank you for your order",
			map[string]any{"orderId": order.ID})
	}

	s.engine.Start(order.ID, userID, sch)
	middleware.RecordOrderOperation("checkout", true)

	return &order, nil
}
