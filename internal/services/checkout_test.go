package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/vitrina/internal/kv"
	"github.com/example/vitrina/internal/models"
)

func testCheckout(t *testing.T) (*CheckoutService, *gorm.DB, *redis.Client) {
	t.Helper()

	db, rdb := testEnv(t)
	tracking := NewTrackingService(rdb)
	notify := NewNotificationService(rdb)
	engine := NewEngine(db, tracking, notify)
	engine.unit = time.Millisecond

	return NewCheckoutService(db, rdb, tracking, notify, engine), db, rdb
}

func fillCart(t *testing.T, rdb *redis.Client, cartID string, items map[uint]int) {
	t.Helper()
	ctx := context.Background()
	for productID, qty := range items {
		if err := rdb.HSet(ctx, kv.CartKey(cartID), strconv.FormatUint(uint64(productID), 10), strconv.Itoa(qty)).Err(); err != nil {
			t.Fatalf("fill cart: %v", err)
		}
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	svc, db, _ := testCheckout(t)

	_, err := svc.Checkout(context.Background(), uuid.NewString(), nil)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("empty cart created %d orders", count)
	}
}

func TestCheckoutInvalidProduct(t *testing.T) {
	t.Parallel()

	svc, db, rdb := testCheckout(t)

	valid := models.Product{Name: "Runner", Slug: "runner", Price: 50}
	if err := db.Create(&valid).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	cartID := uuid.NewString()
	fillCart(t, rdb, cartID, map[uint]int{valid.ID: 2, valid.ID + 999: 1})

	_, err := svc.Checkout(context.Background(), cartID, nil)
	var invalid *InvalidProductError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidProductError, got %v", err)
	}
	if invalid.ProductID != valid.ID+999 {
		t.Fatalf("error names product %d, want %d", invalid.ProductID, valid.ID+999)
	}

	// All-or-nothing: the valid line must not produce an order either.
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("partial cart created %d orders", count)
	}
}

func TestCheckoutPriceSnapshot(t *testing.T) {
	t.Parallel()

	svc, db, rdb := testCheckout(t)
	ctx := context.Background()

	product := models.Product{Name: "Trainer", Slug: "trainer", Price: 100}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	cartID := uuid.NewString()
	fillCart(t, rdb, cartID, map[uint]int{product.ID: 2})

	userID := uint(1)
	user := models.User{Email: "snapshot@example.com"}
	user.ID = userID
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	order, err := svc.Checkout(ctx, cartID, &userID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Total != 200 {
		t.Fatalf("total = %v, want 200", order.Total)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].Price != 100 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}

	// A later price change must not alter the stored order.
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", 999).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}
	var reloaded models.Order
	if err := db.Preload("Items").First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Total != 200 || reloaded.Items[0].Price != 100 {
		t.Fatalf("price change leaked into order history: total=%v price=%v", reloaded.Total, reloaded.Items[0].Price)
	}

	// Cart is cleared; a retry behaves as at-most-once.
	if n, _ := rdb.Exists(ctx, kv.CartKey(cartID)).Result(); n != 0 {
		t.Fatal("cart key survived checkout")
	}
	if _, err := svc.Checkout(ctx, cartID, &userID); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("retry after checkout: got %v, want ErrEmptyCart", err)
	}
}

func TestCheckoutInitializesTracking(t *testing.T) {
	t.Parallel()

	svc, db, rdb := testCheckout(t)
	ctx := context.Background()

	product := models.Product{Name: "Cap", Slug: "cap", Price: 100}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	cartID := uuid.NewString()
	fillCart(t, rdb, cartID, map[uint]int{product.ID: 2})

	order, err := svc.Checkout(ctx, cartID, nil)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	snap := svc.tracking.Snapshot(ctx, order.ID)
	if snap.State["phase"] != PhaseAssembling || snap.State["progress"] != "0" {
		t.Fatalf("fresh tracking state = %v", snap.State)
	}
	if len(snap.Events) != 1 || snap.Events[0].Type != EventCreated {
		t.Fatalf("fresh event log = %v", snap.Events)
	}

	fee, err := strconv.Atoi(snap.Schedule["fee"])
	if err != nil {
		t.Fatalf("schedule fee missing: %v", snap.Schedule)
	}
	if want := int(math.Round(200 * 0.05)); fee != want {
		t.Fatalf("fee = %d, want %d", fee, want)
	}
	for _, field := range []string{"assemble", "toDist", "ship"} {
		if _, err := strconv.Atoi(snap.Schedule[field]); err != nil {
			t.Fatalf("schedule field %s missing: %v", field, snap.Schedule)
		}
	}
}

func TestCheckoutNotifiesUser(t *testing.T) {
	t.Parallel()

	svc, db, rdb := testCheckout(t)
	ctx := context.Background()

	product := models.Product{Name: "Bag", Slug: "bag", Price: 10}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	userID := uint(3)
	user := models.User{Email: "notify@example.com"}
	user.ID = userID
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	cartID := uuid.NewString()
	fillCart(t, rdb, cartID, map[uint]int{product.ID: 1})

	if _, err := svc.Checkout(ctx, cartID, &userID); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	items, err := svc.notify.List(ctx, userID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(items) != 1 || items[0].Kind != NotifySuccess {
		t.Fatalf("expected one created notification, got %v", items)
	}
}
