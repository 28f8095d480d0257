package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/example/vitrina/internal/middleware"
	"github.com/example/vitrina/internal/models"
)

// Delivery timing constants, in schedule units (seconds in production).
const (
	delayRollOffset  = 10
	delayExtraTime   = 7
	delayProbability = 0.15
)

var delayExcuses = []string{
	"The courier got carried away with parkour and vanished for a minute",
	"The carrier pigeon stopped for a snack along the way",
	"The delivery cart got stuck in the sands of time",
	"The coach sent the package out for a warm-up lap",
}

// Schedule holds the randomized phase durations and the teleport fee for one
// order. Drawn once at checkout and immutable afterwards; the engine sums
// the durations into absolute offsets when it schedules the timers.
type Schedule struct {
	Assemble int
	ToDist   int
	Ship     int
	Fee      int
}

// NewSchedule draws the phase durations for a fresh order.
func NewSchedule(total float64) Schedule {
	base := 5 + rand.Intn(15)
	return Schedule{
		Assemble: base,
		ToDist:   base + rand.Intn(20),
		Ship:     base + rand.Intn(30),
		Fee:      TeleportFee(total),
	}
}

// TeleportFee is 5% of the order total, minimum 1.
func TeleportFee(total float64) int {
	fee := int(math.Round(total * 0.05))
	if fee < 1 {
		fee = 1
	}
	return fee
}

// Engine drives the delivery simulation: one goroutine per order walking a
// fixed list of steps at absolute offsets from checkout time.
//
// Timers live only in process memory. A restart strands in-flight orders at
// whatever phase they last reached; that is the intended contract, not a
// recovery bug. Steps are independent and best-effort: a failed write is
// dropped silently and later steps still fire at their own offsets.
type Engine struct {
	db       *gorm.DB
	tracking *TrackingService
	notify   *NotificationService

	// unit scales schedule durations; tests shrink it to milliseconds.
	unit time.Duration
	roll func() float64
}

// NewEngine constructs a delivery Engine with production timing.
func NewEngine(db *gorm.DB, tracking *TrackingService, notify *NotificationService) *Engine {
	return &Engine{
		db:       db,
		tracking: tracking,
		notify:   notify,
		unit:     time.Second,
		roll:     rand.Float64,
	}
}

// Start schedules the simulation for one order and returns immediately.
func (e *Engine) Start(orderID uint, userID *uint, sch Schedule) {
	go e.run(orderID, userID, sch)
}

func (e *Engine) run(orderID uint, userID *uint, sch Schedule) {
	ctx := context.Background()
	start := time.Now()

	steps := []struct {
		offset int
		fn     func()
	}{
		{sch.Assemble, func() {
			e.tracking.SetState(ctx, orderID, PhaseAssembling, 100)
			e.tracking.AppendEvent(ctx, orderID, EventAssembled, "Assembly complete")
		}},
		{sch.Assemble + sch.ToDist, func() {
			e.tracking.SetState(ctx, orderID, PhaseToDistributor, 50)
			e.tracking.AppendEvent(ctx, orderID, EventToDistributor, "Sent to the distributor")
		}},
		{sch.Assemble + sch.ToDist + sch.Ship, func() {
			e.tracking.SetState(ctx, orderID, PhaseDistributorShipping, 50)
			e.tracking.AppendEvent(ctx, orderID, EventShipping, "Shipping from the distributor")
		}},
	}

	for _, step := range steps {
		e.sleepUntil(start, step.offset)
		step.fn()
	}

	finalOffset := sch.Assemble + sch.ToDist + sch.Ship + delayRollOffset
	e.sleepUntil(start, finalOffset)

	if e.roll() < delayProbability {
		excuse := delayExcuses[rand.Intn(len(delayExcuses))]
		e.tracking.SetState(ctx, orderID, PhaseDistributorShipping, 75)
		e.tracking.AppendEvent(ctx, orderID, EventDelay, excuse)
		e.sleepUntil(start, finalOffset+delayExtraTime)
	}

	e.deliver(ctx, orderID, userID)
}

// sleepUntil blocks until the given offset from start has elapsed.
func (e *Engine) sleepUntil(start time.Time, offset int) {
	if d := time.Until(start.Add(time.Duration(offset) * e.unit)); d > 0 {
		time.Sleep(d)
	}
}

// deliver performs the terminal transition: order status COMPLETED in the
// durable store and phase delivered in the tracking state. When the teleport
// shortcut already delivered the order the whole step is a no-op, so a late
// timer cannot double-notify.
func (e *Engine) deliver(ctx context.Context, orderID uint, userID *uint) {
	if phase, err := e.tracking.Phase(ctx, orderID); err == nil && phase == PhaseDelivered {
		return
	}

	err := e.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("status", models.StatusCompleted).Error
	e.tracking.SetState(ctx, orderID, PhaseDelivered, 100)
	e.tracking.AppendEvent(ctx, orderID, EventDelivered, "Order delivered")
	if userID != nil {
		e.notify.Push(ctx, *userID, NotifySuccess,
			fmt.Sprintf("Order #%d delivered", orderID), "Done",
			map[string]any{"orderId": orderID})
	}
	middleware.RecordOrderOperation("deliver", err == nil)
}
