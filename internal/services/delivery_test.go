package services

import (
	"context"
	"testing"
	"time"

	"github.com/example/vitrina/internal/models"
)

func TestNewScheduleBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		sch := NewSchedule(100)
		if sch.Assemble < 5 || sch.Assemble >= 20 {
			t.Fatalf("assemble out of bounds: %d", sch.Assemble)
		}
		if sch.ToDist < sch.Assemble || sch.ToDist >= sch.Assemble+20 {
			t.Fatalf("toDist out of bounds: %d (assemble %d)", sch.ToDist, sch.Assemble)
		}
		if sch.Ship < sch.Assemble || sch.Ship >= sch.Assemble+30 {
			t.Fatalf("ship out of bounds: %d (assemble %d)", sch.Ship, sch.Assemble)
		}
	}
}

func TestTeleportFee(t *testing.T) {
	t.Parallel()

	cases := []struct {
		total float64
		want  int
	}{
		{200, 10},
		{100, 5},
		{10, 1},
		{0.5, 1},
		{0, 1},
		{1000, 50},
		{49.99, 2},
	}
	for _, tc := range cases {
		if got := TeleportFee(tc.total); got != tc.want {
			t.Errorf("TeleportFee(%v) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func testEngine(t *testing.T, roll float64) (*Engine, *TrackingService, *NotificationService, uint, *uint) {
	t.Helper()

	db, rdb := testEnv(t)
	tracking := NewTrackingService(rdb)
	notify := NewNotificationService(rdb)

	engine := NewEngine(db, tracking, notify)
	engine.unit = time.Millisecond
	engine.roll = func() float64 { return roll }

	userID := uint(7)
	order := models.Order{UserID: &userID, Status: models.StatusPending, Total: 50}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	return engine, tracking, notify, order.ID, &userID
}

func TestEngineHappyPath(t *testing.T) {
	t.Parallel()

	engine, tracking, notify, orderID, userID := testEngine(t, 1) // never unlucky
	ctx := context.Background()

	sch := Schedule{Assemble: 2, ToDist: 3, Ship: 4, Fee: 3}
	if err := tracking.Init(ctx, orderID, sch); err != nil {
		t.Fatalf("init tracking: %v", err)
	}
	tracking.AppendEvent(ctx, orderID, EventCreated, "Order created")

	engine.run(orderID, userID, sch)

	snap := tracking.Snapshot(ctx, orderID)
	if snap.State["phase"] != PhaseDelivered || snap.State["progress"] != "100" {
		t.Fatalf("unexpected final state: %v", snap.State)
	}

	wantTypes := []string{EventCreated, EventAssembled, EventToDistributor, EventShipping, EventDelivered}
	if len(snap.Events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %v", len(wantTypes), len(snap.Events), snap.Events)
	}
	for i, want := range wantTypes {
		if snap.Events[i].Type != want {
			t.Errorf("event %d: got %q, want %q", i, snap.Events[i].Type, want)
		}
	}

	var order models.Order
	if err := engine.db.First(&order, orderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.Status != models.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", order.Status)
	}

	items, err := notify.List(ctx, *userID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(items) != 1 || items[0].Kind != NotifySuccess {
		t.Fatalf("expected one success notification, got %v", items)
	}
}

func TestEngineDelayBranch(t *testing.T) {
	t.Parallel()

	engine, tracking, _, orderID, userID := testEngine(t, 0) // always unlucky
	ctx := context.Background()

	sch := Schedule{Assemble: 1, ToDist: 1, Ship: 1, Fee: 1}
	if err := tracking.Init(ctx, orderID, sch); err != nil {
		t.Fatalf("init tracking: %v", err)
	}

	engine.run(orderID, userID, sch)

	snap := tracking.Snapshot(ctx, orderID)
	if snap.State["phase"] != PhaseDelivered {
		t.Fatalf("expected delivered, got %v", snap.State)
	}

	var delayCount, deliveredCount int
	for _, event := range snap.Events {
		switch event.Type {
		case EventDelay:
			delayCount++
		case EventDelivered:
			deliveredCount++
		}
	}
	if delayCount != 1 {
		t.Fatalf("expected exactly one delay event, got %d", delayCount)
	}
	if deliveredCount != 1 {
		t.Fatalf("expected exactly one delivered event, got %d", deliveredCount)
	}
}

func TestEnginePhaseOrdering(t *testing.T) {
	t.Parallel()

	engine, tracking, _, orderID, userID := testEngine(t, 1)
	ctx := context.Background()

	sch := Schedule{Assemble: 1, ToDist: 2, Ship: 3, Fee: 1}
	if err := tracking.Init(ctx, orderID, sch); err != nil {
		t.Fatalf("init tracking: %v", err)
	}

	// Poll phase transitions while the engine runs.
	done := make(chan struct{})
	var observed []string
	go func() {
		defer close(done)
		last := ""
		for {
			phase, _ := tracking.Phase(ctx, orderID)
			if phase != last && phase != "" {
				observed = append(observed, phase)
				last = phase
			}
			if phase == PhaseDelivered {
				return
			}
			time.Sleep(200 * time.Microsecond)
		}
	}()

	engine.run(orderID, userID, sch)
	<-done

	order := map[string]int{
		PhaseAssembling:          0,
		PhaseToDistributor:       1,
		PhaseDistributorShipping: 2,
		PhaseDelivered:           3,
	}
	for i := 1; i < len(observed); i++ {
		if order[observed[i]] < order[observed[i-1]] {
			t.Fatalf("backward transition %q -> %q in %v", observed[i-1], observed[i], observed)
		}
	}
	if len(observed) == 0 || observed[len(observed)-1] != PhaseDelivered {
		t.Fatalf("simulation never reached delivered: %v", observed)
	}
}

func TestEngineDeliverNoOpAfterTeleport(t *testing.T) {
	t.Parallel()

	engine, tracking, notify, orderID, userID := testEngine(t, 1)
	ctx := context.Background()

	sch := Schedule{Assemble: 1, ToDist: 1, Ship: 1, Fee: 1}
	if err := tracking.Init(ctx, orderID, sch); err != nil {
		t.Fatalf("init tracking: %v", err)
	}

	// Teleport already finished the order.
	tracking.SetState(ctx, orderID, PhaseDelivered, 100)

	engine.deliver(ctx, orderID, userID)

	snap := tracking.Snapshot(ctx, orderID)
	for _, event := range snap.Events {
		if event.Type == EventDelivered {
			t.Fatalf("late timer appended a delivered event: %v", snap.Events)
		}
	}

	items, err := notify.List(ctx, *userID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("late timer pushed a duplicate notification: %v", items)
	}

	var order models.Order
	if err := engine.db.First(&order, orderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("late timer mutated order status to %s", order.Status)
	}
}
