package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/vitrina/internal/kv"
)

// Delivery phases, in the only order they may be visited.
const (
	PhaseAssembling          = "assembling"
	PhaseToDistributor       = "to_distributor"
	PhaseDistributorShipping = "distributor_shipping"
	PhaseDelivered           = "delivered"
)

// Tracking event types.
const (
	EventCreated       = "created"
	EventAssembled     = "assembled"
	EventToDistributor = "to_distributor"
	EventShipping      = "shipping"
	EventDelay         = "delay"
	EventDelivered     = "delivered"
)

// TrackingEvent is one entry of an order's append-only event log.
type TrackingEvent struct {
	TS      int64  `json:"ts"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TrackingSnapshot is the projection the polling client consumes. State and
// schedule are raw redis hashes so expired or uninitialized orders degrade
// to empty maps; events are in chronological order, oldest first.
type TrackingSnapshot struct {
	State    map[string]string `json:"state"`
	Schedule map[string]string `json:"schedule"`
	Events   []TrackingEvent   `json:"events"`
}

// TrackingService owns the per-order ephemeral tracking keys: the state
// hash, the delivery schedule hash and the event log list. All keys expire
// 24 hours after the last write.
type TrackingService struct {
	rdb *redis.Client
}

// NewTrackingService constructs a TrackingService.
func NewTrackingService(rdb *redis.Client) *TrackingService {
	return &TrackingService{rdb: rdb}
}

// Init resets the tracking keys for a freshly created order: state at
// assembling/0, a cleared event log and the immutable schedule.
func (s *TrackingService) Init(ctx context.Context, orderID uint, sch Schedule) error {
	stateKey := kv.StateKey(orderID)
	if err := s.rdb.HSet(ctx, stateKey, "phase", PhaseAssembling, "progress", "0", "etaSec", "0").Err(); err != nil {
		return err
	}
	s.rdb.Expire(ctx, stateKey, kv.TrackingTTL)

	s.rdb.Del(ctx, kv.EventsKey(orderID))

	scheduleKey := kv.ScheduleKey(orderID)
	s.rdb.Del(ctx, scheduleKey)
	if err := s.rdb.HSet(ctx, scheduleKey,
		"assemble", strconv.Itoa(sch.Assemble),
		"toDist", strconv.Itoa(sch.ToDist),
		"ship", strconv.Itoa(sch.Ship),
		"fee", strconv.Itoa(sch.Fee),
	).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, scheduleKey, kv.TrackingTTL).Err()
}

// SetState writes the current phase and progress, refreshing the TTL.
func (s *TrackingService) SetState(ctx context.Context, orderID uint, phase string, progress int) error {
	key := kv.StateKey(orderID)
	if err := s.rdb.HSet(ctx, key, "phase", phase, "progress", strconv.Itoa(progress)).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, kv.TrackingTTL).Err()
}

// Phase returns the current phase, or "" when no state exists.
func (s *TrackingService) Phase(ctx context.Context, orderID uint) (string, error) {
	phase, err := s.rdb.HGet(ctx, kv.StateKey(orderID), "phase").Result()
	if err == redis.Nil {
		return "", nil
	}
	return phase, err
}

// AppendEvent prepends an event to the order's log, refreshing the TTL.
// Events are never mutated after insertion.
func (s *TrackingService) AppendEvent(ctx context.Context, orderID uint, eventType, message string) error {
	payload, err := json.Marshal(TrackingEvent{
		TS:      time.Now().UnixMilli(),
		Type:    eventType,
		Message: message,
	})
	if err != nil {
		return err
	}

	key := kv.EventsKey(orderID)
	if err := s.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, kv.TrackingTTL).Err()
}

// Fee returns the teleport fee from the stored schedule, 0 when missing.
func (s *TrackingService) Fee(ctx context.Context, orderID uint) (int, error) {
	raw, err := s.rdb.HGet(ctx, kv.ScheduleKey(orderID), "fee").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	fee, _ := strconv.Atoi(raw)
	return fee, nil
}

// Snapshot assembles the tracking projection for one order. Every lookup
// degrades independently: an expired or never-initialized order yields empty
// maps and an empty event slice, never an error. The endpoint is polled
// continuously and must not flap on partial data.
func (s *TrackingService) Snapshot(ctx context.Context, orderID uint) TrackingSnapshot {
	snap := TrackingSnapshot{
		State:    map[string]string{},
		Schedule: map[string]string{},
		Events:   []TrackingEvent{},
	}

	if state, err := s.rdb.HGetAll(ctx, kv.StateKey(orderID)).Result(); err == nil && state != nil {
		snap.State = state
	}
	if schedule, err := s.rdb.HGetAll(ctx, kv.ScheduleKey(orderID)).Result(); err == nil && schedule != nil {
		snap.Schedule = schedule
	}

	raw, err := s.rdb.LRange(ctx, kv.EventsKey(orderID), 0, -1).Result()
	if err != nil {
		return snap
	}
	// Stored newest-first; reverse to chronological order for the client.
	for i := len(raw) - 1; i >= 0; i-- {
		var event TrackingEvent
		if err := json.Unmarshal([]byte(raw[i]), &event); err != nil {
			continue
		}
		snap.Events = append(snap.Events, event)
	}
	return snap
}
