// Package kv owns the redis connection and the ephemeral key layout.
//
// Everything short-lived goes through here: session carts, order tracking
// state, delivery schedules, event logs, notification inboxes, rate-limit
// counters, the catalog query cache and behavioral metrics. The durable
// relational store never sees any of it.
package kv

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs shared by the key families below.
const (
	CartTTL          = 7 * 24 * time.Hour
	TrackingTTL      = 24 * time.Hour
	NotificationsTTL = 7 * 24 * time.Hour
	ProductCacheTTL  = 60 * time.Second
)

// Connect parses a redis URL and returns a verified client.
func Connect(rawURL string) *redis.Client {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	return client
}

// CartKey is the hash of productId -> quantity for one session cart.
func CartKey(cartID string) string {
	return "cart:" + cartID
}

// StateKey is the tracking state hash (phase, progress, etaSec) for an order.
func StateKey(orderID uint) string {
	return fmt.Sprintf("order:%d:state", orderID)
}

// ScheduleKey is the delivery schedule hash (assemble, toDist, ship, fee).
func ScheduleKey(orderID uint) string {
	return fmt.Sprintf("order:%d:schedule", orderID)
}

// EventsKey is the newest-first list of JSON tracking events for an order.
func EventsKey(orderID uint) string {
	return fmt.Sprintf("order:%d:events", orderID)
}

// NotificationsKey is the capped per-user notification inbox.
func NotificationsKey(userID uint) string {
	return fmt.Sprintf("user:%d:notifications", userID)
}

// RateLimitKey is the per-IP request counter.
func RateLimitKey(ip string) string {
	return "ratelimit:" + ip
}
