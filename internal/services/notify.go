package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/vitrina/internal/kv"
)

// Notification kinds.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyInfo    = "info"
)

const notificationsCap = 100

// Notification is one entry in a user's inbox.
type Notification struct {
	ID      int64          `json:"id"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Title   string         `json:"title,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// NotificationService keeps a capped per-user inbox in redis. Pushes are
// fire-and-forget: callers ignore the returned error.
type NotificationService struct {
	rdb *redis.Client
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(rdb *redis.Client) *NotificationService {
	return &NotificationService{rdb: rdb}
}

// Push prepends a notification and trims the inbox to its cap.
func (s *NotificationService) Push(ctx context.Context, userID uint, kind, message, title string, meta map[string]any) error {
	payload, err := json.Marshal(Notification{
		ID:      time.Now().UnixMilli(),
		Kind:    kind,
		Message: message,
		Title:   title,
		Meta:    meta,
	})
	if err != nil {
		return err
	}

	key := kv.NotificationsKey(userID)
	if err := s.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return err
	}
	s.rdb.LTrim(ctx, key, 0, notificationsCap-1)
	return s.rdb.Expire(ctx, key, kv.NotificationsTTL).Err()
}

// Pull returns the inbox and deletes it.
func (s *NotificationService) Pull(ctx context.Context, userID uint) ([]Notification, error) {
	key := kv.NotificationsKey(userID)
	items, err := s.list(ctx, key)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, key)
	return items, nil
}

// List returns the inbox without draining it.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]Notification, error) {
	return s.list(ctx, kv.NotificationsKey(userID))
}

func (s *NotificationService) list(ctx context.Context, key string) ([]Notification, error) {
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	items := make([]Notification, 0, len(raw))
	for _, entry := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			continue
		}
		items = append(items, n)
	}
	return items, nil
}
