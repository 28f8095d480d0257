package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Behavioral metrics keys. Distinct from the Prometheus request metrics:
// these feed the storefront's own top-products/top-pages widgets.
const (
	metricsProductViews = "metrics:products:views"
	metricsPageViews    = "metrics:pages:views"
	metricsDwellMs      = "metrics:pages:dwellMs"
	metricsDwellCount   = "metrics:pages:dwellCount"
	metricsEvents       = "metrics:events"
	metricsEventsCap    = 1000
	metricsTopN         = 10
)

// ErrUnknownEvent is returned for track payloads of no known type.
var ErrUnknownEvent = errors.New("unknown event type")

// TrackEvent is a client-side behavioral event.
type TrackEvent struct {
	Type       string  `json:"type"`
	ProductID  string  `json:"productId"`
	Path       string  `json:"path"`
	DurationMs float64 `json:"durationMs"`
}

// ProductViews is one row of the top-products report.
type ProductViews struct {
	ID    string `json:"id"`
	Views int64  `json:"views"`
}

// PageViews is one row of the top-pages report.
type PageViews struct {
	Path       string   `json:"path"`
	Views      int64    `json:"views"`
	AvgDwellMs *float64 `json:"avgDwellMs,omitempty"`
}

// MetricsService accumulates view and dwell counters in redis.
type MetricsService struct {
	rdb *redis.Client
}

// NewMetricsService constructs a MetricsService.
func NewMetricsService(rdb *redis.Client) *MetricsService {
	return &MetricsService{rdb: rdb}
}

// Track records one behavioral event and appends it to the raw event list.
func (s *MetricsService) Track(ctx context.Context, event TrackEvent) error {
	switch {
	case event.Type == "product_view" && event.ProductID != "":
		s.rdb.ZIncrBy(ctx, metricsProductViews, 1, event.ProductID)
	case event.Type == "page_view" && event.Path != "":
		s.rdb.ZIncrBy(ctx, metricsPageViews, 1, event.Path)
	case event.Type == "dwell" && event.Path != "" && event.DurationMs > 0:
		s.rdb.HIncrByFloat(ctx, metricsDwellMs, event.Path, event.DurationMs)
		s.rdb.HIncrBy(ctx, metricsDwellCount, event.Path, 1)
	default:
		return ErrUnknownEvent
	}

	payload, err := json.Marshal(struct {
		TrackEvent
		T int64 `json:"t"`
	}{TrackEvent: event, T: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	s.rdb.LPush(ctx, metricsEvents, payload)
	s.rdb.LTrim(ctx, metricsEvents, 0, metricsEventsCap-1)
	return nil
}

// TopProducts returns the ten most viewed products.
func (s *MetricsService) TopProducts(ctx context.Context) ([]ProductViews, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, metricsProductViews, 0, metricsTopN-1).Result()
	if err != nil {
		return nil, err
	}

	items := make([]ProductViews, 0, len(entries))
	for _, entry := range entries {
		id, _ := entry.Member.(string)
		items = append(items, ProductViews{ID: id, Views: int64(entry.Score)})
	}
	return items, nil
}

// TopPages returns the ten most viewed pages with average dwell time.
func (s *MetricsService) TopPages(ctx context.Context) ([]PageViews, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, metricsPageViews, 0, metricsTopN-1).Result()
	if err != nil {
		return nil, err
	}

	items := make([]PageViews, 0, len(entries))
	for _, entry := range entries {
		path, _ := entry.Member.(string)
		item := PageViews{Path: path, Views: int64(entry.Score)}
		totalMs, _ := s.rdb.HGet(ctx, metricsDwellMs, path).Float64()
		count, _ := s.rdb.HGet(ctx, metricsDwellCount, path).Int64()
		if count > 0 {
			avg := totalMs / float64(count)
			item.AvgDwellMs = &avg
		}
		items = append(items, item)
	}
	return items, nil
}

// StartRefresher periodically precomputes the top-N reports into cache keys
// so the widgets never hit the zsets directly under load.
func (s *MetricsService) StartRefresher(interval time.Duration) {
	go func() {
		for {
			time.Sleep(interval)
			if err := s.refreshCache(context.Background()); err != nil {
				log.Printf("metrics cache refresh failed: %v", err)
			}
		}
	}()
}

func (s *MetricsService) refreshCache(ctx context.Context) error {
	products, err := s.TopProducts(ctx)
	if err != nil {
		return err
	}
	pages, err := s.TopPages(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	productsPayload, _ := json.Marshal(map[string]any{"at": now, "items": products})
	pagesPayload, _ := json.Marshal(map[string]any{"at": now, "items": pages})

	if err := s.rdb.Set(ctx, "metrics:cache:top-products", productsPayload, 0).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, "metrics:cache:top-pages", pagesPayload, 0).Err()
}
