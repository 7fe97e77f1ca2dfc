package search

import (
	"context"
	"errors"
	"time"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/pkg/metrics"
)

// ErrSourceUnavailable marks a gateway failure that retrying cannot fix, such
// as a missing API key or an unreachable provider. Progressive searches end
// with an error message when they see it.
var ErrSourceUnavailable = errors.New("event source unavailable")

// CacheLookup splits requested categories into fresh hits and misses.
// Missing keeps request order.
type CacheLookup struct {
	Cached  map[events.Category][]events.Event
	Missing []events.Category
}

// CategoryCache stores one shard per (city, date, category).
type CategoryCache interface {
	GetEventsByCategories(ctx context.Context, city, date string, categories []events.Category) (CacheLookup, error)
	SetEventsByCategory(ctx context.Context, city, date string, category events.Category, evs []events.Event, ttlSeconds int) error
}

// DayBucket is the deduplicated union of every category seen for a day.
type DayBucket struct {
	City      string         `json:"city"`
	Date      string         `json:"date"`
	Events    []events.Event `json:"events"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// DayBucketStore persists day buckets. UpsertDayEvents merges evs into the
// existing bucket using the dedup rule.
type DayBucketStore interface {
	GetDayEvents(ctx context.Context, city, date string) (DayBucket, bool, error)
	UpsertDayEvents(ctx context.Context, city, date string, evs []events.Event) error
}

// FetchOptions are forwarded to the gateway.
type FetchOptions struct {
	Debug bool
}

// RawResult is what one source returned for one category. Generative sources
// fill Content and leave parsing to the caller; structured sources fill
// Events directly. Partial marks a category where another source failed
// transiently, so the result may be incomplete.
type RawResult struct {
	Category events.Category
	Source   string
	Content  string
	Events   []events.Event
	Usage    metrics.TokenUsage
	Partial  bool
}

// Gateway fans a category fetch out to the configured sources.
type Gateway interface {
	Search(ctx context.Context, city, date string, categories []events.Category, opts FetchOptions) ([]RawResult, error)
}

// JobStore keeps detached search jobs until their TTL expires.
type JobStore interface {
	Save(ctx context.Context, job Job, ttl time.Duration) error
	Get(ctx context.Context, id string) (Job, bool, error)
}
