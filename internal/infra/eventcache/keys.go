package eventcache

import (
	"fmt"
	"time"

	"github.com/yanqian/eventradar/internal/domain/events"
)

const (
	defaultPrefix = "events"
	// DayBucketTTL bounds how long a day bucket lingers in the backing store.
	DayBucketTTL = 48 * time.Hour
)

// ShardKey renders events:<city>:<date>:<category> with slugged city and category.
func ShardKey(prefix, city, date string, category events.Category) string {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, events.Slugify(city), date, category.Slug())
}

// DayKey renders events:<city>:<date>:day.
func DayKey(prefix, city, date string) string {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s:%s:%s:day", prefix, events.Slugify(city), date)
}

type shardEntry struct {
	Events     []events.Event `json:"events"`
	Timestamp  int64          `json:"timestamp"`
	TTLSeconds int            `json:"ttlSeconds"`
}

func newShardEntry(evs []events.Event, now time.Time, ttlSeconds int) shardEntry {
	if evs == nil {
		evs = []events.Event{}
	}
	return shardEntry{Events: evs, Timestamp: now.UnixMilli(), TTLSeconds: ttlSeconds}
}

func (e shardEntry) fresh(now time.Time) bool {
	if e.TTLSeconds <= 0 {
		return false
	}
	expires := time.UnixMilli(e.Timestamp).Add(time.Duration(e.TTLSeconds) * time.Second)
	return now.Before(expires)
}

func validateTTL(ttlSeconds int) error {
	if ttlSeconds <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", ttlSeconds)
	}
	return nil
}
