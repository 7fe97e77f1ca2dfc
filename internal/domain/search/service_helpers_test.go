package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/pkg/util"
)

var testNow = time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(cache *stubCache, buckets *stubBuckets, gateway *stubGateway, jobs *stubJobs) *service {
	var (
		b DayBucketStore
		j JobStore
	)
	if buckets != nil {
		b = buckets
	}
	if jobs != nil {
		j = jobs
	}
	svc := NewService(Config{FetchTimeout: time.Second, Location: time.UTC}, cache, b, gateway, j, nil, newTestLogger()).(*service)
	svc.now = util.FixedClock(testNow)
	ids := 0
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("job-%d", ids)
	}
	return svc
}

type stubShard struct {
	events   []events.Event
	storedAt time.Time
	ttl      int
}

type stubCache struct {
	mu     sync.Mutex
	shards map[string]stubShard
	now    time.Time
	getErr error
	writes []events.Category
}

func newStubCache() *stubCache {
	return &stubCache{shards: map[string]stubShard{}, now: testNow}
}

func shardKey(city, date string, cat events.Category) string {
	return city + "|" + date + "|" + string(cat)
}

func (c *stubCache) GetEventsByCategories(ctx context.Context, city, date string, categories []events.Category) (CacheLookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return CacheLookup{}, c.getErr
	}
	out := CacheLookup{Cached: map[events.Category][]events.Event{}}
	for _, cat := range categories {
		shard, ok := c.shards[shardKey(city, date, cat)]
		if ok && c.now.Before(shard.storedAt.Add(time.Duration(shard.ttl)*time.Second)) {
			out.Cached[cat] = shard.events
			continue
		}
		out.Missing = append(out.Missing, cat)
	}
	return out, nil
}

func (c *stubCache) SetEventsByCategory(ctx context.Context, city, date string, category events.Category, evs []events.Event, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttlSeconds <= 0 {
		return fmt.Errorf("invalid ttl %d", ttlSeconds)
	}
	c.shards[shardKey(city, date, category)] = stubShard{events: evs, storedAt: c.now, ttl: ttlSeconds}
	c.writes = append(c.writes, category)
	return nil
}

func (c *stubCache) seed(city, date string, cat events.Category, evs []events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shards[shardKey(city, date, cat)] = stubShard{events: evs, storedAt: c.now, ttl: events.MaxTTLSeconds}
}

func (c *stubCache) has(city, date string, cat events.Category) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.shards[shardKey(city, date, cat)]
	return ok
}

type stubBuckets struct {
	mu      sync.Mutex
	buckets map[string]DayBucket
	upserts int
}

func newStubBuckets() *stubBuckets {
	return &stubBuckets{buckets: map[string]DayBucket{}}
}

func (b *stubBuckets) GetDayEvents(ctx context.Context, city, date string) (DayBucket, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bucket, ok := b.buckets[city+"|"+date]
	return bucket, ok, nil
}

func (b *stubBuckets) UpsertDayEvents(ctx context.Context, city, date string, evs []events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := city + "|" + date
	existing := b.buckets[key]
	b.buckets[key] = DayBucket{City: city, Date: date, Events: events.MergeEvents(existing.Events, evs), UpdatedAt: testNow}
	b.upserts++
	return nil
}

type stubGateway struct {
	mu          sync.Mutex
	results     map[events.Category][]RawResult
	errs        map[events.Category]error
	calls       []events.Category
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func newStubGateway() *stubGateway {
	return &stubGateway{results: map[events.Category][]RawResult{}, errs: map[events.Category]error{}}
}

func (g *stubGateway) Search(ctx context.Context, city, date string, categories []events.Category, opts FetchOptions) ([]RawResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, categories...)
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	delay := g.delay
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()
	if delay > 0 {
		time.Sleep(delay)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	var out []RawResult
	for _, cat := range categories {
		if err := g.errs[cat]; err != nil {
			return nil, err
		}
		out = append(out, g.results[cat]...)
	}
	return out, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *stubGateway) fetched() []events.Category {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]events.Category(nil), g.calls...)
}

type stubJobs struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func newStubJobs() *stubJobs {
	return &stubJobs{jobs: map[string]Job{}}
}

func (s *stubJobs) Save(ctx context.Context, job Job, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *stubJobs) Get(ctx context.Context, id string) (Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok, nil
}

func aiResult(cat events.Category, content string) RawResult {
	return RawResult{Category: cat, Source: events.SourceAI, Content: content}
}
