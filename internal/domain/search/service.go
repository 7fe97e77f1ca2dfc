package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yanqian/eventradar/internal/domain/events"
	apperrors "github.com/yanqian/eventradar/pkg/errors"
	"github.com/yanqian/eventradar/pkg/metrics"
	"github.com/yanqian/eventradar/pkg/util"
)

const storeTimeout = 5 * time.Second

// Service exposes event search capabilities.
type Service interface {
	Search(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request, emit func(StreamMessage) error) error
	StreamSearch(ctx context.Context, req Request) (<-chan StreamMessage, error)
	LookupEvent(ctx context.Context, req LookupRequest) (events.Event, error)
	StartJob(ctx context.Context, req Request) (Job, error)
	GetJob(ctx context.Context, id string) (Job, error)
}

type service struct {
	cfg     Config
	cache   CategoryCache
	buckets DayBucketStore
	gateway Gateway
	jobs    JobStore
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     util.Clock
	newID   func() string
}

// NewService wires up the search domain.
func NewService(cfg Config, cache CategoryCache, buckets DayBucketStore, gateway Gateway, jobs JobStore, recorder *metrics.Recorder, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg.withDefaults(),
		cache:   cache,
		buckets: buckets,
		gateway: gateway,
		jobs:    jobs,
		metrics: recorder,
		logger:  logger.With("component", "search.service"),
		now:     util.NowUTC,
		newID:   uuid.NewString,
	}
}

type query struct {
	city       string
	date       string
	categories []events.Category
	opts       Options
	limit      int
}

func (s *service) validate(req Request) (query, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "city is required", nil)
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		return query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "date is required", nil)
	}
	if _, err := time.Parse(events.DateLayout, date); err != nil {
		return query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "date must be formatted as YYYY-MM-DD", err)
	}
	if len(req.Categories) == 0 {
		return query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "at least one category is required", nil)
	}

	seen := make(map[events.Category]struct{}, len(req.Categories))
	cats := make([]events.Category, 0, len(req.Categories))
	for _, raw := range req.Categories {
		cat, ok := events.ParseCategory(raw)
		if !ok {
			return query{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unknown category %q", raw), nil)
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		cats = append(cats, cat)
	}

	return query{
		city:       city,
		date:       date,
		categories: cats,
		opts:       req.Options,
		limit:      s.cfg.concurrency(req.Options.CategoryConcurrency),
	}, nil
}

func (s *service) Search(ctx context.Context, req Request) (Response, error) {
	started := time.Now()
	q, err := s.validate(req)
	if err != nil {
		return Response{}, err
	}

	lookup := s.resolveCache(ctx, q)
	outcomes := s.fetchMissing(ctx, q, lookup.Missing)
	resp, served := s.assemble(q, lookup, outcomes)
	if served == 0 {
		return Response{}, apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "no category could be served", firstError(outcomes))
	}
	s.upsertDayBucket(ctx, q, resp.Events)

	if q.opts.Debug {
		resp.Debug = debugInfo(outcomes, started)
	}
	s.logger.Info("search completed",
		"city", q.city,
		"date", q.date,
		"categories", len(q.categories),
		"fetched", len(outcomes),
		"events", len(resp.Events),
		"fromCache", resp.Cached,
	)
	return resp, nil
}

// resolveCache reads the shards for q. A failing cache degrades to a full
// miss instead of failing the request.
func (s *service) resolveCache(ctx context.Context, q query) CacheLookup {
	allMissing := CacheLookup{
		Cached:  map[events.Category][]events.Event{},
		Missing: append([]events.Category(nil), q.categories...),
	}
	if q.opts.DisableCache {
		return allMissing
	}
	lookup, err := s.cache.GetEventsByCategories(ctx, q.city, q.date, q.categories)
	if err != nil {
		s.logger.Warn("category cache lookup failed", "city", q.city, "date", q.date, "error", err)
		s.metrics.CacheLookupFailed()
		return allMissing
	}
	if lookup.Cached == nil {
		lookup.Cached = map[events.Category][]events.Event{}
	}
	s.metrics.CacheLookup(len(lookup.Cached), len(lookup.Missing))
	return lookup
}

type fetchOutcome struct {
	category events.Category
	events   []events.Event
	parsed   int
	skipped  int
	usage    metrics.TokenUsage
	partial  bool
	err      error
}

// partialWarning is reported for categories where some source failed.
const partialWarning = "partial results: a source failed"

// fetchMissing fetches every category in missing with at most q.limit
// requests in flight. Once ctx is done no further category is started;
// categories already dispatched run to completion and are cached.
func (s *service) fetchMissing(ctx context.Context, q query, missing []events.Category) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(missing))
	if len(missing) == 0 {
		return outcomes
	}
	var g errgroup.Group
	g.SetLimit(q.limit)
	for i, cat := range missing {
		if err := ctx.Err(); err != nil {
			outcomes[i] = fetchOutcome{category: cat, err: err}
			continue
		}
		g.Go(func() error {
			// g.Go may have waited for a slot while ctx was cancelled.
			if err := ctx.Err(); err != nil {
				outcomes[i] = fetchOutcome{category: cat, err: err}
				return nil
			}
			outcomes[i] = s.fetchCategory(ctx, q, cat)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *service) fetchCategory(ctx context.Context, q query, cat events.Category) fetchOutcome {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
	defer cancel()

	out := fetchOutcome{category: cat}
	started := time.Now()
	results, err := s.gateway.Search(fctx, q.city, q.date, []events.Category{cat}, FetchOptions{Debug: q.opts.Debug})
	s.metrics.UpstreamFetch(time.Since(started), err)
	if err != nil {
		s.logger.Warn("category fetch failed", "city", q.city, "date", q.date, "category", cat, "error", err)
		out.err = err
		return out
	}

	var collected []events.Event
	for _, res := range results {
		fallback := res.Category
		if fallback == "" {
			fallback = cat
		}
		evs := append([]events.Event(nil), res.Events...)
		if strings.TrimSpace(res.Content) != "" {
			parsed, report, perr := events.ParseEventsFromResponse(res.Content, events.ParseDefaults{
				Date:     q.date,
				Category: fallback,
				Source:   res.Source,
			})
			if perr != nil {
				s.logger.Warn("source response not parseable", "category", cat, "source", res.Source, "error", perr)
			}
			if report.Skipped > 0 {
				s.logger.Debug("skipped malformed records", "category", cat, "source", res.Source, "skipped", report.Skipped)
			}
			out.parsed += report.Parsed
			out.skipped += report.Skipped
			evs = append(evs, parsed...)
		}
		out.usage = out.usage.Add(res.Usage)
		out.partial = out.partial || res.Partial
		collected = append(collected, events.CategorizeEvents(evs, fallback)...)
	}
	out.events = events.DeduplicateEvents(collected)
	s.storeShard(ctx, q, cat, out.events, out.partial)
	return out
}

// storeShard caches a fetched category. Partial results get the floor TTL
// so the failed source is asked again soon.
func (s *service) storeShard(ctx context.Context, q query, cat events.Category, evs []events.Event, partial bool) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	ttl := events.ComputeTTLSeconds(evs, s.now.Now(), s.cfg.Location)
	if partial {
		ttl = events.MinTTLSeconds
	}
	err := s.cache.SetEventsByCategory(wctx, q.city, q.date, cat, evs, ttl)
	s.metrics.CacheWrite("shard", err)
	if err != nil {
		s.logger.Warn("category cache write failed", "city", q.city, "date", q.date, "category", cat, "error", err)
	}
}

func (s *service) upsertDayBucket(ctx context.Context, q query, evs []events.Event) {
	if s.buckets == nil || len(evs) == 0 {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	err := s.buckets.UpsertDayEvents(wctx, q.city, q.date, evs)
	s.metrics.CacheWrite("day_bucket", err)
	if err != nil {
		s.logger.Warn("day bucket upsert failed", "city", q.city, "date", q.date, "error", err)
	}
}

// assemble merges cached shards and fetch outcomes in request order. served
// counts categories that contributed (cached or fetched without error).
func (s *service) assemble(q query, lookup CacheLookup, outcomes []fetchOutcome) (Response, int) {
	fetched := make(map[events.Category]fetchOutcome, len(outcomes))
	for _, o := range outcomes {
		fetched[o.category] = o
	}

	breakdown := make(map[events.Category]BreakdownEntry, len(q.categories))
	var cachedLists, allLists [][]events.Event
	served := 0
	for _, cat := range q.categories {
		if evs, ok := lookup.Cached[cat]; ok {
			breakdown[cat] = BreakdownEntry{FromCache: true, EventCount: len(evs)}
			cachedLists = append(cachedLists, evs)
			allLists = append(allLists, evs)
			served++
			continue
		}
		o, ok := fetched[cat]
		if !ok || o.err != nil {
			breakdown[cat] = BreakdownEntry{Error: describeFetchError(o.err)}
			continue
		}
		entry := BreakdownEntry{EventCount: len(o.events)}
		if o.partial {
			entry.Warning = partialWarning
		}
		breakdown[cat] = entry
		allLists = append(allLists, o.events)
		served++
	}

	all := events.MergeEvents(allLists...)
	fromCache := len(lookup.Missing) == 0
	return Response{
		Events: all,
		Cached: fromCache,
		CacheInfo: CacheInfo{
			FromCache:      fromCache,
			TotalEvents:    len(all),
			CachedEvents:   len(events.MergeEvents(cachedLists...)),
			CacheBreakdown: breakdown,
		},
	}, served
}

func describeFetchError(err error) string {
	switch {
	case err == nil:
		return "not fetched"
	case errors.Is(err, ErrSourceUnavailable):
		return "event source unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "fetch timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled before fetch"
	default:
		return err.Error()
	}
}

func firstError(outcomes []fetchOutcome) error {
	for _, o := range outcomes {
		if o.err != nil {
			return o.err
		}
	}
	return nil
}

func debugInfo(outcomes []fetchOutcome, started time.Time) *DebugInfo {
	info := &DebugInfo{Fetched: make([]events.Category, 0, len(outcomes))}
	for _, o := range outcomes {
		info.Fetched = append(info.Fetched, o.category)
		info.ParsedRecords += o.parsed
		info.SkippedRecords += o.skipped
		info.Tokens = info.Tokens.Add(o.usage)
	}
	info.DurationMs = time.Since(started).Milliseconds()
	return info
}
