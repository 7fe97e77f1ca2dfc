package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/eventradar/internal/domain/events"
	apperrors "github.com/yanqian/eventradar/pkg/errors"
	"github.com/yanqian/eventradar/pkg/metrics"
)

const wienConcerts = `[
	{"title":"Mozart Requiem","category":"Konzerte klassisch","venue":"Musikverein","date":"2025-09-30","time":"19:30"},
	{"title":"Indie Night","category":"Rock","venue":"Arena","date":"2025-09-30","time":"20:00"}
]`

func wienRequest(cats ...string) Request {
	return Request{City: "Wien", Date: "2025-09-30", Categories: cats}
}

func TestSearchColdThenWarmCache(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	svc := newTestService(cache, newStubBuckets(), gateway, nil)

	cold, err := svc.Search(context.Background(), wienRequest("Live-Konzerte"))
	require.NoError(t, err)
	require.Equal(t, 1, gateway.callCount())
	require.False(t, cold.Cached)
	require.Equal(t, 0, cold.CacheInfo.CachedEvents)
	require.Equal(t, 2, cold.CacheInfo.TotalEvents)
	require.Equal(t, BreakdownEntry{FromCache: false, EventCount: 2}, cold.CacheInfo.CacheBreakdown[events.CategoryConcerts])

	warm, err := svc.Search(context.Background(), wienRequest("Live-Konzerte"))
	require.NoError(t, err)
	require.Equal(t, 1, gateway.callCount(), "warm call must not fetch")
	require.True(t, warm.Cached)
	require.True(t, warm.CacheInfo.FromCache)
	require.Equal(t, cold.CacheInfo.TotalEvents, warm.CacheInfo.CachedEvents)
	require.Equal(t, cold.Events, warm.Events)
}

func TestSearchCategorizesFetchedEvents(t *testing.T) {
	t.Parallel()

	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	svc := newTestService(newStubCache(), nil, gateway, nil)

	resp, err := svc.Search(context.Background(), wienRequest("Konzerte klassisch"))
	require.NoError(t, err)
	require.Len(t, resp.Events, 2)
	for _, ev := range resp.Events {
		require.Equal(t, events.CategoryConcerts, ev.Category)
	}
	require.Equal(t, "Mozart Requiem", resp.Events[0].Title)
	require.Equal(t, "Klassisch", resp.Events[0].Subcategory)
	require.Equal(t, "Rock/Pop", resp.Events[1].Subcategory)
}

func TestSearchFetchesOnlyMissingCategories(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	cache.seed("Wien", "2025-09-30", events.CategoryFilm, []events.Event{{Title: "Kino unter Sternen", Venue: "Karlsplatz", Date: "2025-09-30", Category: events.CategoryFilm}})
	cache.seed("Wien", "2025-09-30", events.CategoryMuseums, []events.Event{})

	gateway := newStubGateway()
	gateway.results[events.CategorySport] = []RawResult{aiResult(events.CategorySport, `[{"title":"Stadtlauf","venue":"Prater"}]`)}
	svc := newTestService(cache, nil, gateway, nil)

	resp, err := svc.Search(context.Background(), wienRequest("Film", "Sport", "Museen", "Comedy/Kabarett"))
	require.NoError(t, err)
	require.ElementsMatch(t, []events.Category{events.CategorySport, events.CategoryComedy}, gateway.fetched())
	require.Len(t, resp.CacheInfo.CacheBreakdown, 4)
	require.Equal(t, BreakdownEntry{FromCache: true, EventCount: 1}, resp.CacheInfo.CacheBreakdown[events.CategoryFilm])
	require.Equal(t, BreakdownEntry{FromCache: true, EventCount: 0}, resp.CacheInfo.CacheBreakdown[events.CategoryMuseums])
	require.Equal(t, BreakdownEntry{EventCount: 1}, resp.CacheInfo.CacheBreakdown[events.CategorySport])
	require.Equal(t, BreakdownEntry{EventCount: 0}, resp.CacheInfo.CacheBreakdown[events.CategoryComedy])
	require.False(t, resp.Cached)
	require.Equal(t, 1, resp.CacheInfo.CachedEvents)
	require.Equal(t, 2, resp.CacheInfo.TotalEvents)
	require.True(t, cache.has("Wien", "2025-09-30", events.CategoryComedy), "empty results are cached too")
}

func TestSearchDeduplicatesAcrossCacheAndFetch(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	cache.seed("Wien", "2025-09-30", events.CategoryClubs, []events.Event{
		{Title: "Techno Night", Venue: "Flex", Date: "2025-09-30", Time: "23:00", Source: "flex-scraper", Category: events.CategoryClubs},
	})
	gateway := newStubGateway()
	gateway.results[events.CategoryElectronic] = []RawResult{aiResult(events.CategoryElectronic,
		`[{"title":"TECHNO NIGHT","venue":"flex","time":"22:00","price":"15"},{"title":"Ambient Morning","venue":"WUK","time":"09:00"}]`)}
	svc := newTestService(cache, nil, gateway, nil)

	resp, err := svc.Search(context.Background(), wienRequest("Clubs/Discos", "DJ Sets/Electronic"))
	require.NoError(t, err)
	require.Len(t, resp.Events, 2)
	require.Equal(t, "Ambient Morning", resp.Events[0].Title)
	require.Equal(t, "flex-scraper", resp.Events[1].Source)
	require.Equal(t, "23:00", resp.Events[1].Time)
}

func TestSearchIsIdempotentOnWarmCache(t *testing.T) {
	t.Parallel()

	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	gateway.results[events.CategoryTheater] = []RawResult{aiResult(events.CategoryTheater, `[{"title":"Hamlet","venue":"Burgtheater","time":"19:00"}]`)}
	svc := newTestService(newStubCache(), nil, gateway, nil)

	req := wienRequest("Live-Konzerte", "Theater/Performance")
	_, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first.Events, second.Events)
	require.Equal(t, 2, gateway.callCount())
}

func TestSearchValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		req  Request
	}{
		{name: "missing city", req: Request{Date: "2025-09-30", Categories: []string{"Film"}}},
		{name: "missing date", req: Request{City: "Wien", Categories: []string{"Film"}}},
		{name: "malformed date", req: Request{City: "Wien", Date: "30.09.2025", Categories: []string{"Film"}}},
		{name: "no categories", req: Request{City: "Wien", Date: "2025-09-30"}},
		{name: "unknown category", req: Request{City: "Wien", Date: "2025-09-30", Categories: []string{"Film", "Quidditch"}}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gateway := newStubGateway()
			svc := newTestService(newStubCache(), nil, gateway, nil)
			_, err := svc.Search(context.Background(), tc.req)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
			require.Zero(t, gateway.callCount())
		})
	}
}

func TestSearchRecordsPerCategoryFailures(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	gateway.errs[events.CategoryTheater] = errors.New("provider returned 503")
	svc := newTestService(cache, nil, gateway, nil)

	resp, err := svc.Search(context.Background(), wienRequest("Live-Konzerte", "Theater/Performance"))
	require.NoError(t, err)
	require.Len(t, resp.Events, 2)
	require.Equal(t, "provider returned 503", resp.CacheInfo.CacheBreakdown[events.CategoryTheater].Error)
	require.Empty(t, resp.CacheInfo.CacheBreakdown[events.CategoryConcerts].Error)
	require.False(t, cache.has("Wien", "2025-09-30", events.CategoryTheater))
	require.True(t, cache.has("Wien", "2025-09-30", events.CategoryConcerts))
}

func TestSearchCachesPartialResultsBriefly(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	gateway := newStubGateway()
	partial := aiResult(events.CategoryConcerts, wienConcerts)
	partial.Partial = true
	gateway.results[events.CategoryConcerts] = []RawResult{partial}
	svc := newTestService(cache, nil, gateway, nil)

	resp, err := svc.Search(context.Background(), wienRequest("Live-Konzerte"))
	require.NoError(t, err)
	require.Equal(t, BreakdownEntry{EventCount: 2, Warning: partialWarning}, resp.CacheInfo.CacheBreakdown[events.CategoryConcerts])
	require.Equal(t, events.MinTTLSeconds, cache.shards[shardKey("Wien", "2025-09-30", events.CategoryConcerts)].ttl)
}

func TestSearchFailsWhenNothingServed(t *testing.T) {
	t.Parallel()

	gateway := newStubGateway()
	gateway.errs[events.CategoryConcerts] = ErrSourceUnavailable
	svc := newTestService(newStubCache(), nil, gateway, nil)

	_, err := svc.Search(context.Background(), wienRequest("Live-Konzerte"))
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamUnavailable))
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestSearchDisableCacheSkipsReadsButWrites(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	cache.seed("Wien", "2025-09-30", events.CategoryConcerts, []events.Event{{Title: "Stale", Venue: "Old", Date: "2025-09-30"}})
	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	svc := newTestService(cache, nil, gateway, nil)

	req := wienRequest("Live-Konzerte")
	req.Options.DisableCache = true
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.callCount())
	require.Equal(t, 0, resp.CacheInfo.CachedEvents)
	require.Len(t, resp.Events, 2)
	require.Equal(t, []events.Category{events.CategoryConcerts}, cache.writes)

	lookup, err := cache.GetEventsByCategories(context.Background(), "Wien", "2025-09-30", []events.Category{events.CategoryConcerts})
	require.NoError(t, err)
	require.Len(t, lookup.Cached[events.CategoryConcerts], 2)
}

func TestSearchDegradesWhenCacheUnavailable(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	cache.getErr = errors.New("valkey down")
	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	svc := newTestService(cache, nil, gateway, nil)

	resp, err := svc.Search(context.Background(), wienRequest("Live-Konzerte"))
	require.NoError(t, err)
	require.Len(t, resp.Events, 2)
	require.Equal(t, 1, gateway.callCount())
}

func TestSearchBoundsConcurrency(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		requested int
		limit     int
	}{
		{name: "explicit limit", requested: 2, limit: 2},
		{name: "default limit", requested: 0, limit: 3},
		{name: "capped by maximum", requested: 50, limit: 8},
	}
	cats := []string{"Film", "Sport", "Museen", "Theater/Performance", "Comedy/Kabarett", "Open Air", "Kunst/Design", "Märkte/Shopping", "Natur/Outdoor", "Familien/Kids"}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gateway := newStubGateway()
			gateway.delay = 20 * time.Millisecond
			svc := newTestService(newStubCache(), nil, gateway, nil)

			req := wienRequest(cats...)
			req.Options.CategoryConcurrency = tc.requested
			_, err := svc.Search(context.Background(), req)
			require.NoError(t, err)
			require.Equal(t, len(cats), gateway.callCount())
			require.LessOrEqual(t, gateway.maxInFlight, tc.limit)
		})
	}
}

func TestSearchStartsNoFetchAfterCancel(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	gateway := newStubGateway()
	gateway.delay = 100 * time.Millisecond
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	svc := newTestService(cache, nil, gateway, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	defer cancel()

	req := wienRequest("Live-Konzerte", "Theater/Performance", "Film")
	req.Options.CategoryConcurrency = 1
	_, _ = svc.Search(ctx, req)

	require.Equal(t, []events.Category{events.CategoryConcerts}, gateway.fetched())
	require.True(t, cache.has("Wien", "2025-09-30", events.CategoryConcerts))
	require.False(t, cache.has("Wien", "2025-09-30", events.CategoryTheater))
}

func TestSearchUpsertsDayBucket(t *testing.T) {
	t.Parallel()

	buckets := newStubBuckets()
	gateway := newStubGateway()
	gateway.results[events.CategoryConcerts] = []RawResult{aiResult(events.CategoryConcerts, wienConcerts)}
	gateway.results[events.CategoryFilm] = []RawResult{{
		Category: events.CategoryFilm,
		Source:   "votiv-scraper",
		Events:   []events.Event{{Title: "Filmklassiker", Venue: "Votiv Kino", Date: "2025-09-30", Time: "18:00", Category: "Kino"}},
	}}
	svc := newTestService(newStubCache(), buckets, gateway, nil)

	_, err := svc.Search(context.Background(), wienRequest("Live-Konzerte"))
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), wienRequest("Film"))
	require.NoError(t, err)

	bucket, ok, err := buckets.GetDayEvents(context.Background(), "Wien", "2025-09-30")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, bucket.Events, 3)
	require.Equal(t, 2, buckets.upserts)
}

func TestSearchDebugInfo(t *testing.T) {
	t.Parallel()

	gateway := newStubGateway()
	result := aiResult(events.CategoryConcerts, `[{"title":"Ok","venue":"A"},{"venue":"no title"}]`)
	result.Usage = metrics.TokenUsage{PromptTokens: 42, TotalTokens: 50}
	gateway.results[events.CategoryConcerts] = []RawResult{result}
	svc := newTestService(newStubCache(), nil, gateway, nil)

	req := wienRequest("Live-Konzerte")
	req.Options.Debug = true
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Debug)
	require.Equal(t, []events.Category{events.CategoryConcerts}, resp.Debug.Fetched)
	require.Equal(t, 1, resp.Debug.ParsedRecords)
	require.Equal(t, 1, resp.Debug.SkippedRecords)
	require.Equal(t, metrics.TokenUsage{PromptTokens: 42, TotalTokens: 50}, resp.Debug.Tokens)
}
