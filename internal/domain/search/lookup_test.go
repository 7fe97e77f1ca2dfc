package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/eventradar/internal/domain/events"
	apperrors "github.com/yanqian/eventradar/pkg/errors"
	"github.com/yanqian/eventradar/pkg/util"
)

func TestLookupEventFromDayBucket(t *testing.T) {
	t.Parallel()

	buckets := newStubBuckets()
	require.NoError(t, buckets.UpsertDayEvents(context.Background(), "Wien", "2025-09-30", []events.Event{
		{Title: "La Bohème", Venue: "Staatsoper", Date: "2025-09-30", Time: "19:00"},
		{Title: "Abgesagt", Venue: "Konzerthaus", Date: "2025-09-30", Time: "19:00", Cancelled: true},
	}))
	svc := newTestService(newStubCache(), buckets, newStubGateway(), nil)

	cases := []struct {
		name string
		slug string
		want string
		code string
	}{
		{name: "title slug", slug: "la-boheme", want: "La Bohème"},
		{name: "slug with date", slug: "la-boheme-2025-09-30", want: "La Bohème"},
		{name: "plain title", slug: "La Bohème", want: "La Bohème"},
		{name: "cancelled events are hidden", slug: "abgesagt", code: apperrors.CodeNotFound},
		{name: "unknown slug", slug: "tosca", code: apperrors.CodeNotFound},
		{name: "empty slug", slug: " ", code: apperrors.CodeInvalidInput},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev, err := svc.LookupEvent(context.Background(), LookupRequest{City: "Wien", Date: "2025-09-30", Slug: tc.slug})
			if tc.code != "" {
				require.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, ev.Title)
		})
	}
}

func TestLookupEventHidesEndedEvents(t *testing.T) {
	t.Parallel()

	buckets := newStubBuckets()
	require.NoError(t, buckets.UpsertDayEvents(context.Background(), "Wien", "2025-09-29", []events.Event{
		{Title: "Frühschoppen", Venue: "Heuriger", Date: "2025-09-29", Time: "07:00", EndTime: "09:30"},
	}))
	require.NoError(t, buckets.UpsertDayEvents(context.Background(), "Wien", "2025-09-28", []events.Event{
		{Title: "Clubnacht", Venue: "Flex", Date: "2025-09-28", Time: "23:00", EndTime: "11:00"},
	}))
	svc := newTestService(newStubCache(), buckets, newStubGateway(), nil)
	svc.now = util.FixedClock(time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC))

	_, err := svc.LookupEvent(context.Background(), LookupRequest{City: "Wien", Date: "2025-09-29", Slug: "fruhschoppen"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	ev, err := svc.LookupEvent(context.Background(), LookupRequest{City: "Wien", Date: "2025-09-28", Slug: "clubnacht"})
	require.NoError(t, err)
	require.Equal(t, "Flex", ev.Venue)
}

func TestLookupEventRebuildsBucketFromShards(t *testing.T) {
	t.Parallel()

	cache := newStubCache()
	cache.seed("Wien", "2025-09-30", events.CategoryConcerts, []events.Event{
		{Title: "Mozart Requiem", Venue: "Musikverein", Date: "2025-09-30", Time: "19:30", Source: events.SourceAI},
	})
	cache.seed("Wien", "2025-09-30", events.CategoryTheater, []events.Event{
		{Title: "Hamlet", Venue: "Burgtheater", Date: "2025-09-30", Time: "19:00"},
		{Title: "Mozart Requiem", Venue: "Musikverein", Date: "2025-09-30", Time: "19:30", Source: "musikverein-scraper"},
	})
	buckets := newStubBuckets()
	gateway := newStubGateway()
	svc := newTestService(cache, buckets, gateway, nil)

	ev, err := svc.LookupEvent(context.Background(), LookupRequest{City: "Wien", Date: "2025-09-30", Slug: "mozart-requiem"})
	require.NoError(t, err)
	require.Equal(t, "musikverein-scraper", ev.Source)
	require.Zero(t, gateway.callCount())

	bucket, ok, err := buckets.GetDayEvents(context.Background(), "Wien", "2025-09-30")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, bucket.Events, 2)
}

func TestLookupEventRejectsBadDate(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubCache(), nil, newStubGateway(), nil)
	_, err := svc.LookupEvent(context.Background(), LookupRequest{City: "Wien", Date: "morgen", Slug: "x"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}
