package search

import (
	"context"
	"strings"
	"time"

	"github.com/yanqian/eventradar/internal/domain/events"
	apperrors "github.com/yanqian/eventradar/pkg/errors"
)

// LookupEvent finds a single still-valid event in the day bucket for
// (city, date). When no bucket exists yet it is rebuilt from the category
// shards.
func (s *service) LookupEvent(ctx context.Context, req LookupRequest) (events.Event, error) {
	city := strings.TrimSpace(req.City)
	date := strings.TrimSpace(req.Date)
	slug := events.Slugify(req.Slug)
	if city == "" || slug == "" {
		return events.Event{}, apperrors.Wrap(apperrors.CodeInvalidInput, "city and slug are required", nil)
	}
	if _, err := time.Parse(events.DateLayout, date); err != nil {
		return events.Event{}, apperrors.Wrap(apperrors.CodeInvalidInput, "date must be formatted as YYYY-MM-DD", err)
	}

	day, err := s.dayEvents(ctx, city, date)
	if err != nil {
		return events.Event{}, err
	}

	now := s.now.Now()
	for _, ev := range day {
		if !stillValid(ev, now, s.cfg.Location) {
			continue
		}
		if matchesSlug(ev, slug) {
			return ev, nil
		}
	}
	return events.Event{}, apperrors.Wrap(apperrors.CodeNotFound, "event not found", nil)
}

func (s *service) dayEvents(ctx context.Context, city, date string) ([]events.Event, error) {
	if s.buckets != nil {
		bucket, ok, err := s.buckets.GetDayEvents(ctx, city, date)
		if err != nil {
			s.logger.Warn("day bucket read failed", "city", city, "date", date, "error", err)
		}
		if ok && err == nil {
			return bucket.Events, nil
		}
	}

	lookup, err := s.cache.GetEventsByCategories(ctx, city, date, events.MainCategories)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSearchFailed, "failed to read category shards", err)
	}
	lists := make([][]events.Event, 0, len(lookup.Cached))
	for _, evs := range lookup.Cached {
		lists = append(lists, evs)
	}
	merged := events.MergeEvents(lists...)
	s.logger.Debug("day bucket rebuilt from shards", "city", city, "date", date, "shards", len(lists), "events", len(merged))
	s.upsertDayBucket(ctx, query{city: city, date: date}, merged)
	return merged, nil
}

func stillValid(ev events.Event, now time.Time, loc *time.Location) bool {
	if ev.Cancelled {
		return false
	}
	end, ok := ev.End(loc)
	if !ok {
		return false
	}
	return end.After(now)
}

// matchesSlug accepts the bare title slug and the "<title>-<date>" form.
func matchesSlug(ev events.Event, slug string) bool {
	title := events.Slugify(ev.Title)
	if title == "" {
		return false
	}
	return slug == title || slug == title+"-"+ev.Date
}
