package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanqian/eventradar/internal/domain/events"
	apperrors "github.com/yanqian/eventradar/pkg/errors"
)

// Stream runs a progressive search, handing each message to emit as soon as
// it is ready. Categories are handled in request order, one batch at a time.
// Shards are written as each category resolves, so work finished before a
// disconnect is kept. Once ctx is done no further category is started.
func (s *service) Stream(ctx context.Context, req Request, emit func(StreamMessage) error) error {
	q, err := s.validate(req)
	if err != nil {
		return err
	}
	return s.stream(ctx, q, emit)
}

// StreamSearch adapts Stream to a channel. The channel is closed when the
// search completes, fails or ctx is done.
func (s *service) StreamSearch(ctx context.Context, req Request) (<-chan StreamMessage, error) {
	q, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamMessage)
	go func() {
		defer close(out)
		err := s.stream(ctx, q, func(msg StreamMessage) error {
			select {
			case out <- msg:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("progressive search ended with error", "city", q.city, "date", q.date, "error", err)
		}
	}()
	return out, nil
}

func (s *service) stream(ctx context.Context, q query, emit func(StreamMessage) error) error {
	send := func(msg StreamMessage) error {
		s.metrics.StreamMessage(string(msg.Type))
		return emit(msg)
	}

	lookup := s.resolveCache(ctx, q)
	missing := make(map[events.Category]bool, len(lookup.Missing))
	for _, cat := range lookup.Missing {
		missing[cat] = true
	}

	total := len(q.categories)
	processed := 0
	running := []events.Event{}
	outcomes := make([]fetchOutcome, 0, len(lookup.Missing))

	for start := 0; start < total; start += s.cfg.ProgressiveBatch {
		if err := ctx.Err(); err != nil {
			s.logger.Info("progressive search stopped",
				"city", q.city,
				"date", q.date,
				"processed", processed,
				"total", total,
			)
			return err
		}

		batch := q.categories[start:min(start+s.cfg.ProgressiveBatch, total)]
		toFetch := make([]events.Category, 0, len(batch))
		for _, cat := range batch {
			if missing[cat] {
				toFetch = append(toFetch, cat)
			}
		}
		fetched := s.fetchMissing(ctx, q, toFetch)
		outcomes = append(outcomes, fetched...)
		byCategory := make(map[events.Category]fetchOutcome, len(fetched))
		for _, o := range fetched {
			byCategory[o.category] = o
		}

		for _, cat := range batch {
			msg := StreamMessage{Type: MessageProgress, Category: cat}
			if evs, ok := lookup.Cached[cat]; ok {
				msg.Events = evs
				msg.FromCache = true
			} else {
				o := byCategory[cat]
				if o.err != nil {
					if errors.Is(o.err, ErrSourceUnavailable) {
						_ = send(errorMessage(apperrors.CodeUpstreamUnavailable, "event source unavailable", cat))
						return apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "event source unavailable", o.err)
					}
					msg.Warning = fmt.Sprintf("could not fetch %s: %s", cat, describeFetchError(o.err))
				} else if o.partial {
					msg.Warning = fmt.Sprintf("%s: %s", cat, partialWarning)
				}
				msg.Events = o.events
			}

			running = events.MergeEvents(running, msg.Events)
			processed++
			msg.AllEvents = running
			msg.Progress = Progress{Processed: processed, Total: total, Remaining: total - processed}
			if err := send(msg); err != nil {
				return err
			}
		}
	}

	resp, served := s.assemble(q, lookup, outcomes)
	if served == 0 {
		_ = send(errorMessage(apperrors.CodeUpstreamUnavailable, "no category could be served", ""))
		return apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "no category could be served", firstError(outcomes))
	}
	s.upsertDayBucket(ctx, q, resp.Events)
	s.logger.Info("progressive search completed",
		"city", q.city,
		"date", q.date,
		"categories", total,
		"events", len(resp.Events),
	)
	return send(StreamMessage{Type: MessageComplete, Events: resp.Events, CacheInfo: resp.CacheInfo})
}

func errorMessage(code, message string, cat events.Category) StreamMessage {
	return StreamMessage{
		Type:  MessageError,
		Error: &StreamError{Code: code, Message: message, Category: cat},
	}
}
