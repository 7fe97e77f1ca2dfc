package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
)

// Source is one upstream that can list events for a single category.
type Source interface {
	Name() string
	Fetch(ctx context.Context, city, date string, category events.Category, opts search.FetchOptions) (search.RawResult, error)
}

// RetryConfig bounds retries of transient source failures.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 250 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 2 * time.Second
	}
	return c
}

// Gateway queries every configured source for each category. A category
// succeeds when at least one source answered.
type Gateway struct {
	sources []Source
	retry   RetryConfig
	logger  *slog.Logger
}

// NewGateway constructs the composite gateway. Nil sources are skipped.
func NewGateway(sources []Source, retry RetryConfig, logger *slog.Logger) *Gateway {
	kept := make([]Source, 0, len(sources))
	for _, src := range sources {
		if src != nil {
			kept = append(kept, src)
		}
	}
	return &Gateway{
		sources: kept,
		retry:   retry.withDefaults(),
		logger:  logger.With("component", "sources.gateway"),
	}
}

// Search implements search.Gateway.
func (g *Gateway) Search(ctx context.Context, city, date string, categories []events.Category, opts search.FetchOptions) ([]search.RawResult, error) {
	if len(g.sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", search.ErrSourceUnavailable)
	}
	var results []search.RawResult
	for _, cat := range categories {
		var (
			answered    bool
			firstErr    error
			unavailable int
			answers     []search.RawResult
		)
		for _, src := range g.sources {
			res, err := g.fetch(ctx, src, city, date, cat, opts)
			if err != nil {
				g.logger.Warn("source fetch failed", "source", src.Name(), "city", city, "date", date, "category", cat, "error", err)
				if errors.Is(err, search.ErrSourceUnavailable) {
					unavailable++
				} else if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if res.Category == "" {
				res.Category = cat
			}
			if res.Source == "" {
				res.Source = src.Name()
			}
			answered = true
			answers = append(answers, res)
		}
		if answered {
			for i := range answers {
				answers[i].Partial = firstErr != nil
			}
			results = append(results, answers...)
			continue
		}
		if firstErr != nil {
			return nil, firstErr
		}
		if unavailable > 0 {
			return nil, fmt.Errorf("%w: all sources failed for %s", search.ErrSourceUnavailable, cat)
		}
	}
	return results, nil
}

func (g *Gateway) fetch(ctx context.Context, src Source, city, date string, cat events.Category, opts search.FetchOptions) (search.RawResult, error) {
	op := func() (search.RawResult, error) {
		res, err := src.Fetch(ctx, city, date, cat, opts)
		if err != nil && (errors.Is(err, search.ErrSourceUnavailable) || ctx.Err() != nil) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, wait time.Duration) {
		g.logger.Debug("retrying source fetch", "source", src.Name(), "category", cat, "wait", wait, "error", err)
	}
	return backoff.RetryNotifyWithData(op, g.backOff(ctx), notify)
}

func (g *Gateway) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.retry.InitialInterval
	exp.MaxInterval = g.retry.MaxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.retry.MaxAttempts-1)), ctx)
}

var _ search.Gateway = (*Gateway)(nil)
