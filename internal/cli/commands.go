package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
)

func (q QueryFlags) request() search.Request {
	return search.Request{
		City:       q.City,
		Date:       q.Date,
		Categories: q.Categories,
		Options: search.Options{
			Debug:               q.Debug,
			DisableCache:        q.NoCache,
			CategoryConcurrency: q.Concurrency,
		},
	}
}

func (e *environment) withService(globals *GlobalFlags, fn func(ctx context.Context, svc search.Service) error) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	svc, cleanup, err := e.newService(cfg, newLogger(globals, e.stderr))
	if err != nil {
		return fmt.Errorf("build search service: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, svc)
}

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(_ []string) error {
	return c.env.withService(c.globals, func(ctx context.Context, svc search.Service) error {
		resp, err := svc.Search(ctx, c.request())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.env.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	})
}

// Execute implements the go-flags Commander interface for StreamCommand.
func (c *StreamCommand) Execute(_ []string) error {
	return c.env.withService(c.globals, func(ctx context.Context, svc search.Service) error {
		enc := json.NewEncoder(c.env.stdout)
		return svc.Stream(ctx, c.request(), func(msg search.StreamMessage) error {
			return enc.Encode(msg)
		})
	})
}

// Execute implements the go-flags Commander interface for CategoriesCommand.
func (c *CategoriesCommand) Execute(_ []string) error {
	for _, cat := range events.MainCategories {
		if _, err := fmt.Fprintf(c.env.stdout, "%-24s %s\n", cat.Slug(), cat); err != nil {
			return err
		}
	}
	return nil
}
