package search

import "time"

// Config holds runtime knobs for the search service.
type Config struct {
	DefaultConcurrency int
	MaxConcurrency     int
	FetchTimeout       time.Duration
	ProgressiveBatch   int
	Location           *time.Location
	JobTTL             time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultConcurrency <= 0 {
		c.DefaultConcurrency = 3
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	if c.DefaultConcurrency > c.MaxConcurrency {
		c.DefaultConcurrency = c.MaxConcurrency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 45 * time.Second
	}
	if c.ProgressiveBatch <= 0 {
		c.ProgressiveBatch = 1
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.JobTTL <= 0 {
		c.JobTTL = time.Hour
	}
	return c
}

// concurrency resolves the per-request fan-out limit.
func (c Config) concurrency(requested int) int {
	n := requested
	if n <= 0 {
		n = c.DefaultConcurrency
	}
	if n > c.MaxConcurrency {
		n = c.MaxConcurrency
	}
	return n
}
