package main

import (
	"github.com/yanqian/eventradar/internal/infra/config"
	"github.com/yanqian/eventradar/pkg/metrics"
)

// provideRecorder returns nil when metrics are disabled; every consumer
// treats a nil recorder as a no-op.
func provideRecorder(cfg *config.Config) *metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewRecorder()
}
