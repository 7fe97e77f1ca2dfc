//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/eventradar/internal/bootstrap"
	"github.com/yanqian/eventradar/internal/infra/config"
	httpiface "github.com/yanqian/eventradar/internal/interface/http"
	"github.com/yanqian/eventradar/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRecorder,
		bootstrap.SearchSet,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
