package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"imagehoster/config"
	"imagehoster/di"
	"imagehoster/job"
	"imagehoster/rest"
	"imagehoster/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting server", "port", cfg.Server.Port, "service_url", cfg.Service.URL)

	container, err := di.NewApplicationComponents(cfg)
	if err != nil {
		logger.Logger.Error("failed to initialize components", "error", err)
		panic(err)
	}

	ctx := context.Background()
	go job.BlacklistRefreshJobRunner(ctx, container.Blacklist, cfg.Blacklist.CacheTTL)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	rest.RegisterRoutes(e, container, cfg)

	if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Logger.Error("error starting server", "error", err)
		panic(err)
	}
}
