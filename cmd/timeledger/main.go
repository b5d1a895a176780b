package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"timeledger/internal/httpapi"
	"timeledger/pkg/clock"
	"timeledger/pkg/config"
	"timeledger/pkg/db"
	"timeledger/pkg/health"
	"timeledger/pkg/logger"
	"timeledger/pkg/redis"
	"timeledger/pkg/server"
	"timeledger/services/analytics"
	"timeledger/services/ledger"
	"timeledger/services/routine"
	"timeledger/services/task"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		clock.Module,
		health.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		task.Module,
		routine.Module,
		ledger.Module,
		analytics.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
