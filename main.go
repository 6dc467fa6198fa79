package main

import (
	"context"
	"os"
	"os/signal"
	clts "polywatch/clients"
	"polywatch/config"
	"polywatch/internal/app"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load config from .env, optional YAML file and environment variables
	cfg, err := config.Load()

	logger, logErr := newLogger(cfg)
	if logErr != nil {
		panic(logErr)
	}
	defer logger.Sync()

	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate().Err(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("starting polywatch",
		zap.String("commit", app.BuildCommit),
		zap.String("logLevel", cfg.LogLevel),
	)

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, cfg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, cfg)
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// newLogger builds the production logger at the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg != nil && cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err == nil {
			zc.Level = zap.NewAtomicLevelAt(level)
		}
	}
	return zc.Build()
}
