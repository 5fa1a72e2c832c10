package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/adapters/filewatcher"
	"github.com/0xcro3dile/deskmate/internal/config"
	"github.com/0xcro3dile/deskmate/internal/infrastructure/http"
	"github.com/0xcro3dile/deskmate/internal/logging"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		// The server still starts so /api/health answers; the assistant endpoint reports the problem.
		logger.Warn("configuration incomplete", zap.Error(err))
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	watchConfig(ctx)

	idle := cfg.GetSessionIdleTimeout()
	go a.registry.RunPruner(ctx, idle/2, idle)

	srv := http.NewServer(a.assistant, a.registry, http.Options{
		Addr:            cfg.Server.Addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.GetShutdownTimeout(),
	}, logger.Named("http"))
	return srv.Start(ctx)
}

// watchConfig hot-applies the log level when the config file changes.
// Other settings take effect on restart.
func watchConfig(ctx context.Context) {
	if _, err := os.Stat(configPath); err != nil {
		logger.Debug("config file not found, hot reload disabled", zap.String("path", configPath))
		return
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(logger.Named("watch"))
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		watcher.Stop()
	}()

	err = config.Watch(ctx, configPath, watcher, logger, func(next *config.Config) {
		level := next.Logging.Level
		if verbose {
			level = "debug"
		}
		if logging.Apply(logLevel, level) {
			logger.Info("log level applied", zap.String("level", level))
		} else {
			logger.Warn("ignoring invalid log level", zap.String("level", level))
		}
	})
	if err != nil {
		logger.Warn("config watch failed", zap.Error(err))
	}
}
