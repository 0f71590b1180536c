// ====================================
// File: cmd/launchpad/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/logger"
	"github.com/rovshanmuradov/launchpad/internal/platform"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := platform.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize platform", zap.Error(err))
	}

	accounts := svc.Accounts()
	zapLogger.Info("Launchpad up",
		zap.String("owner", accounts.Owner.String()),
		zap.String("treasury", accounts.Treasury.String()),
		zap.Uint64("fee_bps", cfg.FeeBps))

	if err := svc.Run(ctx); err != nil {
		zapLogger.Fatal("Platform exited with error", zap.Error(err))
	}

	zapLogger.Info("Shutdown complete")
}
