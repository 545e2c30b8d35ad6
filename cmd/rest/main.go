package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hmo-assistant-be/internal/bootstrap"
	"hmo-assistant-be/internal/config"
	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/server"
	"hmo-assistant-be/internal/service"
	"hmo-assistant-be/internal/tracer"
	"hmo-assistant-be/pkg/database"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg, sysLogger)
	if err != nil {
		log.Fatalf("Unable to build container: %v", err)
	}
	defer container.Close()

	srv := server.New(cfg, container)

	// 5. Run server and background services until a signal arrives or one of them fails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		return service.RunSweeper(gctx, container.ConversationService, cfg.Conversation.SweepInterval, sysLogger)
	})
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		sysLogger.Info("SERVER", "Shutting down", nil)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		sysLogger.Error("SERVER", "Stopped with error", map[string]interface{}{"error": err.Error()})
	}

	tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracer(tctx); err != nil {
		sysLogger.Warn("SERVER", "Tracer shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
