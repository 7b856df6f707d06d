package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nfc-wallet-go/internal/api"
	"nfc-wallet-go/internal/common"
	"nfc-wallet-go/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zap.L().Info("Starting NFC wallet server",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Background maintenance: session sweep and nonce pruning. Both are
	// tickers that stop with the server context and never block redemption.
	go services.Sessions.Run(ctx, cfg.Session.SweepInterval)
	go pruneNonces(ctx, services, cfg.Token.PruneInterval)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	apiService := api.NewService(services.DbService, services.Engine, services.Sessions)
	apiService.RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutdown signal received, stopping server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Graceful shutdown failed", zap.Error(err))
	}

	zap.L().Info("Server stopped")
}

func pruneNonces(ctx context.Context, services *common.Services, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := services.DbService.PruneExpiredNonces(ctx)
			if err != nil {
				zap.L().Warn("Nonce pruning failed", zap.Error(err))
				continue
			}
			if pruned > 0 {
				zap.L().Info("Pruned expired nonces", zap.Int64("count", pruned))
			}
		}
	}
}
