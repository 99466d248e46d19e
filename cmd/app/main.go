package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aura_go/internal/app"
	"aura_go/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. System Bootstrapping (config, journal, engines, recovery)
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	infra.PrintBanner(bootstrap.Config)

	// 4. Event Feed Server (optional)
	var feedSrv *http.Server
	if bootstrap.Feed != nil {
		mux := http.NewServeMux()
		mux.Handle("/feed", bootstrap.Feed)
		feedSrv = &http.Server{Addr: bootstrap.Config.Feed.ListenAddr, Handler: mux}

		go func() {
			defer infra.Recover("feed-server")
			slog.Info("✅ Event feed listening", slog.String("addr", feedSrv.Addr))
			if err := feedSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Event feed server failed", slog.Any("error", err))
			}
		}()
	}

	slog.InfoContext(ctx, "✨ Settlement engine fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
	if feedSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		feedSrv.Shutdown(shutdownCtx)
		cancel()
	}
	bootstrap.Shutdown(context.Background())
}
