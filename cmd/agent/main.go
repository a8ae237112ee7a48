package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"joblens-agent/internal/api/routes"
	"joblens-agent/internal/backend"
	"joblens-agent/internal/bridge"
	"joblens-agent/internal/cache"
	"joblens-agent/internal/config"
	"joblens-agent/internal/coordinator"
	"joblens-agent/internal/logging"
	"joblens-agent/internal/notify"
	"joblens-agent/internal/presenter"
	"joblens-agent/internal/storage"
	"joblens-agent/internal/watcher"
	"joblens-agent/internal/watcher/sources"

	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting JobLens agent", map[string]interface{}{
		"transport": cfg.Bridge.Transport,
		"source":    cfg.Watcher.Source,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared storage: capability token and notification preference
	store := storage.NewStore(cfg)
	defer store.Close()

	// Bridge between the page and background contexts
	pageTransport, backgroundTransport, err := bridge.NewTransportPair(cfg)
	if err != nil {
		logger.Fatal("Failed to create transport pair", map[string]interface{}{
			"error": err.Error(),
		})
	}
	policy := bridge.PolicyFromConfig(cfg)
	pageBridge := bridge.New(pageTransport, policy)
	backgroundBridge := bridge.New(backgroundTransport, policy)
	defer pageBridge.Close()
	defer backgroundBridge.Close()

	// Background context: backend client, cache, notifications, coordinator
	client := backend.NewClient(cfg, store)
	resultCache := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)
	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(), store, cfg.Notifications.MinScore)
	coord := coordinator.New(cfg, backgroundBridge, client, resultCache, store, dispatcher)
	go coord.Run(ctx)

	// Page context: page source, feedback surface, watcher
	source, err := sources.NewPageSource(cfg)
	if err != nil {
		logger.Fatal("Failed to create page source", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer source.Close()

	pres := presenter.New(presenter.NewLogRenderer())
	pageWatcher, err := watcher.New(cfg, source, pageBridge, pres)
	if err != nil {
		logger.Fatal("Failed to create page watcher", map[string]interface{}{
			"error": err.Error(),
		})
	}
	go pageWatcher.Run(ctx)

	// HTTP surface
	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, cfg, coord, store)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down agent...", map[string]interface{}{})

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Agent shutdown complete", map[string]interface{}{})
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address": address,
	})

	if err := e.Start(address); err != nil {
		logger.Info("Server stopped", map[string]interface{}{
			"reason": err.Error(),
		})
	}
}
