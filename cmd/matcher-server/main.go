package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/marketplace-matcher/internal/api"
	"github.com/maltedev/marketplace-matcher/internal/browser"
	"github.com/maltedev/marketplace-matcher/internal/config"
	"github.com/maltedev/marketplace-matcher/internal/events"
	"github.com/maltedev/marketplace-matcher/internal/marketplace"
	"github.com/maltedev/marketplace-matcher/internal/runs"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
	"github.com/maltedev/marketplace-matcher/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	adapters, err := marketplace.Select(cfg.Scraper.Marketplaces)
	if err != nil {
		log.Error("invalid marketplaces", "error", err)
		os.Exit(1)
	}

	observers := []scheduler.Observer{events.NewLogObserver(log)}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		publisher := events.NewRedisPublisher(redisClient, cfg.Redis.Stream, log)
		defer publisher.Close()
		observers = append(observers, publisher)
	}

	sched := scheduler.New(cfg.SchedulerConfig(), browser.Launcher(cfg.BrowserOptions()), log,
		scheduler.WithAdapters(adapters),
		scheduler.WithObserver(events.Multi(observers...)))

	manager := runs.NewManager(sched, log)
	handlers := api.NewHandlers(manager, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handlers, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		if err := manager.Shutdown(shutdownCtx); err != nil {
			log.Error("runs did not stop in time", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-shutdownDone
	log.Info("server stopped")
}
