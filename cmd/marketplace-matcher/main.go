package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/maltedev/marketplace-matcher/internal/browser"
	"github.com/maltedev/marketplace-matcher/internal/config"
	"github.com/maltedev/marketplace-matcher/internal/events"
	"github.com/maltedev/marketplace-matcher/internal/export"
	"github.com/maltedev/marketplace-matcher/internal/fetcher"
	"github.com/maltedev/marketplace-matcher/internal/loader"
	"github.com/maltedev/marketplace-matcher/internal/marketplace"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
	"github.com/maltedev/marketplace-matcher/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, browser.Launcher))
}

// run executes one matching run. Results go to stdout or -output; logs
// always go to stderr so stdout stays a clean table.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, newLauncher func(*browser.Options) fetcher.Launcher) int {
	flags := flag.NewFlagSet("marketplace-matcher", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath   = flags.String("config", "", "Path to a config file (optional)")
		inputPath    = flags.String("input", "", "CSV or XLSX file with product and vendor columns")
		outputPath   = flags.String("output", "", "Output file (stdout when empty)")
		format       = flags.String("format", "json", "Output format: json or csv")
		marketplaces = flags.String("marketplaces", "", "Comma separated marketplaces to search (default all)")
		concurrency  = flags.Int("concurrency", 0, "Override the global fetch concurrency limit")
	)
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	log := logger.NewWithWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if *inputPath == "" {
		log.Error("missing -input")
		flags.Usage()
		return 2
	}

	outFormat, err := export.ParseFormat(*format)
	if err != nil {
		log.Error("invalid format", "error", err)
		return 2
	}

	names := cfg.Scraper.Marketplaces
	if *marketplaces != "" {
		names = strings.Split(*marketplaces, ",")
	}
	adapters, err := marketplace.Select(names)
	if err != nil {
		log.Error("invalid marketplaces", "error", err)
		return 2
	}

	tasks, err := loader.LoadFile(*inputPath, log)
	if err != nil {
		log.Error("failed to load tasks", "error", err, "input", *inputPath)
		return 1
	}

	observers := []scheduler.Observer{events.NewLogObserver(log)}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		publisher := events.NewRedisPublisher(redisClient, cfg.Redis.Stream, log)
		defer publisher.Close()
		observers = append(observers, publisher)
	}

	schedCfg := cfg.SchedulerConfig()
	if *concurrency > 0 {
		schedCfg.ConcurrencyLimit = *concurrency
	}

	sched := scheduler.New(schedCfg, newLauncher(cfg.BrowserOptions()), log,
		scheduler.WithAdapters(adapters),
		scheduler.WithObserver(events.Multi(observers...)))

	rows, err := sched.Run(ctx, uuid.New().String(), tasks)
	if errors.Is(err, scheduler.ErrEngineInit) {
		log.Error("failed to start browser", "error", err)
		return 1
	}
	if err != nil {
		log.Warn("run interrupted, writing partial results", "error", err)
	}

	if *outputPath == "" {
		err = export.Write(stdout, outFormat, rows)
	} else {
		err = export.WriteFile(*outputPath, outFormat, rows)
	}
	if err != nil {
		log.Error("failed to write results", "error", err)
		return 1
	}

	log.Info("results written", "rows", len(rows), "output", *outputPath, "format", outFormat)
	return 0
}
