package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/maltedev/marketplace-matcher/internal/aggregator"
	"github.com/maltedev/marketplace-matcher/internal/fetcher"
	"github.com/maltedev/marketplace-matcher/internal/marketplace"
	"github.com/maltedev/marketplace-matcher/internal/matcher"
	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/maltedev/marketplace-matcher/internal/pipeline"
	"github.com/maltedev/marketplace-matcher/internal/workerpool"
	"golang.org/x/sync/errgroup"
)

var ErrEngineInit = errors.New("browser engine failed to start")

const (
	DefaultConcurrencyLimit = 9
	DefaultBatchSize        = 3
)

type Config struct {
	ConcurrencyLimit int
	BatchSize        int
	// MatchWorkers sizes the scoring pool; zero means runtime.NumCPU().
	MatchWorkers int
	Matcher      matcher.Config
}

func DefaultConfig() Config {
	return Config{
		ConcurrencyLimit: DefaultConcurrencyLimit,
		BatchSize:        DefaultBatchSize,
		Matcher:          matcher.DefaultConfig(),
	}
}

// Progress is reported once per completed task.
type Progress struct {
	RunID     string
	Index     int
	Completed int
	Total     int
	Row       models.ResultRow
}

// Observer is notified as tasks complete. Calls are serialized.
type Observer interface {
	TaskCompleted(ctx context.Context, p Progress)
}

type ObserverFunc func(ctx context.Context, p Progress)

func (f ObserverFunc) TaskCompleted(ctx context.Context, p Progress) { f(ctx, p) }

type Scheduler struct {
	cfg      Config
	launcher fetcher.Launcher
	adapters []marketplace.Adapter
	observer Observer
	logger   *slog.Logger
}

type Option func(*Scheduler)

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

func WithAdapters(adapters []marketplace.Adapter) Option {
	return func(s *Scheduler) { s.adapters = adapters }
}

func New(cfg Config, launcher fetcher.Launcher, logger *slog.Logger, opts ...Option) *Scheduler {
	if cfg.ConcurrencyLimit < 1 {
		cfg.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MatchWorkers < 1 {
		cfg.MatchWorkers = runtime.NumCPU()
	}

	s := &Scheduler{
		cfg:      cfg,
		launcher: launcher,
		adapters: marketplace.Default(),
		logger:   logger.With("component", "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Config() Config {
	return s.cfg
}

type indexedRow struct {
	index int
	row   models.ResultRow
}

// Run processes tasks batch by batch and returns one row per task in input
// order. The browser is launched once and closed on return. If ctx is
// cancelled, remaining tasks get "no match" rows and ctx.Err() is returned.
func (s *Scheduler) Run(ctx context.Context, runID string, tasks []models.Task) ([]models.ResultRow, error) {
	return s.RunObserved(ctx, runID, tasks, nil)
}

// RunObserved is Run with an extra observer notified after the configured one.
func (s *Scheduler) RunObserved(ctx context.Context, runID string, tasks []models.Task, extra Observer) ([]models.ResultRow, error) {
	start := time.Now()
	logger := s.logger.With("run_id", runID)

	engine, err := s.launcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}()

	fetchPool := workerpool.New(s.cfg.ConcurrencyLimit)
	defer fetchPool.Close()
	matchPool := workerpool.New(s.cfg.MatchWorkers)
	defer matchPool.Close()

	pipe := pipeline.New(
		s.adapters,
		fetcher.New(engine, logger),
		matcher.New(s.cfg.Matcher),
		fetchPool,
		matchPool,
		logger,
	)

	logger.Info("run started",
		"tasks", len(tasks),
		"concurrency_limit", s.cfg.ConcurrencyLimit,
		"batch_size", s.cfg.BatchSize,
		"match_workers", s.cfg.MatchWorkers)

	agg := aggregator.New(tasks)
	notify := s.notifier(runID, len(tasks), extra)

	for offset := 0; offset < len(tasks); offset += s.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}

		end := min(offset+s.cfg.BatchSize, len(tasks))
		batch := tasks[offset:end]
		results := make(chan indexedRow, len(batch))

		var g errgroup.Group
		for i, task := range batch {
			index := offset + i
			g.Go(func() error {
				row := pipe.Run(ctx, task)
				results <- indexedRow{index: index, row: row}
				notify(ctx, index, row)
				return nil
			})
		}
		_ = g.Wait()
		close(results)

		for r := range results {
			if err := agg.Add(r.index, r.row); err != nil {
				logger.Error("failed to record row", "index", r.index, "error", err)
			}
		}

		logger.Debug("batch finished", "offset", offset, "size", len(batch))
	}

	logger.Info("run finished",
		"tasks", len(tasks),
		"completed", agg.Len(),
		"duration", time.Since(start))

	if err := ctx.Err(); err != nil {
		return agg.Rows(), err
	}
	return agg.Rows(), nil
}

// notifier serializes observer calls and counts completions.
func (s *Scheduler) notifier(runID string, total int, extra Observer) func(context.Context, int, models.ResultRow) {
	var mu sync.Mutex
	completed := 0

	return func(ctx context.Context, index int, row models.ResultRow) {
		mu.Lock()
		defer mu.Unlock()

		completed++
		p := Progress{
			RunID:     runID,
			Index:     index,
			Completed: completed,
			Total:     total,
			Row:       row,
		}
		for _, o := range []Observer{s.observer, extra} {
			if o != nil {
				o.TaskCompleted(ctx, p)
			}
		}
	}
}
