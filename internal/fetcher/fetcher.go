package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/marketplace-matcher/internal/marketplace"
)

var (
	ErrFetchTimeout = errors.New("fetch timed out")
	ErrFetch        = errors.New("fetch failed")
)

// Page is one browser tab. Implementations wrap timeouts in ErrFetchTimeout.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	AwaitReady(rule marketplace.Readiness) error
	Content() (string, error)
	Close() error
}

// Engine is the shared browser. It must be safe to open pages concurrently.
type Engine interface {
	OpenPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts an Engine for one run.
type Launcher func(ctx context.Context) (Engine, error)

type Fetcher struct {
	engine Engine
	logger *slog.Logger
}

func New(engine Engine, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		engine: engine,
		logger: logger.With("component", "fetcher"),
	}
}

// Fetch renders url with a fresh page and returns its markup once rule is
// satisfied. The page is closed on every path.
func (f *Fetcher) Fetch(ctx context.Context, url string, rule marketplace.Readiness) (html string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	page, err := f.engine.OpenPage(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open page: %v", ErrFetch, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			f.logger.Debug("failed to close page", "url", url, "error", closeErr)
		}
	}()

	start := time.Now()

	if err := page.Navigate(url, rule.Timeout); err != nil {
		return "", classify("navigate", err)
	}

	if err := page.AwaitReady(rule); err != nil {
		return "", classify("await "+rule.State.String(), err)
	}

	html, err = page.Content()
	if err != nil {
		return "", classify("read content", err)
	}

	f.logger.Debug("page fetched", "url", url, "duration", time.Since(start), "bytes", len(html))
	return html, nil
}

// classify keeps ErrFetchTimeout visible and tags everything else ErrFetch.
func classify(step string, err error) error {
	if errors.Is(err, ErrFetchTimeout) || errors.Is(err, ErrFetch) {
		return fmt.Errorf("failed to %s: %w", step, err)
	}
	return fmt.Errorf("%w: failed to %s: %v", ErrFetch, step, err)
}
