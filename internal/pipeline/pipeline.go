package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/marketplace-matcher/internal/extractor"
	"github.com/maltedev/marketplace-matcher/internal/marketplace"
	"github.com/maltedev/marketplace-matcher/internal/matcher"
	"github.com/maltedev/marketplace-matcher/internal/models"
	"golang.org/x/sync/errgroup"
)

// PageSource renders a URL into markup.
type PageSource interface {
	Fetch(ctx context.Context, url string, rule marketplace.Readiness) (string, error)
}

// Submitter hands a job to a bounded pool.
type Submitter interface {
	Submit(ctx context.Context, job func()) error
}

// Pipeline turns one task into one result row: fetch and extract on every
// marketplace, then match each candidate set. Per-marketplace failures
// become empty candidate sets.
type Pipeline struct {
	adapters  []marketplace.Adapter
	source    PageSource
	matcher   *matcher.Matcher
	fetchPool Submitter
	matchPool Submitter
	logger    *slog.Logger
}

func New(adapters []marketplace.Adapter, source PageSource, m *matcher.Matcher, fetchPool, matchPool Submitter, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		adapters:  adapters,
		source:    source,
		matcher:   m,
		fetchPool: fetchPool,
		matchPool: matchPool,
		logger:    logger.With("component", "pipeline"),
	}
}

func (p *Pipeline) Run(ctx context.Context, task models.Task) (row models.ResultRow) {
	row = models.NewEmptyRow(task)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task pipeline failed", "product", task.Product, "vendor", task.Vendor, "panic", r)
			row = models.NewEmptyRow(task)
		}
	}()

	candidates := p.collectAll(ctx, task)
	results := p.matchAll(ctx, task, candidates)

	for i, a := range p.adapters {
		row.SetResult(a.Marketplace(), results[i])
	}
	return row
}

// collectAll waits for every marketplace fetch before returning.
func (p *Pipeline) collectAll(ctx context.Context, task models.Task) []models.CandidateSet {
	candidates := make([]models.CandidateSet, len(p.adapters))

	var g errgroup.Group
	for i, a := range p.adapters {
		g.Go(func() error {
			done := make(chan models.CandidateSet, 1)
			if err := p.fetchPool.Submit(ctx, func() { done <- p.collect(ctx, task, a) }); err != nil {
				p.logger.Warn("fetch not scheduled", "marketplace", a.Marketplace(), "error", err)
				return nil
			}
			candidates[i] = <-done
			return nil
		})
	}
	_ = g.Wait()

	return candidates
}

func (p *Pipeline) matchAll(ctx context.Context, task models.Task, candidates []models.CandidateSet) []models.MatchResult {
	results := make([]models.MatchResult, len(p.adapters))

	var g errgroup.Group
	for i, a := range p.adapters {
		if len(candidates[i]) == 0 {
			continue
		}
		g.Go(func() error {
			done := make(chan models.MatchResult, 1)
			if err := p.matchPool.Submit(ctx, func() { done <- p.match(ctx, task, a, candidates[i]) }); err != nil {
				p.logger.Warn("match not scheduled", "marketplace", a.Marketplace(), "error", err)
				return nil
			}
			results[i] = <-done
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// collect runs on the fetch pool and always yields a candidate set.
func (p *Pipeline) collect(ctx context.Context, task models.Task, a marketplace.Adapter) (candidates models.CandidateSet) {
	q := a.BuildQuery(task.Vendor)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("extraction panicked", "marketplace", a.Marketplace(), "url", q.URL, "panic", r)
			candidates = models.CandidateSet{}
		}
	}()

	candidates, err := p.fetchAndExtract(ctx, q, a)
	if err != nil {
		p.logger.Warn("marketplace fetch failed",
			"marketplace", a.Marketplace(),
			"url", q.URL,
			"error", err)
		return models.CandidateSet{}
	}

	p.logger.Debug("candidates extracted", "marketplace", a.Marketplace(), "count", len(candidates))
	return candidates
}

func (p *Pipeline) fetchAndExtract(ctx context.Context, q marketplace.Query, a marketplace.Adapter) (models.CandidateSet, error) {
	html, err := p.source.Fetch(ctx, q.URL, a.Readiness())
	if err != nil {
		return nil, err
	}

	candidates, err := extractor.Extract(html, q.Selector, a)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s listings: %w", a.Marketplace(), err)
	}
	return candidates, nil
}

// match runs on the match pool and always yields a result.
func (p *Pipeline) match(ctx context.Context, task models.Task, a marketplace.Adapter, candidates models.CandidateSet) (res models.MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("matching panicked", "marketplace", a.Marketplace(), "panic", r)
			res = models.NoMatch()
		}
	}()
	return p.matcher.MatchContext(ctx, candidates, task.Product, task.Vendor)
}
