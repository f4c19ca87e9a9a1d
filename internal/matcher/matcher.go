package matcher

import (
	"context"
	"slices"

	"github.com/maltedev/marketplace-matcher/internal/models"
)

const (
	DefaultProductWeight = 0.75
	DefaultVendorWeight  = 0.25
	DefaultThreshold     = 85.0
)

// Config holds the scoring weights. Weights are expected to sum to 1 but
// this is not enforced.
type Config struct {
	ProductWeight float64
	VendorWeight  float64
	Threshold     float64
}

func DefaultConfig() Config {
	return Config{
		ProductWeight: DefaultProductWeight,
		VendorWeight:  DefaultVendorWeight,
		Threshold:     DefaultThreshold,
	}
}

type Matcher struct {
	cfg Config
}

func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

func (m *Matcher) Config() Config {
	return m.cfg
}

// Scored pairs a candidate with its combined score.
type Scored struct {
	Listing models.Listing
	Name    float64
	Vendor  float64
	Score   float64
}

// Score computes the weighted similarity of one candidate to the target.
func (m *Matcher) Score(candidate models.Listing, product, vendor string) Scored {
	name := TokenSetRatio(product, candidate.ProductName())
	vend := TokenSetRatio(vendor, candidate.VendorName())
	return Scored{
		Listing: candidate,
		Name:    name,
		Vendor:  vend,
		Score:   m.cfg.ProductWeight*name + m.cfg.VendorWeight*vend,
	}
}

// Rank scores every candidate and sorts by score descending. Equal scores
// keep candidate order.
func (m *Matcher) Rank(candidates models.CandidateSet, product, vendor string) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, m.Score(c, product, vendor))
	}
	slices.SortStableFunc(scored, func(a, b Scored) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return scored
}

// Match selects the highest-scoring candidate at or above the threshold.
func (m *Matcher) Match(candidates models.CandidateSet, product, vendor string) models.MatchResult {
	if len(candidates) == 0 {
		return models.NoMatch()
	}

	ranked := m.Rank(candidates, product, vendor)
	best := ranked[0]
	if best.Score < m.cfg.Threshold {
		return models.NoMatch()
	}

	listing := best.Listing
	return models.MatchResult{Listing: &listing, Score: best.Score}
}

// MatchContext is Match for callers running on a worker pool; it returns
// "no match" when ctx is already done.
func (m *Matcher) MatchContext(ctx context.Context, candidates models.CandidateSet, product, vendor string) models.MatchResult {
	if ctx.Err() != nil {
		return models.NoMatch()
	}
	return m.Match(candidates, product, vendor)
}
