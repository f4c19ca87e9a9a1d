package marketplace

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/marketplace-matcher/internal/models"
)

// ReadyState selects what the fetcher waits for after navigation.
type ReadyState int

const (
	WaitNetworkIdle ReadyState = iota
	WaitSelector
)

func (s ReadyState) String() string {
	switch s {
	case WaitNetworkIdle:
		return "networkidle"
	case WaitSelector:
		return "selector"
	}
	return fmt.Sprintf("ReadyState(%d)", int(s))
}

// Readiness describes when a rendered page can be captured. Timeout bounds
// both navigation and the readiness wait.
type Readiness struct {
	State    ReadyState
	Selector string
	Timeout  time.Duration
}

type Query struct {
	URL      string
	Selector string
}

// Adapter holds per-marketplace knowledge of search URLs, page readiness
// and listing markup.
type Adapter interface {
	Marketplace() models.Marketplace
	BuildQuery(vendor string) Query
	Readiness() Readiness
	// Parse never fails; missing sub-nodes become nil fields.
	Parse(el *goquery.Selection) models.Listing
}

// Default returns the adapters for every supported marketplace in
// result-row order.
func Default() []Adapter {
	return []Adapter{NewAWS(), NewAzure(), NewGCP()}
}

// Select returns the adapters for the named marketplaces, keeping the
// requested order. An empty list selects all of them.
func Select(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		return Default(), nil
	}

	byName := make(map[models.Marketplace]Adapter)
	for _, a := range Default() {
		byName[a.Marketplace()] = a
	}

	adapters := make([]Adapter, 0, len(names))
	seen := make(map[models.Marketplace]bool)
	for _, name := range names {
		m, err := models.ParseMarketplace(name)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		adapters = append(adapters, byName[m])
	}
	return adapters, nil
}
