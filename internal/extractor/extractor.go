package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/marketplace-matcher/internal/marketplace"
	"github.com/maltedev/marketplace-matcher/internal/models"
)

// Extract selects every element matching selector in markup and parses each
// one with the adapter. No matches is an empty set, not an error. Elements
// that yield neither a name nor a link are dropped.
func Extract(markup, selector string, adapter marketplace.Adapter) (models.CandidateSet, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	elements := doc.Find(selector)
	candidates := make(models.CandidateSet, 0, elements.Length())

	elements.Each(func(_ int, el *goquery.Selection) {
		listing, ok := parseElement(adapter, el)
		if !ok {
			return
		}
		if listing.Product == nil && listing.Link == nil {
			return
		}
		candidates = append(candidates, listing)
	})

	return candidates, nil
}

// parseElement isolates one element so a broken node cannot take the rest
// of the page down with it.
func parseElement(adapter marketplace.Adapter, el *goquery.Selection) (listing models.Listing, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	listing = adapter.Parse(el)
	listing.Marketplace = adapter.Marketplace()
	return listing, true
}
