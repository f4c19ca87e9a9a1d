package marketplace

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/marketplace-matcher/internal/models"
)

const (
	gcpHost          = "https://console.cloud.google.com"
	gcpSearchBase    = gcpHost + "/marketplace/browse?hl=en&inv=1&invt=Ab0uyg&q="
	gcpSelector      = "[class^='mp-search-results-list-item-link']"
	gcpReadySelector = "div.cfc-panel-body-scroll-content"
)

// GCP waits for the results panel instead of network idle. The console
// never declares its own bound, so it gets playwright's 30s default.
type GCP struct{}

func NewGCP() *GCP { return &GCP{} }

func (GCP) Marketplace() models.Marketplace { return models.MarketplaceGCP }

func (GCP) BuildQuery(vendor string) Query {
	return Query{
		URL:      gcpSearchBase + strings.ReplaceAll(vendor, " ", "%20"),
		Selector: gcpSelector,
	}
}

func (GCP) Readiness() Readiness {
	return Readiness{State: WaitSelector, Selector: gcpReadySelector, Timeout: 30 * time.Second}
}

func (GCP) Parse(el *goquery.Selection) models.Listing {
	listing := models.Listing{Marketplace: models.MarketplaceGCP}

	// Result items are anchors themselves.
	if href, ok := el.Attr("href"); ok && href != "" {
		link := prefixHost(gcpHost, href)
		listing.Link = &link
	}

	if name, ok := textOf(el, "h3.cfc-truncated-text"); ok {
		listing.Product = &name
	}

	if text, ok := textOf(el, "h4.cfc-truncated-text"); ok {
		vendor := stripByMarker(text)
		listing.Vendor = &vendor
	}

	return listing
}
