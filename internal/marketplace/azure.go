package marketplace

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/marketplace-matcher/internal/models"
)

const (
	azureHost       = "https://azuremarketplace.microsoft.com"
	azureSearchBase = azureHost + "/en-us/marketplace/apps?search="
	azureSelector   = "[class^='spza_tileWrapper']"
)

type Azure struct{}

func NewAzure() *Azure { return &Azure{} }

func (Azure) Marketplace() models.Marketplace { return models.MarketplaceAzure }

func (Azure) BuildQuery(vendor string) Query {
	return Query{
		URL:      azureSearchBase + strings.ReplaceAll(vendor, " ", "%20"),
		Selector: azureSelector,
	}
}

func (Azure) Readiness() Readiness {
	return Readiness{State: WaitNetworkIdle, Timeout: 60 * time.Second}
}

func (Azure) Parse(el *goquery.Selection) models.Listing {
	listing := models.Listing{Marketplace: models.MarketplaceAzure}

	if href, ok := el.Find("a[href]").First().Attr("href"); ok && href != "" {
		link := prefixHost(azureHost, href)
		listing.Link = &link
	}

	// The tile content block also contains the provider line, so the name
	// is whatever precedes the "By" marker.
	if text, ok := textOf(el, ".tileContent"); ok {
		name := beforeByMarker(text)
		listing.Product = &name
	}

	if text, ok := textOf(el, ".providerSection"); ok {
		vendor := stripByMarker(text)
		listing.Vendor = &vendor
	}

	return listing
}
