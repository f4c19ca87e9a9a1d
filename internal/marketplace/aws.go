package marketplace

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/marketplace-matcher/internal/models"
)

const (
	awsHost       = "https://aws.amazon.com"
	awsSearchBase = awsHost + "/marketplace/search/results?searchTerms="
	awsSelector   = "[class^='awsui_body-cell-content']"
)

type AWS struct{}

func NewAWS() *AWS { return &AWS{} }

func (AWS) Marketplace() models.Marketplace { return models.MarketplaceAWS }

func (AWS) BuildQuery(vendor string) Query {
	return Query{
		URL:      awsSearchBase + strings.ReplaceAll(vendor, " ", "+"),
		Selector: awsSelector,
	}
}

func (AWS) Readiness() Readiness {
	return Readiness{State: WaitNetworkIdle, Timeout: 60 * time.Second}
}

func (AWS) Parse(el *goquery.Selection) models.Listing {
	listing := models.Listing{Marketplace: models.MarketplaceAWS}

	// First anchor carrying both an href and visible text.
	el.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		name := strippedText(a)
		if name == "" {
			return true
		}
		href, _ := a.Attr("href")
		listing.Product = &name
		link := resolveLink(awsHost, href)
		listing.Link = &link
		return false
	})

	if vendor, ok := textOf(el, `[data-semantic="vendorName"]`); ok {
		listing.Vendor = &vendor
	}

	return listing
}
