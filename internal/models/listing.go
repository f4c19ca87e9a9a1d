package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Marketplace string

const (
	MarketplaceAWS   Marketplace = "AWS"
	MarketplaceAzure Marketplace = "AZURE"
	MarketplaceGCP   Marketplace = "GCP"
)

// Marketplaces lists every supported marketplace in result-row column order.
var Marketplaces = []Marketplace{MarketplaceAWS, MarketplaceAzure, MarketplaceGCP}

func ParseMarketplace(s string) (Marketplace, error) {
	switch m := Marketplace(strings.ToUpper(strings.TrimSpace(s))); m {
	case MarketplaceAWS, MarketplaceAzure, MarketplaceGCP:
		return m, nil
	}
	return "", fmt.Errorf("unknown marketplace %q", s)
}

type Task struct {
	Product string `json:"product"`
	Vendor  string `json:"vendor"`
}

// Listing is a single candidate scraped from a marketplace search page.
// Any field may be nil when the page element lacked the sub-node.
type Listing struct {
	Product     *string     `json:"product"`
	Vendor      *string     `json:"vendor"`
	Link        *string     `json:"link"`
	Marketplace Marketplace `json:"-"`
}

func (l Listing) ProductName() string { return deref(l.Product) }

func (l Listing) VendorName() string { return deref(l.Vendor) }

func (l Listing) URL() string { return deref(l.Link) }

// CandidateSet keeps document order of the rendered page.
type CandidateSet []Listing

// MatchResult holds the selected listing, or nil for "no match".
type MatchResult struct {
	Listing *Listing
	Score   float64
}

func NoMatch() MatchResult { return MatchResult{} }

func (m MatchResult) Matched() bool { return m.Listing != nil }

func (m MatchResult) MarshalJSON() ([]byte, error) {
	if m.Listing == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m.Listing)
}

func (m *MatchResult) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NoMatch()
		return nil
	}
	var l Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	m.Listing = &l
	return nil
}

type ResultRow struct {
	Task  Task        `json:"-"`
	AWS   MatchResult `json:"aws"`
	Azure MatchResult `json:"azure"`
	GCP   MatchResult `json:"gcp"`
}

func (r ResultRow) Result(m Marketplace) MatchResult {
	switch m {
	case MarketplaceAWS:
		return r.AWS
	case MarketplaceAzure:
		return r.Azure
	case MarketplaceGCP:
		return r.GCP
	}
	return NoMatch()
}

func (r *ResultRow) SetResult(m Marketplace, res MatchResult) {
	if res.Listing != nil {
		res.Listing.Marketplace = m
	}
	switch m {
	case MarketplaceAWS:
		r.AWS = res
	case MarketplaceAzure:
		r.Azure = res
	case MarketplaceGCP:
		r.GCP = res
	}
}

type resultRowJSON struct {
	Product string      `json:"product"`
	Vendor  string      `json:"vendor"`
	AWS     MatchResult `json:"aws"`
	Azure   MatchResult `json:"azure"`
	GCP     MatchResult `json:"gcp"`
}

func (r ResultRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultRowJSON{
		Product: r.Task.Product,
		Vendor:  r.Task.Vendor,
		AWS:     r.AWS,
		Azure:   r.Azure,
		GCP:     r.GCP,
	})
}

func (r *ResultRow) UnmarshalJSON(data []byte) error {
	var raw resultRowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ResultRow{
		Task:  Task{Product: raw.Product, Vendor: raw.Vendor},
		AWS:   raw.AWS,
		Azure: raw.Azure,
		GCP:   raw.GCP,
	}
	return nil
}

// NewEmptyRow returns a row with "no match" for every marketplace.
func NewEmptyRow(task Task) ResultRow {
	return ResultRow{Task: task}
}

// StringPtr returns nil for an absent value.
func StringPtr(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
