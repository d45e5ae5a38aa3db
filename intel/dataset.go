// Package intel enriches auction context with the best-available statistical
// priors from offline-computed market datasets. Lookups degrade gracefully:
// exact matches first, then pattern matches, then aggregate fallbacks, each
// tier surfacing its own confidence so consumers can discount weak signals.
package intel

import (
	"strings"
)

// BidderProfile is one row of the offline bidder-behavior table.
type BidderProfile struct {
	BidderID        string
	TotalAuctions   int
	TotalBids       int
	AvgBidIncrease  float64
	MaxBid          float64
	WinRate         float64
	LateBidRatio    float64
	AvgReactionTime float64 // seconds
	ProxyUsage      float64 // 0-1
}

// aggressionNormalized maps the raw average bid increase onto the live 0-10
// aggression scale used by BidderAnalysis.
func (p *BidderProfile) aggressionNormalized() float64 {
	v := p.AvgBidIncrease / 10
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// DomainStats is one row of the offline per-domain auction statistics table.
type DomainStats struct {
	Domain        string
	AvgFinalPrice float64
	Volatility    float64
	AuctionCount  int
}

// ArchetypeRow is one row of the offline auction-archetype table.
type ArchetypeRow struct {
	LateBidRatio float64
	AvgBidJump   float64
	DurationSec  float64
}

// Dataset holds all market-intelligence tables in memory. It is loaded once
// at startup and read-only afterwards, so it is safe for concurrent readers.
type Dataset struct {
	BidderProfiles []BidderProfile
	DomainStats    []DomainStats
	Archetypes     []ArchetypeRow

	bidderIndex map[string]*BidderProfile
	domainIndex map[string]*DomainStats
}

// NewDataset builds a dataset from already-loaded rows and indexes it.
func NewDataset(bidders []BidderProfile, domains []DomainStats, archetypes []ArchetypeRow) *Dataset {
	d := &Dataset{
		BidderProfiles: bidders,
		DomainStats:    domains,
		Archetypes:     archetypes,
	}
	d.buildIndexes()
	return d
}

func (d *Dataset) buildIndexes() {
	d.bidderIndex = make(map[string]*BidderProfile, len(d.BidderProfiles))
	for i := range d.BidderProfiles {
		d.bidderIndex[d.BidderProfiles[i].BidderID] = &d.BidderProfiles[i]
	}
	d.domainIndex = make(map[string]*DomainStats, len(d.DomainStats))
	for i := range d.DomainStats {
		d.domainIndex[strings.ToLower(d.DomainStats[i].Domain)] = &d.DomainStats[i]
	}
}

func (d *Dataset) bidder(id string) *BidderProfile {
	return d.bidderIndex[id]
}

func (d *Dataset) domain(name string) *DomainStats {
	return d.domainIndex[strings.ToLower(name)]
}

// tldOf extracts the TLD (with leading dot) from a domain name, or "" when
// the domain has none.
func tldOf(domain string) string {
	idx := strings.LastIndex(domain, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(domain[idx:])
}

var premiumTLDs = map[string]bool{".com": true, ".net": true, ".org": true}
var budgetTLDs = map[string]bool{".xyz": true, ".online": true, ".site": true, ".club": true}
