package intel

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

// Bidder thresholds for derived behavior flags.
const (
	aggressiveBidIncrease = 50.0
	sniperLateBidRatio    = 0.7
	proxyHeavyUsage       = 0.8
)

// Behavioral cluster matching tolerances.
const (
	aggressionTolerance = 2.0
	reactionTolerance   = 60.0
)

// Behavioral cluster names.
const (
	ClusterProfessional = "professional"
	ClusterCasual       = "casual"
	ClusterSniper       = "sniper"
	ClusterRegular      = "regular"
)

// Domain match types, strongest first.
const (
	MatchExact           = "exact"
	MatchTLDPattern      = "tld_pattern"
	MatchValueTier       = "value_tier"
	MatchPlatformAverage = "platform_average"
	MatchNone            = "none"
)

const volatileThreshold = 0.3

// BidderIntel is the behavioral signal set for one opponent.
type BidderIntel struct {
	Found bool `json:"found"`

	TotalAuctions   int     `json:"total_auctions_participated,omitempty"`
	BidsPerAuction  float64 `json:"bids_per_auction,omitempty"`
	AvgBidIncrease  float64 `json:"average_bid_increase,omitempty"`
	HighestEverBid  float64 `json:"highest_ever_bid,omitempty"`
	WinRate         float64 `json:"win_rate,omitempty"`
	LateBidRatio    float64 `json:"late_bid_ratio,omitempty"`
	AvgReactionTime float64 `json:"average_reaction_time,omitempty"`
	ProxyUsageRatio float64 `json:"proxy_bid_usage_ratio,omitempty"`

	IsAggressive bool `json:"is_aggressive,omitempty"`
	IsSniper     bool `json:"is_sniper,omitempty"`
	IsProxyHeavy bool `json:"is_proxy_heavy,omitempty"`

	// BehavioralPattern is populated only when the exact profile lookup
	// missed and cluster matching was attempted instead.
	BehavioralPattern *BehavioralPattern `json:"behavioral_pattern,omitempty"`
}

// BehavioralPattern is a cluster of historical bidders whose behavior
// resembles the live opponent.
type BehavioralPattern struct {
	Found bool `json:"found"`

	Cluster             string  `json:"behavior_cluster,omitempty"`
	SampleSize          int     `json:"sample_size,omitempty"`
	AvgWinRate          float64 `json:"avg_win_rate,omitempty"`
	FoldProbability     float64 `json:"fold_probability,omitempty"`
	AvgLateBidRatio     float64 `json:"avg_late_bid_ratio,omitempty"`
	IsAggressiveCluster bool    `json:"is_aggressive_cluster,omitempty"`
	IsPassiveCluster    bool    `json:"is_passive_cluster,omitempty"`
	CounterStrategy     string  `json:"strategic_recommendation,omitempty"`
}

// DomainIntel is price history for a domain, resolved through the tiered
// matching chain. Confidence reflects the tier and sample size.
type DomainIntel struct {
	Found     bool   `json:"found"`
	MatchType string `json:"match_type"`

	AvgFinalPrice   float64 `json:"average_final_price,omitempty"`
	PriceVolatility float64 `json:"price_volatility,omitempty"`
	AuctionCount    int     `json:"number_of_auctions,omitempty"`
	IsVolatile      bool    `json:"is_volatile,omitempty"`
	HasHistory      bool    `json:"has_history"`
	Confidence      float64 `json:"confidence,omitempty"`

	// TLD tier extras.
	SampleSize       int                `json:"sample_size,omitempty"`
	IsPremiumTLD     bool               `json:"is_premium_tld,omitempty"`
	IsBudgetTLD      bool               `json:"is_budget_tld,omitempty"`
	PriceStdDev      float64            `json:"price_std,omitempty"`
	PricePercentiles map[string]float64 `json:"price_percentiles,omitempty"`

	// Value tier extras.
	RecommendedMaxBid float64 `json:"recommended_max_bid,omitempty"`

	Warning string `json:"warning,omitempty"`
}

// Archetype is the macro behavior pattern of auctions on a platform.
type Archetype struct {
	Found bool `json:"found"`

	EscalationSpeed string  `json:"escalation_speed,omitempty"`
	SniperDominated bool    `json:"sniper_dominated,omitempty"`
	ProxyDriven     bool    `json:"proxy_driven,omitempty"`
	AvgLateBidRatio float64 `json:"avg_late_bid_ratio,omitempty"`
	AvgBidJump      float64 `json:"avg_bid_jump,omitempty"`
	AvgDurationSec  float64 `json:"avg_duration_sec,omitempty"`
}

// WinFactors itemizes the signals behind a win probability estimate.
type WinFactors struct {
	CompetitionLevel     int     `json:"competition_level"`
	OpponentStrength     float64 `json:"opponent_strength"`
	BudgetAdequacy       float64 `json:"budget_adequacy"`
	DomainPredictability float64 `json:"domain_predictability"`
}

// WinProbability is the combined win estimate for the current context.
type WinProbability struct {
	Probability     float64    `json:"win_probability"`
	ConfidenceLevel string     `json:"confidence_level"`
	Factors         WinFactors `json:"factors"`
}

// ExpectedValue is the profitability analysis for bidding in this auction.
type ExpectedValue struct {
	ExpectedFinalPrice float64 `json:"expected_final_price"`
	ExpectedProfit     float64 `json:"expected_profit"`
	ExpectedMargin     float64 `json:"expected_margin"`
	EV                 float64 `json:"expected_value"`
	RiskAdjustedEV     float64 `json:"risk_adjusted_ev"`
	ROI                float64 `json:"roi"`
	Recommendation     string  `json:"recommendation"`
}

// ResourceScore ranks this auction against others competing for budget.
type ResourceScore struct {
	Score       float64 `json:"score"`
	Priority    string  `json:"priority"`
	Action      string  `json:"action_recommendation"`
	Explanation string  `json:"explanation"`
}

// Enrichment bundles every intelligence signal for one decision round.
type Enrichment struct {
	Bidder         BidderIntel    `json:"bidder_intelligence"`
	Domain         DomainIntel    `json:"domain_intelligence"`
	Archetype      Archetype      `json:"auction_archetype"`
	WinProbability WinProbability `json:"win_probability"`
	ExpectedValue  ExpectedValue  `json:"expected_value_analysis"`
	ResourceScore  ResourceScore  `json:"resource_optimization_score"`
}

// OpponentSignals reduces the bidder intelligence to the flags the rule
// fallback engine consumes.
func (e *Enrichment) OpponentSignals() core.OpponentSignals {
	if e.Bidder.Found {
		return core.OpponentSignals{Found: true, Aggressive: e.Bidder.IsAggressive}
	}
	if p := e.Bidder.BehavioralPattern; p != nil && p.Found {
		return core.OpponentSignals{Found: true, Aggressive: p.IsAggressiveCluster}
	}
	return core.OpponentSignals{}
}

// Resolver answers intelligence queries against an in-memory dataset.
// All methods are pure lookups over immutable data and safe for concurrent
// use.
type Resolver struct {
	data *Dataset

	// BudgetAdequacyRatio is the fraction of estimated value the budget is
	// measured against when estimating win probability.
	BudgetAdequacyRatio float64

	log zerolog.Logger
}

// NewResolver wraps a loaded dataset.
func NewResolver(data *Dataset, log zerolog.Logger) *Resolver {
	return &Resolver{
		data:                data,
		BudgetAdequacyRatio: 0.70,
		log:                 log.With().Str("component", "intel").Logger(),
	}
}

// BidderIntelligence looks up an opponent by exact ID.
func (r *Resolver) BidderIntelligence(bidderID string) BidderIntel {
	if bidderID == "" {
		return BidderIntel{}
	}
	p := r.data.bidder(bidderID)
	if p == nil {
		return BidderIntel{}
	}

	auctions := p.TotalAuctions
	if auctions < 1 {
		auctions = 1
	}
	return BidderIntel{
		Found:           true,
		TotalAuctions:   p.TotalAuctions,
		BidsPerAuction:  float64(p.TotalBids) / float64(auctions),
		AvgBidIncrease:  p.AvgBidIncrease,
		HighestEverBid:  p.MaxBid,
		WinRate:         p.WinRate,
		LateBidRatio:    p.LateBidRatio,
		AvgReactionTime: p.AvgReactionTime,
		ProxyUsageRatio: p.ProxyUsage,
		IsAggressive:    p.AvgBidIncrease > aggressiveBidIncrease,
		IsSniper:        p.LateBidRatio > sniperLateBidRatio,
		IsProxyHeavy:    p.ProxyUsage > proxyHeavyUsage,
	}
}

// BidderBehavioralPattern matches the live opponent against historical
// bidder clusters when no exact profile exists. Matching first requires both
// aggression and reaction time within tolerance, then relaxes to aggression
// alone.
func (r *Resolver) BidderBehavioralPattern(liveAggression, liveReactionTime float64) BehavioralPattern {
	if len(r.data.BidderProfiles) == 0 {
		return BehavioralPattern{}
	}

	var similar []*BidderProfile
	for i := range r.data.BidderProfiles {
		p := &r.data.BidderProfiles[i]
		if math.Abs(p.aggressionNormalized()-liveAggression) <= aggressionTolerance &&
			math.Abs(p.AvgReactionTime-liveReactionTime) <= reactionTolerance {
			similar = append(similar, p)
		}
	}
	if len(similar) == 0 {
		for i := range r.data.BidderProfiles {
			p := &r.data.BidderProfiles[i]
			if math.Abs(p.aggressionNormalized()-liveAggression) <= aggressionTolerance {
				similar = append(similar, p)
			}
		}
	}
	if len(similar) == 0 {
		return BehavioralPattern{}
	}

	winRates := make([]float64, len(similar))
	lateRatios := make([]float64, len(similar))
	for i, p := range similar {
		winRates[i] = p.WinRate
		lateRatios[i] = p.LateBidRatio
	}
	avgWinRate := mean(winRates)
	avgLateBidRatio := mean(lateRatios)

	var cluster string
	switch {
	case avgWinRate > 0.6:
		cluster = ClusterProfessional
	case avgWinRate < 0.15:
		cluster = ClusterCasual
	case avgLateBidRatio > sniperLateBidRatio:
		cluster = ClusterSniper
	default:
		cluster = ClusterRegular
	}
	foldProbability := 1 - avgWinRate

	return BehavioralPattern{
		Found:               true,
		Cluster:             cluster,
		SampleSize:          len(similar),
		AvgWinRate:          avgWinRate,
		FoldProbability:     foldProbability,
		AvgLateBidRatio:     avgLateBidRatio,
		IsAggressiveCluster: liveAggression > 6.0,
		IsPassiveCluster:    liveAggression < 3.0,
		CounterStrategy:     counterStrategy(cluster, foldProbability),
	}
}

func counterStrategy(cluster string, foldProbability float64) string {
	switch {
	case cluster == ClusterProfessional:
		return "Avoid escalation. Set firm cap and be prepared to walk away."
	case cluster == ClusterCasual || foldProbability > 0.85:
		return "Opponent likely to fold. Set moderate cap and bid confidently."
	case cluster == ClusterSniper:
		return "Counter-snipe in final seconds or use early proxy to discourage."
	default:
		return "Standard competitive approach. Monitor and adjust dynamically."
	}
}

// DomainIntelligence resolves price history for a domain through four tiers:
// exact match, TLD pattern, value tier pattern, then the platform-wide
// average as a last resort.
func (r *Resolver) DomainIntelligence(domain string, estimatedValue float64) DomainIntel {
	if d := r.data.domain(domain); d != nil {
		return DomainIntel{
			Found:           true,
			MatchType:       MatchExact,
			AvgFinalPrice:   d.AvgFinalPrice,
			PriceVolatility: d.Volatility,
			AuctionCount:    d.AuctionCount,
			IsVolatile:      d.Volatility > volatileThreshold,
			HasHistory:      true,
			Confidence:      0.95,
		}
	}

	if intel, ok := r.tldPattern(domain); ok {
		return intel
	}

	if estimatedValue > 0 {
		if intel, ok := r.valueTierPattern(estimatedValue); ok {
			return intel
		}
	}

	if len(r.data.DomainStats) > 0 {
		prices := make([]float64, len(r.data.DomainStats))
		for i, d := range r.data.DomainStats {
			prices[i] = d.AvgFinalPrice
		}
		r.log.Debug().Str("domain", domain).Msg("falling back to platform-wide average")
		return DomainIntel{
			Found:         true,
			MatchType:     MatchPlatformAverage,
			AvgFinalPrice: mean(prices),
			HasHistory:    false,
			Confidence:    0.30,
			Warning:       "Using platform-wide average. Low confidence.",
		}
	}

	return DomainIntel{MatchType: MatchNone}
}

func (r *Resolver) tldPattern(domain string) (DomainIntel, bool) {
	tld := tldOf(domain)
	if tld == "" {
		return DomainIntel{}, false
	}

	var prices, volatilities []float64
	for _, d := range r.data.DomainStats {
		if tldOf(d.Domain) == tld {
			prices = append(prices, d.AvgFinalPrice)
			volatilities = append(volatilities, d.Volatility)
		}
	}
	if len(prices) == 0 {
		return DomainIntel{}, false
	}

	sampleSize := len(prices)
	return DomainIntel{
		Found:           true,
		MatchType:       MatchTLDPattern,
		AvgFinalPrice:   mean(prices),
		PriceVolatility: mean(volatilities),
		SampleSize:      sampleSize,
		IsPremiumTLD:    premiumTLDs[tld],
		IsBudgetTLD:     budgetTLDs[tld],
		PriceStdDev:     sampleStdDev(prices),
		PricePercentiles: map[string]float64{
			"p25": quantile(prices, 0.25),
			"p50": quantile(prices, 0.50),
			"p75": quantile(prices, 0.75),
			"p90": quantile(prices, 0.90),
		},
		HasHistory: false,
		Confidence: math.Min(0.75, float64(sampleSize)/50),
	}, true
}

func (r *Resolver) valueTierPattern(estimatedValue float64) (DomainIntel, bool) {
	lower := estimatedValue * 0.70
	upper := estimatedValue * 1.30

	var prices []float64
	for _, d := range r.data.DomainStats {
		if d.AvgFinalPrice >= lower && d.AvgFinalPrice <= upper {
			prices = append(prices, d.AvgFinalPrice)
		}
	}
	if len(prices) == 0 {
		return DomainIntel{}, false
	}

	sampleSize := len(prices)
	return DomainIntel{
		Found:             true,
		MatchType:         MatchValueTier,
		AvgFinalPrice:     mean(prices),
		RecommendedMaxBid: median(prices) * 0.85,
		SampleSize:        sampleSize,
		HasHistory:        false,
		Confidence:        math.Min(0.9, float64(sampleSize)/100),
	}, true
}

// AuctionArchetype reports the aggregate macro pattern across historical
// auctions. The archetype table carries no per-platform breakdown yet, so
// the same aggregate serves every platform.
func (r *Resolver) AuctionArchetype(platform core.Platform) Archetype {
	if len(r.data.Archetypes) == 0 {
		return Archetype{}
	}

	lateRatios := make([]float64, len(r.data.Archetypes))
	jumps := make([]float64, len(r.data.Archetypes))
	durations := make([]float64, len(r.data.Archetypes))
	for i, a := range r.data.Archetypes {
		lateRatios[i] = a.LateBidRatio
		jumps[i] = a.AvgBidJump
		durations[i] = a.DurationSec
	}

	avgLate := mean(lateRatios)
	avgJump := mean(jumps)
	speed := "slow"
	if avgJump > 50 {
		speed = "fast"
	}
	return Archetype{
		Found:           true,
		EscalationSpeed: speed,
		SniperDominated: avgLate > 0.7,
		ProxyDriven:     avgLate < 0.3,
		AvgLateBidRatio: avgLate,
		AvgBidJump:      avgJump,
		AvgDurationSec:  mean(durations),
	}
}

// estimateWinProbability combines competition level, opponent history,
// budget headroom, and domain volatility into one probability. Adjustments
// apply in a fixed order so the estimate is deterministic.
func (r *Resolver) estimateWinProbability(ctx *core.AuctionContext, bidder BidderIntel, domain DomainIntel) WinProbability {
	var prob float64
	switch {
	case ctx.NumBidders == 0:
		prob = 0.95
	case ctx.NumBidders == 1:
		prob = 0.70
	case ctx.NumBidders == 2:
		prob = 0.50
	default:
		prob = 0.30
	}

	if bidder.Found {
		prob *= 1 - bidder.WinRate*0.5
	}
	if p := bidder.BehavioralPattern; p != nil && p.Found {
		prob += (p.FoldProbability - 0.5) * 0.2
	}

	safeMax := ctx.EstimatedValue * r.BudgetAdequacyRatio
	if safeMax > 0 && ctx.BudgetAvailable < safeMax {
		ratio := ctx.BudgetAvailable / safeMax
		prob *= 0.5 + 0.5*ratio
	}

	if domain.Found && domain.PriceVolatility > volatileThreshold {
		prob *= 0.90
	}

	prob = clamp(prob, 0.05, 0.95)

	level := "low"
	if prob > 0.7 {
		level = "high"
	} else if prob > 0.4 {
		level = "medium"
	}

	opponentStrength := 0.5
	if bidder.Found {
		opponentStrength = 1 - bidder.WinRate
	}
	predictability := 0.5
	if domain.Found {
		predictability = 1 - domain.PriceVolatility
	}
	adequacy := 0.0
	if safeMax > 0 {
		adequacy = ctx.BudgetAvailable / safeMax
	}

	return WinProbability{
		Probability:     prob,
		ConfidenceLevel: level,
		Factors: WinFactors{
			CompetitionLevel:     ctx.NumBidders,
			OpponentStrength:     opponentStrength,
			BudgetAdequacy:       adequacy,
			DomainPredictability: predictability,
		},
	}
}

// calculateExpectedValue estimates the profitability of winning at the
// expected final price, discounted for volatility.
func (r *Resolver) calculateExpectedValue(ctx *core.AuctionContext, win WinProbability, domain DomainIntel) ExpectedValue {
	expectedFinalPrice := ctx.EstimatedValue * 0.65
	if domain.Found && domain.AvgFinalPrice > 0 {
		expectedFinalPrice = domain.AvgFinalPrice
	}

	expectedProfit := ctx.EstimatedValue - expectedFinalPrice
	expectedMargin := 0.0
	if ctx.EstimatedValue > 0 {
		expectedMargin = expectedProfit / ctx.EstimatedValue
	}

	ev := win.Probability * expectedProfit

	volatility := 0.3
	if domain.Found {
		volatility = domain.PriceVolatility
	}
	riskAdjustedEV := ev * (1 - volatility*0.5)

	roi := 0.0
	if expectedFinalPrice > 0 {
		roi = riskAdjustedEV / expectedFinalPrice
	}

	recommendation := "WEAK_BID"
	if roi > 1.5 {
		recommendation = "STRONG_BID"
	} else if roi > 0.8 {
		recommendation = "MODERATE_BID"
	}

	return ExpectedValue{
		ExpectedFinalPrice: expectedFinalPrice,
		ExpectedProfit:     expectedProfit,
		ExpectedMargin:     expectedMargin,
		EV:                 ev,
		RiskAdjustedEV:     riskAdjustedEV,
		ROI:                roi,
		Recommendation:     recommendation,
	}
}

// calculateResourceScore ranks the auction for budget allocation.
func (r *Resolver) calculateResourceScore(win WinProbability, ev ExpectedValue) ResourceScore {
	score := win.Probability * ev.ExpectedMargin * (1 + ev.ROI)

	priority := "LOW"
	action := "Minimal bid or skip"
	if score > 1.0 {
		priority = "HIGH"
		action = "Allocate maximum safe budget"
	} else if score > 0.5 {
		priority = "MEDIUM"
		action = "Allocate moderate budget"
	}

	return ResourceScore{
		Score:    score,
		Priority: priority,
		Action:   action,
		Explanation: fmt.Sprintf("Win prob %.1f%% x Margin %.1f%% x ROI %.2f = %.3f",
			win.Probability*100, ev.ExpectedMargin*100, ev.ROI, score),
	}
}

// Enrich composes every intelligence signal for one decision round. When the
// exact bidder lookup misses and a bidder ID was supplied, the live behavior
// scores drive cluster matching instead.
func (r *Resolver) Enrich(ctx *core.AuctionContext, lastBidderID string) Enrichment {
	bidder := r.BidderIntelligence(lastBidderID)
	if !bidder.Found && lastBidderID != "" {
		pattern := r.BidderBehavioralPattern(
			ctx.BidderAnalysis.AggressionScore,
			ctx.BidderAnalysis.ReactionTimeAvg,
		)
		bidder.BehavioralPattern = &pattern
	}

	domain := r.DomainIntelligence(ctx.Domain, ctx.EstimatedValue)
	archetype := r.AuctionArchetype(ctx.Platform)
	win := r.estimateWinProbability(ctx, bidder, domain)
	ev := r.calculateExpectedValue(ctx, win, domain)

	r.log.Debug().
		Str("domain", ctx.Domain).
		Str("match_type", domain.MatchType).
		Float64("win_probability", win.Probability).
		Str("ev_recommendation", ev.Recommendation).
		Msg("context enriched")

	return Enrichment{
		Bidder:         bidder,
		Domain:         domain,
		Archetype:      archetype,
		WinProbability: win,
		ExpectedValue:  ev,
		ResourceScore:  r.calculateResourceScore(win, ev),
	}
}
