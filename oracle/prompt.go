package oracle

import (
	"fmt"
	"strings"

	"github.com/cloudx-io/proxypilot/core"
	"github.com/cloudx-io/proxypilot/intel"
)

// systemPrompt defines the model's role and reasoning framework. It is
// static; everything auction-specific goes into the user prompt.
const systemPrompt = `# Domain Auction Strategy AI

You are an expert domain auction strategist with deep knowledge of:
- Proxy bidding mechanics across GoDaddy, NameJet, and Dynadot
- Platform-specific rules (GoDaddy's 5-minute extension, minimum increments)
- Bidder psychology and bot detection patterns
- Profit margin optimization and risk management

## Core Principles

1. **Profit First**: Target 60-70% of estimated value for 30%+ profit margins
2. **Safety Ceiling**: Never recommend bids above 80% of estimated value
3. **Platform Awareness**: Respect 5-minute extensions and auto-bidding rules
4. **Opponent Analysis**: Adjust strategy based on bot vs human behavior

## Strategy Options

- proxy_max: Set maximum proxy bid, let platform auto-bid incrementally
- last_minute_snipe: Time bid for final moments to avoid counters
- incremental_test: Small bids to test competition without commitment
- wait_for_closeout: Wait for auction to end with minimal bids
- aggressive_early: Rare, only for must-have domains
- do_not_bid: Walk away when profit impossible

## Platform Rules

**GoDaddy**: 5-minute extension on late bids, $5 minimum increment
**NameJet**: No extensions, $5 increment, fast-paced
**Dynadot**: Variable increments, occasional extensions

## Decision Framework

1. **Value Tier Analysis**:
   - High ($1000+): Conservative, avoid escalation
   - Medium ($100-1000): Balanced approach
   - Low (<$100): Aggressive or wait for closeout

2. **Competition Assessment**:
   - 0 bidders: Wait for closeout or proxy max early
   - 1-2 bidders: Proxy max with safe limits
   - 3+ bidders: Consider sniping or incremental testing

3. **Bot Detection Response**:
   - Bots: Prefer sniping to minimize reaction window
   - Humans: More flexible, can use proxy strategies

4. **Time Pressure**:
   - >1 hour: Strategic positioning
   - <1 hour: Execute final strategy
   - <5 minutes: Sniping mode (GoDaddy extension aware)`

// PromptBuilder renders the system and user prompts sent to the oracle.
// The ratios are guidance embedded in the prompt text; hard enforcement is
// the validator's job.
type PromptBuilder struct {
	SafeMaxRatio float64
	CeilingRatio float64
}

// NewPromptBuilder returns a builder with the standard guidance ratios.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{SafeMaxRatio: 0.70, CeilingRatio: 0.80}
}

// SystemPrompt returns the static role prompt.
func (b *PromptBuilder) SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the auction context, optional market intelligence, and
// optional historical context into the task prompt.
func (b *PromptBuilder) UserPrompt(req Request) string {
	ctx := req.Context

	safeMax := core.MulRatio(ctx.EstimatedValue, b.SafeMaxRatio)
	ceiling := core.MulRatio(ctx.EstimatedValue, b.CeilingRatio)

	var tier, tierNote string
	switch core.TierFor(ctx.EstimatedValue) {
	case core.TierHigh:
		tier, tierNote = "HIGH", "Conservative approach, avoid emotional escalation"
	case core.TierMedium:
		tier, tierNote = "MEDIUM", "Balanced strategy, test competition"
	default:
		tier, tierNote = "LOW", "Aggressive or wait for closeout"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Auction Context\n\n")
	fmt.Fprintf(&sb, "**Domain**: %s\n", ctx.Domain)
	fmt.Fprintf(&sb, "**Platform**: %s\n", strings.ToUpper(string(ctx.Platform)))
	fmt.Fprintf(&sb, "**Platform Rules**: %s\n\n", ctx.Platform.Rules())

	fmt.Fprintf(&sb, "**Financials**:\n")
	fmt.Fprintf(&sb, "- Estimated Value: $%.2f\n", ctx.EstimatedValue)
	fmt.Fprintf(&sb, "- Current Bid: $%.2f\n", ctx.CurrentBid)
	fmt.Fprintf(&sb, "- Your Current Proxy: $%.2f (0 = none)\n", ctx.YourCurrentProxy)
	fmt.Fprintf(&sb, "- Budget Available: $%.2f\n", ctx.BudgetAvailable)
	fmt.Fprintf(&sb, "- Safe Max (%.0f%% of value): $%.2f\n", b.SafeMaxRatio*100, safeMax)
	fmt.Fprintf(&sb, "- Hard Ceiling (%.0f%% of value): $%.2f\n\n", b.CeilingRatio*100, ceiling)

	fmt.Fprintf(&sb, "**Competition**:\n")
	fmt.Fprintf(&sb, "- Active Bidders: %d\n", ctx.NumBidders)
	fmt.Fprintf(&sb, "- Hours Remaining: %.1f\n\n", ctx.HoursRemaining)

	fmt.Fprintf(&sb, "**Bidder Analysis**:\n")
	fmt.Fprintf(&sb, "- Bot Detected: %t\n", ctx.BidderAnalysis.BotDetected)
	fmt.Fprintf(&sb, "- Corporate Buyer: %t\n", ctx.BidderAnalysis.CorporateBuyer)
	fmt.Fprintf(&sb, "- Aggression Score: %.1f/10\n", ctx.BidderAnalysis.AggressionScore)
	fmt.Fprintf(&sb, "- Avg Reaction Time: %.1fs\n\n", ctx.BidderAnalysis.ReactionTimeAvg)

	fmt.Fprintf(&sb, "**Value Tier**: %s - %s\n", tier, tierNote)

	if req.Enrichment != nil {
		writeMarketIntel(&sb, req.Enrichment)
	}
	if req.HistoricalContext != "" {
		fmt.Fprintf(&sb, "\n%s\n", req.HistoricalContext)
	}

	fmt.Fprintf(&sb, `
## Task

Analyze this auction and recommend the optimal bidding strategy. Consider:

1. **Profit Potential**: Can we achieve 30%%+ margin within safe limits?
2. **Competition**: How many bidders and their behavior patterns?
3. **Platform Mechanics**: How do %s rules affect timing?
4. **Risk Assessment**: What's the likelihood of overpaying?
5. **Timing**: When should we act given remaining time?

## Required Output Format

Respond with ONLY a valid JSON object matching this schema:

`+"```json\n"+`{
  "strategy": "proxy_max|last_minute_snipe|incremental_test|wait_for_closeout|aggressive_early|do_not_bid",
  "recommended_bid_amount": <float>,
  "confidence": <0.0-1.0>,
  "risk_level": "low|medium|high",
  "reasoning": "<detailed explanation with strategy rationale and profit calculations>"
}
`+"```"+`

**Important**:
- recommended_bid_amount = your proxy maximum (what you set, not next visible bid)
- confidence = certainty in your strategy (0.0-1.0)
- reasoning = minimum 100 characters explaining your logic
- Stay within safe financial boundaries`, ctx.Platform)

	return sb.String()
}

func writeMarketIntel(sb *strings.Builder, e *intel.Enrichment) {
	fmt.Fprintf(sb, "\n**Market Intelligence**:\n")

	switch {
	case e.Bidder.Found:
		fmt.Fprintf(sb, "- Bidder Profile: %d auctions, Win Rate: %.1f%%, Aggressive: %t, Sniper: %t\n",
			e.Bidder.TotalAuctions, e.Bidder.WinRate*100, e.Bidder.IsAggressive, e.Bidder.IsSniper)
	case e.Bidder.BehavioralPattern != nil && e.Bidder.BehavioralPattern.Found:
		p := e.Bidder.BehavioralPattern
		fmt.Fprintf(sb, "- Bidder Behavior Pattern: cluster=%s, fold probability=%.1f%%, avg win rate=%.1f%%, sample size=%d, recommendation=%s\n",
			p.Cluster, p.FoldProbability*100, p.AvgWinRate*100, p.SampleSize, p.CounterStrategy)
	}

	if e.Domain.Found {
		fmt.Fprintf(sb, "- Domain History (%s): %d past auctions, Avg Final Price: $%.2f, Volatile: %t, Confidence: %.2f\n",
			e.Domain.MatchType, e.Domain.AuctionCount, e.Domain.AvgFinalPrice, e.Domain.IsVolatile, e.Domain.Confidence)
	}

	if e.Archetype.Found {
		fmt.Fprintf(sb, "- Auction Archetype: %s escalation, sniper dominated: %t\n",
			e.Archetype.EscalationSpeed, e.Archetype.SniperDominated)
	}

	fmt.Fprintf(sb, "- Win Probability: %.1f%% (%s confidence)\n",
		e.WinProbability.Probability*100, e.WinProbability.ConfidenceLevel)
	fmt.Fprintf(sb, "- Expected Value: $%.2f risk-adjusted, ROI %.2f, %s\n",
		e.ExpectedValue.RiskAdjustedEV, e.ExpectedValue.ROI, e.ExpectedValue.Recommendation)
	fmt.Fprintf(sb, "- Resource Priority: %s (%s)\n",
		e.ResourceScore.Priority, e.ResourceScore.Action)
}
