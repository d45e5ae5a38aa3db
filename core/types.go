package core

import (
	"fmt"
)

// Platform identifies an auction platform. Each platform carries its own
// minimum-increment and late-auction extension rules (see platform.go).
type Platform string

const (
	PlatformGoDaddy Platform = "godaddy"
	PlatformNameJet Platform = "namejet"
	PlatformDynadot Platform = "dynadot"
)

// Strategy is a bidding strategy recommendation.
type Strategy string

const (
	StrategyProxyMax        Strategy = "proxy_max"
	StrategyLastMinuteSnipe Strategy = "last_minute_snipe"
	StrategyIncrementalTest Strategy = "incremental_test"
	StrategyWaitForCloseout Strategy = "wait_for_closeout"
	StrategyAggressiveEarly Strategy = "aggressive_early"
	StrategyDoNotBid        Strategy = "do_not_bid"
)

// RiskLevel grades the downside exposure of a decision.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ProxyAction is the outcome of proxy-bid analysis.
type ProxyAction string

const (
	ProxyAcceptLoss ProxyAction = "accept_loss"
	ProxyIncrease   ProxyAction = "increase_proxy"
	ProxyMaintain   ProxyAction = "maintain_proxy"
)

// DecisionSource records which component produced the final decision.
type DecisionSource string

const (
	SourceLLM           DecisionSource = "llm"
	SourceRulesFallback DecisionSource = "rules_fallback"
	SourceSafetyBlock   DecisionSource = "safety_block"
	SourceSystemError   DecisionSource = "system_error"
)

// BidderAnalysis summarizes live observations of the opposing bidder.
type BidderAnalysis struct {
	BotDetected     bool    `json:"bot_detected"`
	CorporateBuyer  bool    `json:"corporate_buyer"`
	AggressionScore float64 `json:"aggression_score"`  // 0-10
	ReactionTimeAvg float64 `json:"reaction_time_avg"` // seconds
}

// AuctionContext is the immutable input snapshot for one decision round.
type AuctionContext struct {
	Domain           string         `json:"domain"`
	Platform         Platform       `json:"platform"`
	EstimatedValue   float64        `json:"estimated_value"`
	CurrentBid       float64        `json:"current_bid"`
	NumBidders       int            `json:"num_bidders"`
	HoursRemaining   float64        `json:"hours_remaining"`
	YourCurrentProxy float64        `json:"your_current_proxy"` // 0 = no proxy set
	BudgetAvailable  float64        `json:"budget_available"`
	BidderAnalysis   BidderAnalysis `json:"bidder_analysis"`

	// ThreadID groups multiple decision rounds of the same auction.
	ThreadID string `json:"thread_id,omitempty"`
}

// Validate checks structural field constraints. Economic viability checks
// (zero valuation, budget floors) belong to the SafetyGate, not here.
func (c *AuctionContext) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if c.CurrentBid < 0 {
		return fmt.Errorf("current_bid must be non-negative, got %.2f", c.CurrentBid)
	}
	if c.NumBidders < 0 {
		return fmt.Errorf("num_bidders must be non-negative, got %d", c.NumBidders)
	}
	if c.HoursRemaining < 0 {
		return fmt.Errorf("hours_remaining must be non-negative, got %.2f", c.HoursRemaining)
	}
	if c.YourCurrentProxy < 0 {
		return fmt.Errorf("your_current_proxy must be non-negative, got %.2f", c.YourCurrentProxy)
	}
	if c.BudgetAvailable < 0 {
		return fmt.Errorf("budget_available must be non-negative, got %.2f", c.BudgetAvailable)
	}
	if c.BidderAnalysis.AggressionScore < 0 || c.BidderAnalysis.AggressionScore > 10 {
		return fmt.Errorf("aggression_score must be within 0-10, got %.2f", c.BidderAnalysis.AggressionScore)
	}
	return nil
}

// StrategyDecision is a proposed bidding strategy, produced either by the
// reasoning oracle or by the rule fallback engine.
type StrategyDecision struct {
	Strategy             Strategy  `json:"strategy"`
	RecommendedBidAmount float64   `json:"recommended_bid_amount"`
	Confidence           float64   `json:"confidence"` // 0-1
	RiskLevel            RiskLevel `json:"risk_level"`
	Reasoning            string    `json:"reasoning"`

	ShouldIncreaseProxy *bool    `json:"should_increase_proxy,omitempty"`
	NextBidAmount       *float64 `json:"next_bid_amount,omitempty"`
	MaxBudgetForDomain  float64  `json:"max_budget_for_domain"`
}

// Validate checks that the decision is structurally well-formed. Policy
// checks (ceilings, budget, reasoning depth) live in the validation package.
func (d *StrategyDecision) Validate() error {
	switch d.Strategy {
	case StrategyProxyMax, StrategyLastMinuteSnipe, StrategyIncrementalTest,
		StrategyWaitForCloseout, StrategyAggressiveEarly, StrategyDoNotBid:
	default:
		return fmt.Errorf("unknown strategy %q", d.Strategy)
	}
	switch d.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("unknown risk level %q", d.RiskLevel)
	}
	if d.RecommendedBidAmount < 0 {
		return fmt.Errorf("recommended_bid_amount must be non-negative, got %.2f", d.RecommendedBidAmount)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be within 0-1, got %.2f", d.Confidence)
	}
	if d.MaxBudgetForDomain < 0 {
		return fmt.Errorf("max_budget_for_domain must be non-negative, got %.2f", d.MaxBudgetForDomain)
	}
	return nil
}

// ProxyDecision is the proxy-bid adjustment derived from a strategy decision
// and the auction context. It has no independent persistence.
type ProxyDecision struct {
	CurrentProxy        float64     `json:"current_proxy"`
	CurrentBid          float64     `json:"current_bid"`
	SafeMax             float64     `json:"safe_max"`
	ShouldIncreaseProxy bool        `json:"should_increase_proxy"`
	NewProxyMax         *float64    `json:"new_proxy_max,omitempty"`
	NextBidAmount       *float64    `json:"next_bid_amount,omitempty"`
	MaxBudgetForDomain  float64     `json:"max_budget_for_domain"`
	ProxyAction         ProxyAction `json:"proxy_action"`
	Explanation         string      `json:"explanation"`
}

// FinalDecision is the sole externally observable artifact of one pipeline
// run. It is created exactly once per invocation and never mutated after.
type FinalDecision struct {
	Strategy             Strategy       `json:"strategy"`
	RecommendedBidAmount float64        `json:"recommended_bid_amount"`
	ShouldIncreaseProxy  bool           `json:"should_increase_proxy"`
	NextBidAmount        *float64       `json:"next_bid_amount,omitempty"`
	MaxBudgetForDomain   float64        `json:"max_budget_for_domain"`
	RiskLevel            RiskLevel      `json:"risk_level"`
	Confidence           float64        `json:"confidence"`
	Reasoning            string         `json:"reasoning"`
	ProxyDecision        *ProxyDecision `json:"proxy_decision,omitempty"`
	DecisionSource       DecisionSource `json:"decision_source"`
}

// Float64Ptr returns a pointer to v. Convenience for optional money fields.
func Float64Ptr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
