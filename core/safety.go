package core

import (
	"fmt"
)

// safetyBlockConfidence is the fixed confidence attached to safety blocks.
// The rules are non-negotiable, so the verdict is reported as near-certain.
const safetyBlockConfidence = 0.95

// SafetyGate runs hardcoded pre-checks that no downstream component may
// override. It rejects auctions where no bidding strategy can be rational
// before the reasoning oracle is ever consulted.
type SafetyGate struct {
	// MinBudget is the minimum available budget for meaningful participation.
	MinBudget float64
	// OverpaymentRatio marks the winner's-curse zone: block when the current
	// bid exceeds this multiple of estimated value.
	OverpaymentRatio float64
	// ConcentrationRatio caps how much of the remaining budget a single
	// domain may consume.
	ConcentrationRatio float64
}

// NewSafetyGate returns a gate with the standard thresholds.
func NewSafetyGate() *SafetyGate {
	return &SafetyGate{
		MinBudget:          100.0,
		OverpaymentRatio:   1.30,
		ConcentrationRatio: 0.50,
	}
}

// Block describes a safety rule that fired. Rule is a stable identifier;
// Reason is the human-readable rationale carried into the final decision.
type Block struct {
	Rule   string
	Reason string
}

// Check runs the safety rules in fixed priority order and returns the first
// block, or nil when every rule passes. Later rules are not evaluated once
// one fires.
func (g *SafetyGate) Check(ctx *AuctionContext) *Block {
	if ctx.EstimatedValue <= 0 {
		return &Block{
			Rule: "valuation_validity",
			Reason: fmt.Sprintf(
				"VALUATION INVALID: Estimated value ($%.2f) is invalid or missing. "+
					"Cannot calculate profit margins. Strategy: do_not_bid",
				ctx.EstimatedValue),
		}
	}

	if ctx.BudgetAvailable < g.MinBudget {
		return &Block{
			Rule: "minimum_budget",
			Reason: fmt.Sprintf(
				"MINIMUM BUDGET: Insufficient budget ($%.2f) for meaningful auction "+
					"participation. Minimum required: $%.0f. Strategy: do_not_bid",
				ctx.BudgetAvailable, g.MinBudget),
		}
	}

	overpayThreshold := MulRatio(ctx.EstimatedValue, g.OverpaymentRatio)
	if MoneyGT(ctx.CurrentBid, overpayThreshold) {
		return &Block{
			Rule: "overpayment_protection",
			Reason: fmt.Sprintf(
				"OVERPAYMENT PROTECTION: Current bid ($%.2f) exceeds %.0f%% of estimated "+
					"value ($%.2f). This enters 'winner's curse' territory where profit is "+
					"impossible. Strategy: do_not_bid",
				ctx.CurrentBid, g.OverpaymentRatio*100, ctx.EstimatedValue),
		}
	}

	maxDomainBudget := MulRatio(ctx.BudgetAvailable, g.ConcentrationRatio)
	if MoneyGT(ctx.EstimatedValue, maxDomainBudget) {
		return &Block{
			Rule: "portfolio_concentration",
			Reason: fmt.Sprintf(
				"PORTFOLIO CONCENTRATION: Domain value ($%.2f) would consume >%.0f%% of "+
					"remaining budget ($%.2f). Maximum allowed: $%.2f. This violates "+
					"diversification principles. Strategy: do_not_bid",
				ctx.EstimatedValue, g.ConcentrationRatio*100, ctx.BudgetAvailable, maxDomainBudget),
		}
	}

	return nil
}

// Decision converts a block into the terminal FinalDecision for the run.
func (b *Block) Decision() FinalDecision {
	return FinalDecision{
		Strategy:             StrategyDoNotBid,
		RecommendedBidAmount: 0,
		ShouldIncreaseProxy:  false,
		MaxBudgetForDomain:   0,
		RiskLevel:            RiskHigh,
		Confidence:           safetyBlockConfidence,
		Reasoning:            b.Reason,
		DecisionSource:       SourceSafetyBlock,
	}
}
