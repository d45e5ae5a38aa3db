package core

import (
	"fmt"
)

// OpponentSignals carries the enrichment flags the fallback engine consumes.
// The pipeline maps market-intelligence output onto this so the engine stays
// a pure function of plain inputs.
type OpponentSignals struct {
	Found      bool
	Aggressive bool
}

// aggressiveOpponentDiscount shaves the safe max when enrichment marks the
// opponent as aggressive.
const aggressiveOpponentDiscount = 0.95

// RuleFallbackEngine selects a strategy deterministically, with no external
// dependency. It is used whenever the oracle fails or its proposal is
// rejected, and doubles as the baseline for offline backtesting: identical
// inputs always yield an identical decision.
type RuleFallbackEngine struct {
	// SafeMaxRatio is the fraction of estimated value treated as the maximum
	// biddable amount.
	SafeMaxRatio float64
}

// NewRuleFallbackEngine returns an engine with the default safe-max ratio.
func NewRuleFallbackEngine() *RuleFallbackEngine {
	return &RuleFallbackEngine{SafeMaxRatio: 1.0}
}

// SafeMax computes the maximum biddable amount for an estimated value,
// discounted when the opponent cluster is aggressive.
func (e *RuleFallbackEngine) SafeMax(estimatedValue float64, opp OpponentSignals) float64 {
	safeMax := MulRatio(estimatedValue, e.SafeMaxRatio)
	if opp.Found && opp.Aggressive {
		safeMax = MulRatio(safeMax, aggressiveOpponentDiscount)
	}
	return safeMax
}

// Decide routes to the tier-specific decision tree.
func (e *RuleFallbackEngine) Decide(ctx *AuctionContext, opp OpponentSignals) StrategyDecision {
	switch TierFor(ctx.EstimatedValue) {
	case TierHigh:
		return e.highValueStrategy(ctx, opp)
	case TierMedium:
		return e.mediumValueStrategy(ctx, opp)
	default:
		return e.lowValueStrategy(ctx, opp)
	}
}

// highValueStrategy handles domains worth $1000 and above. Conservative:
// avoid escalation, protect margins.
func (e *RuleFallbackEngine) highValueStrategy(ctx *AuctionContext, opp OpponentSignals) StrategyDecision {
	safeMax := e.SafeMax(ctx.EstimatedValue, opp)

	if ctx.NumBidders == 0 && ctx.HoursRemaining < 1.0 {
		return StrategyDecision{
			Strategy:             StrategyWaitForCloseout,
			RecommendedBidAmount: safeMax,
			Confidence:           0.85,
			RiskLevel:            RiskLow,
			Reasoning: fmt.Sprintf(
				"HIGH-VALUE CONSERVATIVE: Domain worth $%.2f. No bidders with <1 hour "+
					"remaining - wait for closeout to minimize competition. Safe max: $%.2f. "+
					"This preserves the budget cap while avoiding premature bidding that "+
					"could attract competition.",
				ctx.EstimatedValue, safeMax),
			MaxBudgetForDomain: safeMax,
		}
	}

	if ctx.BidderAnalysis.BotDetected {
		return StrategyDecision{
			Strategy:             StrategyLastMinuteSnipe,
			RecommendedBidAmount: safeMax,
			Confidence:           0.80,
			RiskLevel:            RiskMedium,
			Reasoning: fmt.Sprintf(
				"HIGH-VALUE BOT COUNTER: Bot detected with aggression score %.1f/10. "+
					"Using last-minute snipe on %s to minimize the bot reaction window. "+
					"Safe max: $%.2f. Bots excel at rapid proxy wars but struggle with "+
					"unpredictable timing.",
				ctx.BidderAnalysis.AggressionScore, ctx.Platform, safeMax),
			MaxBudgetForDomain: safeMax,
		}
	}

	if ctx.NumBidders <= 2 {
		return StrategyDecision{
			Strategy:             StrategyProxyMax,
			RecommendedBidAmount: safeMax,
			Confidence:           0.75,
			RiskLevel:            RiskMedium,
			Reasoning: fmt.Sprintf(
				"HIGH-VALUE BALANCED: %d bidders present. Setting conservative proxy max "+
					"at $%.2f. This allows participation while protecting against "+
					"escalation. Platform %s rules respected for auto-bidding.",
				ctx.NumBidders, safeMax, ctx.Platform),
			MaxBudgetForDomain: safeMax,
		}
	}

	return StrategyDecision{
		Strategy:             StrategyLastMinuteSnipe,
		RecommendedBidAmount: safeMax,
		Confidence:           0.70,
		RiskLevel:            RiskHigh,
		Reasoning: fmt.Sprintf(
			"HIGH-VALUE COMPETITION: %d bidders create high risk. Using sniping "+
				"strategy to avoid getting caught in a bidding war. Safe max: $%.2f "+
				"ensures profit protection. Conservative timing accounts for %s "+
				"platform rules.",
			ctx.NumBidders, safeMax, ctx.Platform),
		MaxBudgetForDomain: safeMax,
	}
}

// mediumValueStrategy handles domains worth $100-$999.99. Balanced, with
// flexibility based on competition and platform timing rules.
func (e *RuleFallbackEngine) mediumValueStrategy(ctx *AuctionContext, opp OpponentSignals) StrategyDecision {
	safeMax := e.SafeMax(ctx.EstimatedValue, opp)

	if ctx.Platform.HasLateExtension() && ctx.HoursRemaining < 1.0 {
		return StrategyDecision{
			Strategy:             StrategyLastMinuteSnipe,
			RecommendedBidAmount: safeMax,
			Confidence:           0.80,
			RiskLevel:            RiskMedium,
			Reasoning: fmt.Sprintf(
				"MEDIUM-VALUE TIMING: %s auction with <1 hour remaining. Sniping "+
					"strategy respects the late-bid extension rule to avoid "+
					"auto-extensions. Safe max: $%.2f. This timing prevents unnecessary "+
					"extensions while maintaining the profit margin.",
				ctx.Platform, safeMax),
			MaxBudgetForDomain: safeMax,
		}
	}

	if ctx.NumBidders > 5 {
		testBid := MulRatio(safeMax, 0.5)
		return StrategyDecision{
			Strategy:             StrategyIncrementalTest,
			RecommendedBidAmount: testBid,
			Confidence:           0.65,
			RiskLevel:            RiskMedium,
			Reasoning: fmt.Sprintf(
				"MEDIUM-VALUE COMPETITION: %d bidders indicate high interest. Using "+
					"incremental testing starting at $%.2f to gauge competition without "+
					"overcommitting. Will escalate to the full safe max ($%.2f) if needed.",
				ctx.NumBidders, testBid, safeMax),
			MaxBudgetForDomain: safeMax,
		}
	}

	return StrategyDecision{
		Strategy:             StrategyProxyMax,
		RecommendedBidAmount: safeMax,
		Confidence:           0.75,
		RiskLevel:            RiskMedium,
		Reasoning: fmt.Sprintf(
			"MEDIUM-VALUE BALANCED: %d bidders, domain worth $%.2f. Setting proxy max "+
				"at $%.2f (max budget). Platform %s auto-bidding will handle "+
				"incremental competition.",
			ctx.NumBidders, ctx.EstimatedValue, safeMax, ctx.Platform),
		MaxBudgetForDomain: safeMax,
	}
}

// lowValueStrategy handles domains under $100. Aggressive testing or wait
// for closeout.
func (e *RuleFallbackEngine) lowValueStrategy(ctx *AuctionContext, opp OpponentSignals) StrategyDecision {
	safeMax := e.SafeMax(ctx.EstimatedValue, opp)

	if ctx.NumBidders == 0 {
		return StrategyDecision{
			Strategy:             StrategyWaitForCloseout,
			RecommendedBidAmount: safeMax,
			Confidence:           0.90,
			RiskLevel:            RiskLow,
			Reasoning: fmt.Sprintf(
				"LOW-VALUE CLOSEOUT: No bidders on a $%.2f domain. Waiting for closeout "+
					"maximizes profit potential with zero risk from competition. Safe max "+
					"ready: $%.2f if competition appears. This is optimal for low-value "+
					"domains with no interest.",
				ctx.EstimatedValue, safeMax),
			MaxBudgetForDomain: safeMax,
		}
	}

	testBid := MoneyMin(safeMax, 50.0)
	return StrategyDecision{
		Strategy:             StrategyIncrementalTest,
		RecommendedBidAmount: testBid,
		Confidence:           0.70,
		RiskLevel:            RiskLow,
		Reasoning: fmt.Sprintf(
			"LOW-VALUE TESTING: %d bidders on a low-value domain. Using incremental "+
				"testing starting at $%.2f. Safe max: $%.2f (max budget). Low-value "+
				"domains allow aggressive testing to find the winning price.",
			ctx.NumBidders, testBid, safeMax),
		MaxBudgetForDomain: safeMax,
	}
}
