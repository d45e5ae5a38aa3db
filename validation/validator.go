package validation

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

// conceptGroups are the vocabularies substantive reasoning is expected to
// draw from. A proposal should cover at least minConceptGroups of them.
var conceptGroups = map[string][]string{
	"financial":   {"profit", "margin", "value", "price", "budget"},
	"risk":        {"risk", "safe", "protect", "loss"},
	"competition": {"competition", "bidder", "opponent", "bot"},
	"strategy":    {"strategy", "snipe", "proxy", "timing", "closeout"},
}

const minConceptGroups = 2

// riskConfidenceBand is the widened acceptance band for one risk level.
// Low and medium risk set floors; high risk sets a cap.
type riskConfidenceBand struct {
	minConfidence float64
	maxConfidence float64
}

var riskBands = map[core.RiskLevel]riskConfidenceBand{
	core.RiskLow:    {minConfidence: 0.50, maxConfidence: 1.00},
	core.RiskMedium: {minConfidence: 0.35, maxConfidence: 1.00},
	core.RiskHigh:   {minConfidence: 0.00, maxConfidence: 0.80},
}

// Validator applies tiered acceptance rules to oracle proposals.
type Validator struct {
	// CeilingRatio caps the recommended bid at this fraction of estimated
	// value. Policy, not precedent: older revisions of the rule set used
	// 0.80, the current default is 1.00.
	CeilingRatio float64
	// MinReasoningChars is the hard floor on reasoning length.
	MinReasoningChars int
	// SoftReasoningChars is the length under which reasoning draws a
	// brevity warning.
	SoftReasoningChars int
	// AggressiveEarlyFloor is the minimum estimated value at which
	// aggressive_early is a sane strategy.
	AggressiveEarlyFloor float64
	// EscalationMargin is how far outside a confidence band a proposal may
	// sit before the soft misalignment becomes a hard failure.
	EscalationMargin float64
	// MaxCloseoutBidders is the competition level above which
	// wait_for_closeout draws a warning.
	MaxCloseoutBidders int
	// MaxSnipeHours is the remaining time above which last_minute_snipe
	// draws a warning.
	MaxSnipeHours float64

	log zerolog.Logger
}

// New returns a Validator with the standard thresholds.
func New(log zerolog.Logger) *Validator {
	return &Validator{
		CeilingRatio:         1.00,
		MinReasoningChars:    50,
		SoftReasoningChars:   100,
		AggressiveEarlyFloor: 200,
		EscalationMargin:     0.30,
		MaxCloseoutBidders:   3,
		MaxSnipeHours:        2,
		log:                  log.With().Str("component", "validator").Logger(),
	}
}

// Validate runs all checks on a proposal. Hard checks run first, in priority
// order, and short-circuit: the first hard failure is returned alone. Soft
// checks run only when every hard check passed.
func (v *Validator) Validate(decision *core.StrategyDecision, ctx *core.AuctionContext) Result {
	var result Result

	if msg := v.checkBidCeiling(decision, ctx); msg != "" {
		result.addError(msg)
		return result
	}
	if msg := v.checkBudget(decision, ctx); msg != "" {
		result.addError(msg)
		return result
	}
	if msg := v.checkDoNotBidConsistency(decision); msg != "" {
		result.addError(msg)
		return result
	}
	if msg := v.checkReasoningLength(decision); msg != "" {
		result.addError(msg)
		return result
	}
	if msg := v.checkAggressiveEarlyFloor(decision, ctx); msg != "" {
		result.addError(msg)
		return result
	}

	v.checkConfidenceAlignment(decision, &result)
	v.checkReasoningDepth(decision, &result)
	v.checkStrategyContextFit(decision, ctx, &result)

	for _, w := range result.Warnings {
		v.log.Warn().
			Str("domain", ctx.Domain).
			Str("strategy", string(decision.Strategy)).
			Msg(w)
	}

	return result
}

func (v *Validator) checkBidCeiling(decision *core.StrategyDecision, ctx *core.AuctionContext) string {
	ceiling := core.MulRatio(ctx.EstimatedValue, v.CeilingRatio)
	if core.MoneyGT(decision.RecommendedBidAmount, ceiling) {
		return fmt.Sprintf(
			"BID CEILING VIOLATION: Recommended bid ($%.2f) exceeds %.0f%% of estimated value. Maximum allowed: $%.2f",
			decision.RecommendedBidAmount, v.CeilingRatio*100, ceiling)
	}
	return ""
}

func (v *Validator) checkBudget(decision *core.StrategyDecision, ctx *core.AuctionContext) string {
	if core.MoneyGT(decision.RecommendedBidAmount, ctx.BudgetAvailable) {
		return fmt.Sprintf(
			"BUDGET VIOLATION: Recommended bid ($%.2f) exceeds available budget ($%.2f). Cannot execute this strategy.",
			decision.RecommendedBidAmount, ctx.BudgetAvailable)
	}
	return ""
}

func (v *Validator) checkDoNotBidConsistency(decision *core.StrategyDecision) string {
	if decision.Strategy == core.StrategyDoNotBid && decision.RecommendedBidAmount > 0 {
		return "LOGICAL INCONSISTENCY: Strategy is 'do_not_bid' but recommended_bid_amount > 0. " +
			"Cannot bid if the strategy is to not participate."
	}
	return ""
}

func (v *Validator) checkReasoningLength(decision *core.StrategyDecision) string {
	if len(decision.Reasoning) < v.MinReasoningChars {
		return fmt.Sprintf(
			"REASONING INSUFFICIENT: Explanation too brief (%d chars). Minimum required: %d characters.",
			len(decision.Reasoning), v.MinReasoningChars)
	}
	return ""
}

func (v *Validator) checkAggressiveEarlyFloor(decision *core.StrategyDecision, ctx *core.AuctionContext) string {
	if decision.Strategy == core.StrategyAggressiveEarly && ctx.EstimatedValue < v.AggressiveEarlyFloor {
		return fmt.Sprintf(
			"STRATEGY CONTEXT MISMATCH: 'aggressive_early' selected for a low-value domain ($%.2f). "+
				"This strategy is for must-have domains only.",
			ctx.EstimatedValue)
	}
	return ""
}

// checkConfidenceAlignment verifies confidence sits inside the widened band
// for the declared risk level. Small deviations warn; deviations beyond the
// escalation margin reject.
func (v *Validator) checkConfidenceAlignment(decision *core.StrategyDecision, result *Result) {
	band, ok := riskBands[decision.RiskLevel]
	if !ok {
		return
	}

	var deviation float64
	switch {
	case decision.Confidence < band.minConfidence:
		deviation = band.minConfidence - decision.Confidence
	case decision.Confidence > band.maxConfidence:
		deviation = decision.Confidence - band.maxConfidence
	default:
		return
	}

	msg := fmt.Sprintf(
		"CONFIDENCE MISMATCH: Risk level '%s' expects confidence within %.2f-%.2f, got %.2f. "+
			"This suggests a miscalibrated risk assessment.",
		decision.RiskLevel, band.minConfidence, band.maxConfidence, decision.Confidence)

	if deviation > v.EscalationMargin {
		result.addError(msg)
		return
	}
	result.addWarning(msg)
}

func (v *Validator) checkReasoningDepth(decision *core.StrategyDecision, result *Result) {
	if len(decision.Reasoning) < v.SoftReasoningChars {
		result.addWarning(fmt.Sprintf(
			"REASONING BRIEF: Explanation is only %d characters. Strategy decisions benefit from a fuller rationale.",
			len(decision.Reasoning)))
	}

	reasoning := strings.ToLower(decision.Reasoning)
	covered := 0
	for _, terms := range conceptGroups {
		for _, term := range terms {
			if strings.Contains(reasoning, term) {
				covered++
				break
			}
		}
	}
	if covered < minConceptGroups {
		result.addWarning(fmt.Sprintf(
			"REASONING SUPERFICIAL: Explanation covers only %d of %d concept groups "+
				"(financial, risk, competition, strategy).",
			covered, len(conceptGroups)))
	}
}

func (v *Validator) checkStrategyContextFit(decision *core.StrategyDecision, ctx *core.AuctionContext, result *Result) {
	if decision.Strategy == core.StrategyWaitForCloseout && ctx.NumBidders > v.MaxCloseoutBidders {
		result.addWarning(fmt.Sprintf(
			"STRATEGY CONTEXT: 'wait_for_closeout' selected with %d active bidders. Closeout is unlikely under competition.",
			ctx.NumBidders))
	}

	if decision.Strategy == core.StrategyLastMinuteSnipe && ctx.HoursRemaining > v.MaxSnipeHours {
		result.addWarning(fmt.Sprintf(
			"STRATEGY CONTEXT: 'last_minute_snipe' selected with %.1f hours remaining. "+
				"Early snipes forfeit the timing advantage.",
			ctx.HoursRemaining))
	}
}
