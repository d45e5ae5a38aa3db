package validation

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

func testContext() core.AuctionContext {
	return core.AuctionContext{
		Domain:          "example.com",
		Platform:        core.PlatformGoDaddy,
		EstimatedValue:  1000,
		CurrentBid:      300,
		NumBidders:      2,
		HoursRemaining:  5,
		BudgetAvailable: 5000,
	}
}

// goodReasoning covers the financial, risk, competition, and strategy
// concept groups and is comfortably over the soft length threshold.
const goodReasoning = "Profit margin analysis shows strong upside with limited downside risk. " +
	"Competition from two bidders is manageable, and the proxy strategy caps exposure " +
	"well inside the budget while protecting against escalation."

func goodDecision() core.StrategyDecision {
	return core.StrategyDecision{
		Strategy:             core.StrategyProxyMax,
		RecommendedBidAmount: 700,
		Confidence:           0.75,
		RiskLevel:            core.RiskMedium,
		Reasoning:            goodReasoning,
		MaxBudgetForDomain:   700,
	}
}

func newTestValidator() *Validator {
	return New(zerolog.Nop())
}

func TestValidator_AcceptsSoundProposal(t *testing.T) {
	decision := goodDecision()
	ctx := testContext()

	result := newTestValidator().Validate(&decision, &ctx)
	check.True(t, result.IsValid())
	check.Equal(t, 0, len(result.Warnings))
}

func TestValidator_HardFailures(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*core.StrategyDecision, *core.AuctionContext)
		wantMarker string
	}{
		{
			name: "bid above ceiling",
			mutate: func(d *core.StrategyDecision, c *core.AuctionContext) {
				d.RecommendedBidAmount = 1100 // ceiling is 100% of 1000
			},
			wantMarker: "BID CEILING VIOLATION",
		},
		{
			name: "bid above budget",
			mutate: func(d *core.StrategyDecision, c *core.AuctionContext) {
				c.BudgetAvailable = 600
			},
			wantMarker: "BUDGET VIOLATION",
		},
		{
			name: "do_not_bid with nonzero amount",
			mutate: func(d *core.StrategyDecision, c *core.AuctionContext) {
				d.Strategy = core.StrategyDoNotBid
				d.RecommendedBidAmount = 100
			},
			wantMarker: "LOGICAL INCONSISTENCY",
		},
		{
			name: "reasoning below hard minimum",
			mutate: func(d *core.StrategyDecision, c *core.AuctionContext) {
				d.Reasoning = "too short"
			},
			wantMarker: "REASONING INSUFFICIENT",
		},
		{
			name: "aggressive_early below value floor",
			mutate: func(d *core.StrategyDecision, c *core.AuctionContext) {
				d.Strategy = core.StrategyAggressiveEarly
				d.RecommendedBidAmount = 150
				c.EstimatedValue = 180
				c.BudgetAvailable = 5000
			},
			wantMarker: "STRATEGY CONTEXT MISMATCH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := goodDecision()
			ctx := testContext()
			tt.mutate(&decision, &ctx)

			result := newTestValidator().Validate(&decision, &ctx)
			check.False(t, result.IsValid())
			assert.Equal(t, 1, len(result.Errors))
			check.True(t, strings.Contains(result.Errors[0], tt.wantMarker))
		})
	}
}

func TestValidator_HardFailureShortCircuits(t *testing.T) {
	// Both ceiling and budget are violated; only the ceiling error is
	// reported and no soft checks run.
	decision := goodDecision()
	decision.RecommendedBidAmount = 9000
	decision.Reasoning = "short" // would also fail the length check
	ctx := testContext()
	ctx.BudgetAvailable = 500

	result := newTestValidator().Validate(&decision, &ctx)
	assert.Equal(t, 1, len(result.Errors))
	check.True(t, strings.Contains(result.Errors[0], "BID CEILING VIOLATION"))
	check.Equal(t, 0, len(result.Warnings))
}

func TestValidator_ConfidenceBands(t *testing.T) {
	tests := []struct {
		name       string
		risk       core.RiskLevel
		confidence float64
		wantValid  bool
		wantWarns  int
	}{
		{"low risk high confidence passes", core.RiskLow, 0.80, true, 0},
		{"low risk slightly under band warns", core.RiskLow, 0.40, true, 1},
		{"low risk far under band rejects", core.RiskLow, 0.10, false, 0},
		{"medium risk at floor passes", core.RiskMedium, 0.35, true, 0},
		{"medium risk slightly under warns", core.RiskMedium, 0.20, true, 1},
		{"high risk under cap passes", core.RiskHigh, 0.60, true, 0},
		{"high risk slightly over cap warns", core.RiskHigh, 0.95, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := goodDecision()
			decision.RiskLevel = tt.risk
			decision.Confidence = tt.confidence
			ctx := testContext()

			result := newTestValidator().Validate(&decision, &ctx)
			check.Equal(t, tt.wantValid, result.IsValid())
			check.Equal(t, tt.wantWarns, len(result.Warnings))
		})
	}
}

func TestValidator_SoftChecksWarnWithoutRejecting(t *testing.T) {
	decision := goodDecision()
	// 50-100 chars, and covering fewer than 2 concept groups.
	decision.Reasoning = "This explanation says very little about anything that matters here."
	ctx := testContext()

	result := newTestValidator().Validate(&decision, &ctx)
	check.True(t, result.IsValid())
	check.Equal(t, 2, len(result.Warnings))
}

func TestValidator_StrategyContextWarnings(t *testing.T) {
	t.Run("closeout with heavy competition", func(t *testing.T) {
		decision := goodDecision()
		decision.Strategy = core.StrategyWaitForCloseout
		ctx := testContext()
		ctx.NumBidders = 5

		result := newTestValidator().Validate(&decision, &ctx)
		check.True(t, result.IsValid())
		assert.Equal(t, 1, len(result.Warnings))
		check.True(t, strings.Contains(result.Warnings[0], "wait_for_closeout"))
	})

	t.Run("snipe with long time remaining", func(t *testing.T) {
		decision := goodDecision()
		decision.Strategy = core.StrategyLastMinuteSnipe
		ctx := testContext()
		ctx.HoursRemaining = 24

		result := newTestValidator().Validate(&decision, &ctx)
		check.True(t, result.IsValid())
		assert.Equal(t, 1, len(result.Warnings))
		check.True(t, strings.Contains(result.Warnings[0], "last_minute_snipe"))
	})
}

func TestValidator_ConfigurableCeiling(t *testing.T) {
	v := newTestValidator()
	v.CeilingRatio = 0.80

	decision := goodDecision()
	decision.RecommendedBidAmount = 850 // over 80% of 1000
	ctx := testContext()

	result := v.Validate(&decision, &ctx)
	check.False(t, result.IsValid())
	check.True(t, strings.Contains(result.Errors[0], "80%"))
}

func TestResult_Message(t *testing.T) {
	r := Result{
		Errors:   []string{"hard failure"},
		Warnings: []string{"advisory"},
	}
	check.Equal(t, "hard failure; warning: advisory", r.Message())
}
