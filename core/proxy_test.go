package core

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestProxyLogicEngine_Analyze_InitialSetup(t *testing.T) {
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 300
	ctx.YourCurrentProxy = 0
	ctx.BudgetAvailable = 5000

	analysis := NewProxyLogicEngine().Analyze(&ctx)

	check.Equal(t, ProxyIncrease, analysis.ProxyAction)
	check.True(t, analysis.ShouldIncreaseProxy)
	assert.NotNil(t, analysis.NewProxyMax)
	check.Equal(t, 800.0, *analysis.NewProxyMax)
	assert.NotNil(t, analysis.NextBidAmount)
	check.Equal(t, 305.0, *analysis.NextBidAmount) // $5 GoDaddy increment
	check.Equal(t, 800.0, analysis.MaxBudgetForDomain)
}

func TestProxyLogicEngine_Analyze_InitialSetupBudgetBound(t *testing.T) {
	// Budget tighter than the safe max caps the new proxy.
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 100
	ctx.YourCurrentProxy = 0
	ctx.BudgetAvailable = 600

	analysis := NewProxyLogicEngine().Analyze(&ctx)

	check.Equal(t, ProxyIncrease, analysis.ProxyAction)
	assert.NotNil(t, analysis.NewProxyMax)
	check.Equal(t, 600.0, *analysis.NewProxyMax)
}

func TestProxyLogicEngine_Analyze_AcceptLoss(t *testing.T) {
	tests := []struct {
		name       string
		currentBid float64
	}{
		{"bid exactly at safe max", 800},
		{"bid above safe max", 950},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := baseContext()
			ctx.EstimatedValue = 800
			ctx.CurrentBid = tt.currentBid
			ctx.YourCurrentProxy = 700

			analysis := NewProxyLogicEngine().Analyze(&ctx)

			check.Equal(t, ProxyAcceptLoss, analysis.ProxyAction)
			check.False(t, analysis.ShouldIncreaseProxy)
			check.Nil(t, analysis.NewProxyMax)
			check.Nil(t, analysis.NextBidAmount)
			check.Equal(t, 0.0, analysis.MaxBudgetForDomain)
		})
	}
}

func TestProxyLogicEngine_Analyze_IncreaseWithHeadroom(t *testing.T) {
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 400
	ctx.YourCurrentProxy = 500 // potential 800 gains 300, well over 3 increments
	ctx.BudgetAvailable = 5000

	analysis := NewProxyLogicEngine().Analyze(&ctx)

	check.Equal(t, ProxyIncrease, analysis.ProxyAction)
	assert.NotNil(t, analysis.NewProxyMax)
	check.Equal(t, 800.0, *analysis.NewProxyMax)
	assert.NotNil(t, analysis.NextBidAmount)
	check.Equal(t, 405.0, *analysis.NextBidAmount)
}

func TestProxyLogicEngine_Analyze_MaintainWithoutHeadroom(t *testing.T) {
	// Potential new proxy (800) gains only $10 over the standing proxy,
	// which is under the 3-increment threshold.
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 400
	ctx.YourCurrentProxy = 790
	ctx.BudgetAvailable = 5000

	analysis := NewProxyLogicEngine().Analyze(&ctx)

	check.Equal(t, ProxyMaintain, analysis.ProxyAction)
	check.False(t, analysis.ShouldIncreaseProxy)
	check.Nil(t, analysis.NewProxyMax)
	check.Nil(t, analysis.NextBidAmount)
	check.Equal(t, 790.0, analysis.MaxBudgetForDomain)
}

func TestProxyLogicEngine_Apply_AcceptLossOverridesStrategy(t *testing.T) {
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 900
	ctx.YourCurrentProxy = 700

	decision := StrategyDecision{
		Strategy:             StrategyProxyMax,
		RecommendedBidAmount: 750,
		Confidence:           0.9,
		RiskLevel:            RiskLow,
		Reasoning:            "Original strategy reasoning with profit and competition analysis.",
		MaxBudgetForDomain:   750,
	}

	updated, analysis := NewProxyLogicEngine().Apply(&ctx, decision)

	check.Equal(t, ProxyAcceptLoss, analysis.ProxyAction)
	check.Equal(t, StrategyDoNotBid, updated.Strategy)
	check.Equal(t, 0.0, updated.RecommendedBidAmount)
	check.Equal(t, 0.5, updated.Confidence)
	check.Equal(t, RiskHigh, updated.RiskLevel)
	// The override appends, never replaces.
	check.True(t, strings.HasPrefix(updated.Reasoning, "Original strategy reasoning"))
	check.True(t, strings.Contains(updated.Reasoning, "PROXY ANALYSIS OVERRIDE"))
}

func TestProxyLogicEngine_Apply_KeepsLowConfidenceOnOverride(t *testing.T) {
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 900
	ctx.YourCurrentProxy = 700

	decision := StrategyDecision{
		Strategy:             StrategyProxyMax,
		RecommendedBidAmount: 750,
		Confidence:           0.3,
		RiskLevel:            RiskMedium,
		Reasoning:            "Low-confidence original reasoning covering risk and competition factors.",
		MaxBudgetForDomain:   750,
	}

	updated, _ := NewProxyLogicEngine().Apply(&ctx, decision)
	check.Equal(t, 0.3, updated.Confidence) // capped at 0.5, not raised to it
}

func TestProxyLogicEngine_Apply_NonOverrideKeepsStrategy(t *testing.T) {
	ctx := baseContext()
	ctx.EstimatedValue = 800
	ctx.CurrentBid = 300
	ctx.YourCurrentProxy = 0

	decision := StrategyDecision{
		Strategy:             StrategyProxyMax,
		RecommendedBidAmount: 750,
		Confidence:           0.8,
		RiskLevel:            RiskMedium,
		Reasoning:            "Strategy reasoning discussing profit potential and competition level.",
		MaxBudgetForDomain:   750,
	}

	updated, analysis := NewProxyLogicEngine().Apply(&ctx, decision)

	check.Equal(t, ProxyIncrease, analysis.ProxyAction)
	check.Equal(t, StrategyProxyMax, updated.Strategy)
	check.Equal(t, 0.8, updated.Confidence)
	assert.NotNil(t, updated.ShouldIncreaseProxy)
	check.True(t, *updated.ShouldIncreaseProxy)
	check.Equal(t, analysis.MaxBudgetForDomain, updated.MaxBudgetForDomain)
}

func TestPlatformMinIncrement(t *testing.T) {
	tests := []struct {
		name       string
		platform   Platform
		currentBid float64
		expected   float64
	}{
		{"godaddy flat", PlatformGoDaddy, 500, 5.0},
		{"namejet flat", PlatformNameJet, 2000, 5.0},
		{"dynadot low bid uses floor", PlatformDynadot, 50, 5.0},
		{"dynadot high bid uses 5%", PlatformDynadot, 400, 20.0},
		{"dynadot at crossover", PlatformDynadot, 100, 5.0},
		{"unknown platform defaults", Platform("sedo"), 1000, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.expected, tt.platform.MinIncrement(tt.currentBid))
		})
	}
}
