package history

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

func learningContext() core.AuctionContext {
	return core.AuctionContext{
		Domain:          "example.com",
		Platform:        core.PlatformGoDaddy,
		EstimatedValue:  500,
		CurrentBid:      200,
		NumBidders:      2,
		HoursRemaining:  5,
		BudgetAvailable: 2000,
	}
}

// seedOutcomes writes n outcomes at value 500 with the given number of wins
// and a fixed final-price-to-value ratio.
func seedOutcomes(t *testing.T, store *SQLiteStore, n, wins int, priceRatio float64) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		var o *AuctionOutcome
		if i < wins {
			o = wonOutcome(fmt.Sprintf("seed-%d", i), 0.3)
		} else {
			o = testOutcome(fmt.Sprintf("seed-%d", i))
		}
		o.FinalPrice = 500 * priceRatio
		assert.NoError(t, store.RecordOutcome(ctx, o))
	}
}

func TestLearning_HistoricalContext(t *testing.T) {
	store := newTestStore(t)
	learning := NewLearning(store, zerolog.Nop())
	auctionCtx := learningContext()

	// 6 similar auctions, 4 won, sold around 65% of value.
	seedOutcomes(t, store, 6, 4, 0.65)

	hc, err := learning.HistoricalContext(context.Background(), &auctionCtx)
	assert.NoError(t, err)

	check.Equal(t, 6, hc.SimilarAuctionsCount)
	check.Equal(t, core.TierMedium, hc.ValueTier)
	check.True(t, hc.Insights.HasData)
	check.True(t, hc.Insights.WinRate > 0.66 && hc.Insights.WinRate < 0.67)
	check.True(t, hc.Insights.AvgFinalPriceRatio > 0.64 && hc.Insights.AvgFinalPriceRatio < 0.66)
	check.Equal(t, 4, hc.Insights.WinningStrategies[core.StrategyProxyMax])

	// All seeds used proxy_max with >= 5 samples, so it is the best.
	check.Equal(t, core.StrategyProxyMax, hc.BestStrategy)
	check.Equal(t, 6, hc.StrategyStats[core.StrategyProxyMax].TotalUses)
}

func TestLearning_HistoricalContextEmptyStore(t *testing.T) {
	store := newTestStore(t)
	learning := NewLearning(store, zerolog.Nop())
	auctionCtx := learningContext()

	hc, err := learning.HistoricalContext(context.Background(), &auctionCtx)
	assert.NoError(t, err)
	check.Equal(t, 0, hc.SimilarAuctionsCount)
	check.False(t, hc.Insights.HasData)
	check.Equal(t, core.Strategy(""), hc.BestStrategy)
	check.Equal(t, 0, len(hc.StrategyStats))
	check.Equal(t, "", hc.PromptSection())
}

func TestLearning_SuggestSafeMaxRatio(t *testing.T) {
	tests := []struct {
		name string
		seed func(t *testing.T, store *SQLiteStore)
		base float64
		want float64
	}{
		{
			name: "no history keeps base",
			seed: func(t *testing.T, store *SQLiteStore) {},
			base: 0.70,
			want: 0.70,
		},
		{
			name: "cheap sales lower the ratio",
			// Price ratio 0.50 (< 0.60), win rate 0.5 (neutral).
			seed: func(t *testing.T, store *SQLiteStore) { seedOutcomes(t, store, 6, 3, 0.50) },
			base: 0.70,
			want: 0.65,
		},
		{
			name: "low win rate raises the ratio",
			// Price ratio 0.65 (neutral), win rate 1/6 (< 0.3).
			seed: func(t *testing.T, store *SQLiteStore) { seedOutcomes(t, store, 6, 1, 0.65) },
			base: 0.70,
			want: 0.75,
		},
		{
			name: "clamped at the ceiling",
			// Price ratio 0.80 (> 0.75) pushes 0.78 to 0.81, clamp at 0.80.
			seed: func(t *testing.T, store *SQLiteStore) { seedOutcomes(t, store, 6, 3, 0.80) },
			base: 0.78,
			want: 0.80,
		},
		{
			name: "clamped at the floor",
			// Price ratio 0.50 pushes 0.57 to 0.52, clamp at 0.55.
			seed: func(t *testing.T, store *SQLiteStore) { seedOutcomes(t, store, 6, 3, 0.50) },
			base: 0.57,
			want: 0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			tt.seed(t, store)
			learning := NewLearning(store, zerolog.Nop())
			auctionCtx := learningContext()

			got, err := learning.SuggestSafeMaxRatio(context.Background(), &auctionCtx, tt.base)
			assert.NoError(t, err)
			check.True(t, got > tt.want-0.001 && got < tt.want+0.001)
		})
	}
}

func TestHistoricalContext_PromptSection(t *testing.T) {
	hc := HistoricalContext{
		SimilarAuctionsCount: 6,
		Insights: Insights{
			HasData:            true,
			TotalSimilar:       6,
			WinRate:            0.5,
			AvgFinalPriceRatio: 0.65,
			PriceRatioInsight:  "Similar domains typically sold for 65% of estimated value.",
		},
		StrategyStats: map[core.Strategy]StrategyPerformance{
			core.StrategyProxyMax: {Strategy: core.StrategyProxyMax, TotalUses: 6, Wins: 3},
		},
		BestStrategy: core.StrategyProxyMax,
		ValueTier:    core.TierMedium,
	}

	section := hc.PromptSection()
	check.True(t, strings.Contains(section, "Historical Performance"))
	check.True(t, strings.Contains(section, "Similar past auctions: 6"))
	check.True(t, strings.Contains(section, "sold for 65% of estimated value"))
	check.True(t, strings.Contains(section, "proxy_max: 6 uses, 50% win rate"))
	check.True(t, strings.Contains(section, "best strategy for this context: proxy_max"))
}
