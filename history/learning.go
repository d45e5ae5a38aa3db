package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

// Ratio bounds for SuggestSafeMaxRatio. Whatever the history says, the
// dynamic ratio never leaves this band.
const (
	minSafeMaxRatio = 0.55
	maxSafeMaxRatio = 0.80
)

const similarAuctionLimit = 10

// Insights summarizes a set of similar past auctions.
type Insights struct {
	HasData            bool                  `json:"has_data"`
	TotalSimilar       int                   `json:"total_similar,omitempty"`
	WinRate            float64               `json:"win_rate,omitempty"`
	AvgFinalPriceRatio float64               `json:"avg_final_price_ratio,omitempty"`
	PriceRatioInsight  string                `json:"price_ratio_insight,omitempty"`
	WinningStrategies  map[core.Strategy]int `json:"winning_strategies,omitempty"`
}

// HistoricalContext is everything the history knows that is relevant to one
// auction. It renders into a prompt section for the oracle.
type HistoricalContext struct {
	SimilarAuctionsCount int                                   `json:"similar_auctions_count"`
	Insights             Insights                              `json:"insights"`
	StrategyStats        map[core.Strategy]StrategyPerformance `json:"strategy_performance,omitempty"`
	BestStrategy         core.Strategy                         `json:"historically_best_strategy,omitempty"`
	ValueTier            core.ValueTier                        `json:"value_tier"`
}

// Learning derives decision-improving signals from stored history.
type Learning struct {
	store Store

	// BestStrategyMinSamples is the sample floor before a strategy may be
	// called historically best.
	BestStrategyMinSamples int

	log zerolog.Logger
}

// NewLearning wraps a store.
func NewLearning(store Store, log zerolog.Logger) *Learning {
	return &Learning{
		store:                  store,
		BestStrategyMinSamples: 5,
		log:                    log.With().Str("component", "learning").Logger(),
	}
}

// HistoricalContext gathers similar-auction insights, per-strategy stats,
// and the historically best strategy for the auction's platform and tier.
func (l *Learning) HistoricalContext(ctx context.Context, auctionCtx *core.AuctionContext) (HistoricalContext, error) {
	tier := core.TierFor(auctionCtx.EstimatedValue)

	valueRange := auctionCtx.EstimatedValue * 0.3
	similar, err := l.store.SimilarAuctions(ctx, auctionCtx.Platform,
		auctionCtx.EstimatedValue-valueRange, auctionCtx.EstimatedValue+valueRange,
		similarAuctionLimit)
	if err != nil {
		return HistoricalContext{}, fmt.Errorf("similar auctions: %w", err)
	}

	hc := HistoricalContext{
		SimilarAuctionsCount: len(similar),
		Insights:             calculateInsights(similar),
		ValueTier:            tier,
	}

	stats := make(map[core.Strategy]StrategyPerformance)
	for _, strategy := range []core.Strategy{
		core.StrategyProxyMax, core.StrategyLastMinuteSnipe,
		core.StrategyIncrementalTest, core.StrategyWaitForCloseout,
		core.StrategyAggressiveEarly,
	} {
		perf, err := l.store.Performance(ctx, strategy, auctionCtx.Platform, tier)
		if err != nil {
			return HistoricalContext{}, fmt.Errorf("strategy performance: %w", err)
		}
		if perf.TotalUses > 0 {
			stats[strategy] = perf
		}
	}
	if len(stats) > 0 {
		hc.StrategyStats = stats
	}

	best, ok, err := l.store.BestStrategy(ctx, auctionCtx.Platform, tier, l.BestStrategyMinSamples)
	if err != nil {
		return HistoricalContext{}, fmt.Errorf("best strategy: %w", err)
	}
	if ok {
		hc.BestStrategy = best
	}

	return hc, nil
}

func calculateInsights(auctions []AuctionOutcome) Insights {
	if len(auctions) == 0 {
		return Insights{}
	}

	wins := 0
	winningStrategies := make(map[core.Strategy]int)
	var ratioSum float64
	ratioCount := 0
	for _, a := range auctions {
		if a.Result == ResultWon {
			wins++
			winningStrategies[a.StrategyUsed]++
		}
		if a.FinalPrice > 0 && a.EstimatedValue > 0 {
			ratioSum += a.FinalPrice / a.EstimatedValue
			ratioCount++
		}
	}

	insights := Insights{
		HasData:      true,
		TotalSimilar: len(auctions),
		WinRate:      float64(wins) / float64(len(auctions)),
	}
	if ratioCount > 0 {
		insights.AvgFinalPriceRatio = ratioSum / float64(ratioCount)
		insights.PriceRatioInsight = fmt.Sprintf(
			"Similar domains typically sold for %.0f%% of estimated value.",
			insights.AvgFinalPriceRatio*100)
	}
	if wins > 0 {
		insights.WinningStrategies = winningStrategies
	}
	return insights
}

// SuggestSafeMaxRatio nudges the base safe-max ratio by what similar
// auctions actually sold for and how often we won them. The result is
// clamped to [0.55, 0.80].
func (l *Learning) SuggestSafeMaxRatio(ctx context.Context, auctionCtx *core.AuctionContext, baseRatio float64) (float64, error) {
	hc, err := l.HistoricalContext(ctx, auctionCtx)
	if err != nil {
		return baseRatio, err
	}

	ratio := baseRatio
	if hc.Insights.HasData {
		if hc.Insights.AvgFinalPriceRatio > 0 {
			switch {
			case hc.Insights.AvgFinalPriceRatio < 0.60:
				ratio -= 0.05
			case hc.Insights.AvgFinalPriceRatio > 0.75:
				ratio += 0.03
			}
		}
		switch {
		case hc.Insights.WinRate < 0.3:
			ratio += 0.05
		case hc.Insights.WinRate > 0.8:
			ratio -= 0.03
		}
	}

	if ratio < minSafeMaxRatio {
		ratio = minSafeMaxRatio
	}
	if ratio > maxSafeMaxRatio {
		ratio = maxSafeMaxRatio
	}
	if ratio != baseRatio {
		l.log.Debug().
			Float64("base", baseRatio).
			Float64("suggested", ratio).
			Str("domain", auctionCtx.Domain).
			Msg("dynamic safe-max ratio")
	}
	return ratio, nil
}

// PromptSection renders the historical context as a prompt fragment for the
// oracle, or "" when there is nothing worth saying.
func (hc *HistoricalContext) PromptSection() string {
	if hc.SimilarAuctionsCount == 0 && len(hc.StrategyStats) == 0 && hc.BestStrategy == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("**Historical Performance**:\n")
	if hc.SimilarAuctionsCount > 0 {
		fmt.Fprintf(&sb, "- Similar past auctions: %d, our win rate: %.0f%%\n",
			hc.SimilarAuctionsCount, hc.Insights.WinRate*100)
	}
	if hc.Insights.PriceRatioInsight != "" {
		fmt.Fprintf(&sb, "- %s\n", hc.Insights.PriceRatioInsight)
	}
	for strategy, perf := range hc.StrategyStats {
		fmt.Fprintf(&sb, "- %s: %d uses, %.0f%% win rate\n",
			strategy, perf.TotalUses, perf.WinRate()*100)
	}
	if hc.BestStrategy != "" {
		fmt.Fprintf(&sb, "- Historically best strategy for this context: %s\n", hc.BestStrategy)
	}
	return strings.TrimRight(sb.String(), "\n")
}
