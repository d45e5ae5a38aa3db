package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testOutcome(id string) *AuctionOutcome {
	return &AuctionOutcome{
		AuctionID:                id,
		Domain:                   "example.com",
		Platform:                 core.PlatformGoDaddy,
		RecordedAt:               time.Now().UTC(),
		EstimatedValue:           500,
		CurrentBidAtDecision:     200,
		FinalPrice:               350,
		NumBidders:               2,
		HoursRemainingAtDecision: 5,
		StrategyUsed:             core.StrategyProxyMax,
		RecommendedBid:           350,
		DecisionSource:           core.SourceLLM,
		Confidence:               0.8,
		Result:                   ResultLost,
	}
}

func wonOutcome(id string, margin float64) *AuctionOutcome {
	o := testOutcome(id)
	o.Result = ResultWon
	o.ProfitMargin = &margin
	return o
}

func TestSQLiteStore_RecordOutcomeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	o := wonOutcome("a-1", 0.3)
	o.OpponentHash = "opp-123"
	assert.NoError(t, store.RecordOutcome(ctx, o))

	similar, err := store.SimilarAuctions(ctx, core.PlatformGoDaddy, 400, 600, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(similar))

	got := similar[0]
	check.Equal(t, "a-1", got.AuctionID)
	check.Equal(t, core.PlatformGoDaddy, got.Platform)
	check.Equal(t, 500.0, got.EstimatedValue)
	check.Equal(t, ResultWon, got.Result)
	check.Equal(t, "opp-123", got.OpponentHash)
	assert.NotNil(t, got.ProfitMargin)
	check.Equal(t, 0.3, *got.ProfitMargin)
}

func TestSQLiteStore_SimilarAuctionsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inRange := testOutcome("in-range")
	assert.NoError(t, store.RecordOutcome(ctx, inRange))

	tooCheap := testOutcome("too-cheap")
	tooCheap.EstimatedValue = 50
	assert.NoError(t, store.RecordOutcome(ctx, tooCheap))

	wrongPlatform := testOutcome("wrong-platform")
	wrongPlatform.Platform = core.PlatformDynadot
	assert.NoError(t, store.RecordOutcome(ctx, wrongPlatform))

	similar, err := store.SimilarAuctions(ctx, core.PlatformGoDaddy, 400, 600, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(similar))
	check.Equal(t, "in-range", similar[0].AuctionID)
}

func TestSQLiteStore_SimilarAuctionsRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		o := testOutcome(fmt.Sprintf("a-%d", i))
		o.RecordedAt = base.Add(time.Duration(i) * time.Hour)
		assert.NoError(t, store.RecordOutcome(ctx, o))
	}

	similar, err := store.SimilarAuctions(ctx, core.PlatformGoDaddy, 400, 600, 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(similar))
	check.Equal(t, "a-4", similar[0].AuctionID)
	check.Equal(t, "a-2", similar[2].AuctionID)
}

func TestSQLiteStore_ReplayedOutcomeDoesNotDoubleCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	o := wonOutcome("a-1", 0.3)
	assert.NoError(t, store.RecordOutcome(ctx, o))
	assert.NoError(t, store.RecordOutcome(ctx, o))
	assert.NoError(t, store.RecordOutcome(ctx, o))

	perf, err := store.Performance(ctx, core.StrategyProxyMax, core.PlatformGoDaddy, core.TierMedium)
	assert.NoError(t, err)
	check.Equal(t, 1, perf.TotalUses)
	check.Equal(t, 1, perf.Wins)
	check.True(t, perf.TotalProfit > 104.9 && perf.TotalProfit < 105.1) // 0.3 * 350
}

func TestSQLiteStore_PerformanceAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.RecordOutcome(ctx, wonOutcome("w-1", 0.2)))
	assert.NoError(t, store.RecordOutcome(ctx, wonOutcome("w-2", 0.4)))
	assert.NoError(t, store.RecordOutcome(ctx, testOutcome("l-1")))

	// Different strategy, must not leak in.
	other := testOutcome("s-1")
	other.StrategyUsed = core.StrategyLastMinuteSnipe
	assert.NoError(t, store.RecordOutcome(ctx, other))

	perf, err := store.Performance(ctx, core.StrategyProxyMax, core.PlatformGoDaddy, core.TierMedium)
	assert.NoError(t, err)
	check.Equal(t, 3, perf.TotalUses)
	check.Equal(t, 2, perf.Wins)
	check.True(t, perf.WinRate() > 0.66 && perf.WinRate() < 0.67)
	// 0.2*350 + 0.4*350 = 210
	check.True(t, perf.TotalProfit > 209.9 && perf.TotalProfit < 210.1)
	check.True(t, perf.AvgProfitPerWin() > 104.9 && perf.AvgProfitPerWin() < 105.1)
}

func TestSQLiteStore_PerformanceEmpty(t *testing.T) {
	store := newTestStore(t)

	perf, err := store.Performance(context.Background(), core.StrategyProxyMax, "", "")
	assert.NoError(t, err)
	check.Equal(t, 0, perf.TotalUses)
	check.Equal(t, 0.0, perf.WinRate())
	check.Equal(t, 0.0, perf.AvgProfitPerWin())
}

func TestSQLiteStore_BestStrategy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// proxy_max: 2 of 3 won. last_minute_snipe: 3 of 3 won.
	assert.NoError(t, store.RecordOutcome(ctx, wonOutcome("p-1", 0.2)))
	assert.NoError(t, store.RecordOutcome(ctx, wonOutcome("p-2", 0.2)))
	assert.NoError(t, store.RecordOutcome(ctx, testOutcome("p-3")))
	for i := 0; i < 3; i++ {
		o := wonOutcome(fmt.Sprintf("s-%d", i), 0.3)
		o.StrategyUsed = core.StrategyLastMinuteSnipe
		assert.NoError(t, store.RecordOutcome(ctx, o))
	}

	best, ok, err := store.BestStrategy(ctx, core.PlatformGoDaddy, core.TierMedium, 3)
	assert.NoError(t, err)
	assert.True(t, ok)
	check.Equal(t, core.StrategyLastMinuteSnipe, best)

	// Raising the sample floor above what exists disqualifies everything.
	_, ok, err = store.BestStrategy(ctx, core.PlatformGoDaddy, core.TierMedium, 10)
	assert.NoError(t, err)
	check.False(t, ok)
}

func TestSQLiteStore_BestStrategyEmptyStore(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.BestStrategy(context.Background(), core.PlatformGoDaddy, core.TierHigh, 1)
	assert.NoError(t, err)
	check.False(t, ok)
}

func testRound(threadID string, n int) *AuctionRound {
	return &AuctionRound{
		ThreadID:             threadID,
		RoundNumber:          n,
		Domain:               "example.com",
		Platform:             core.PlatformGoDaddy,
		EstimatedValue:       500,
		CurrentBidAtDecision: float64(100 * n),
		StrategyUsed:         core.StrategyProxyMax,
		RecommendedBid:       350,
		DecisionSource:       core.SourceLLM,
		Confidence:           0.8,
		ResultRound:          "pending",
		RecordedAt:           time.Now().UTC(),
	}
}

func TestSQLiteStore_RoundsForThread(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Insert out of order; reads come back in round order.
	assert.NoError(t, store.RecordRound(ctx, testRound("thread-1", 2)))
	assert.NoError(t, store.RecordRound(ctx, testRound("thread-1", 1)))
	assert.NoError(t, store.RecordRound(ctx, testRound("thread-2", 1)))

	rounds, err := store.RoundsForThread(ctx, "thread-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(rounds))
	check.Equal(t, 1, rounds[0].RoundNumber)
	check.Equal(t, 2, rounds[1].RoundNumber)
}

func TestSQLiteStore_RoundReplayOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := testRound("thread-1", 1)
	assert.NoError(t, store.RecordRound(ctx, r))

	r.ResultRound = "outbid"
	assert.NoError(t, store.RecordRound(ctx, r))

	rounds, err := store.RoundsForThread(ctx, "thread-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rounds))
	check.Equal(t, "outbid", rounds[0].ResultRound)
}
