package history

import (
	"context"

	"github.com/cloudx-io/proxypilot/core"
)

// Store is the persistence boundary for auction history. Implementations
// must make RecordOutcome and RecordRound idempotent on their natural keys
// (auction_id, and thread_id+round_number respectively).
type Store interface {
	RecordOutcome(ctx context.Context, outcome *AuctionOutcome) error
	RecordRound(ctx context.Context, round *AuctionRound) error

	// SimilarAuctions returns the most recent outcomes on a platform whose
	// estimated value falls inside [valueMin, valueMax].
	SimilarAuctions(ctx context.Context, platform core.Platform, valueMin, valueMax float64, limit int) ([]AuctionOutcome, error)

	// Performance aggregates outcomes for one strategy. Platform and tier
	// narrow the aggregate when non-zero.
	Performance(ctx context.Context, strategy core.Strategy, platform core.Platform, tier core.ValueTier) (StrategyPerformance, error)

	// BestStrategy returns the highest-win-rate strategy for a platform and
	// value tier, considering only strategies with at least minSamples
	// outcomes. ok is false when no strategy qualifies.
	BestStrategy(ctx context.Context, platform core.Platform, tier core.ValueTier, minSamples int) (strategy core.Strategy, ok bool, err error)

	// RoundsForThread returns all recorded rounds of one auction thread in
	// round order.
	RoundsForThread(ctx context.Context, threadID string) ([]AuctionRound, error)

	Close() error
}
