// Package history persists auction outcomes and per-round decisions, and
// turns them into insights that feed back into future decisions. Writes are
// idempotent upserts on natural keys so at-least-once delivery from the
// caller can never double-count.
package history

import (
	"time"

	"github.com/cloudx-io/proxypilot/core"
)

// Auction results.
const (
	ResultWon       = "won"
	ResultLost      = "lost"
	ResultAbandoned = "abandoned"
)

// AuctionOutcome is the record of one completed auction: the context at
// decision time, the decision taken, and how it ended.
type AuctionOutcome struct {
	AuctionID  string        `json:"auction_id"`
	Domain     string        `json:"domain"`
	Platform   core.Platform `json:"platform"`
	RecordedAt time.Time     `json:"recorded_at"`

	EstimatedValue           float64 `json:"estimated_value"`
	CurrentBidAtDecision     float64 `json:"current_bid_at_decision"`
	FinalPrice               float64 `json:"final_price"`
	NumBidders               int     `json:"num_bidders"`
	HoursRemainingAtDecision float64 `json:"hours_remaining_at_decision"`
	BotDetected              bool    `json:"bot_detected"`

	StrategyUsed   core.Strategy       `json:"strategy_used"`
	RecommendedBid float64             `json:"recommended_bid"`
	DecisionSource core.DecisionSource `json:"decision_source"`
	Confidence     float64             `json:"confidence"`

	Result       string   `json:"result"`
	ProfitMargin *float64 `json:"profit_margin,omitempty"` // only when won
	OpponentHash string   `json:"opponent_hash,omitempty"`
}

// AuctionRound is one decision round within a single auction thread.
type AuctionRound struct {
	ThreadID    string        `json:"thread_id"`
	RoundNumber int           `json:"round_number"`
	Domain      string        `json:"domain"`
	Platform    core.Platform `json:"platform"`

	EstimatedValue       float64             `json:"estimated_value"`
	CurrentBidAtDecision float64             `json:"current_bid_at_decision"`
	StrategyUsed         core.Strategy       `json:"strategy_used"`
	RecommendedBid       float64             `json:"recommended_bid"`
	DecisionSource       core.DecisionSource `json:"decision_source"`
	Confidence           float64             `json:"confidence"`
	ResultRound          string              `json:"result_round"`
	RecordedAt           time.Time           `json:"recorded_at"`
}

// StrategyPerformance aggregates how one strategy has fared. Derived from
// auction_outcomes at query time, never stored.
type StrategyPerformance struct {
	Strategy    core.Strategy `json:"strategy"`
	TotalUses   int           `json:"total_uses"`
	Wins        int           `json:"wins"`
	TotalProfit float64       `json:"total_profit"`
}

// WinRate is wins over uses, zero-safe.
func (p StrategyPerformance) WinRate() float64 {
	if p.TotalUses == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.TotalUses)
}

// AvgProfitPerWin is total profit over wins, zero-safe.
func (p StrategyPerformance) AvgProfitPerWin() float64 {
	if p.Wins == 0 {
		return 0
	}
	return p.TotalProfit / float64(p.Wins)
}
