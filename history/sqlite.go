package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/cloudx-io/proxypilot/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS auction_outcomes (
	auction_id                  TEXT PRIMARY KEY,
	domain                      TEXT NOT NULL,
	platform                    TEXT NOT NULL,
	recorded_at                 TIMESTAMP NOT NULL,
	estimated_value             REAL NOT NULL,
	current_bid_at_decision     REAL NOT NULL,
	final_price                 REAL NOT NULL,
	num_bidders                 INTEGER NOT NULL,
	hours_remaining_at_decision REAL NOT NULL,
	bot_detected                INTEGER NOT NULL,
	strategy_used               TEXT NOT NULL,
	recommended_bid             REAL NOT NULL,
	decision_source             TEXT NOT NULL,
	confidence                  REAL NOT NULL,
	result                      TEXT NOT NULL,
	profit_margin               REAL,
	opponent_hash               TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outcomes_platform_value
	ON auction_outcomes(platform, estimated_value);
CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at
	ON auction_outcomes(recorded_at);

CREATE TABLE IF NOT EXISTS auction_rounds (
	round_key               TEXT PRIMARY KEY,
	thread_id               TEXT NOT NULL,
	round_number            INTEGER NOT NULL,
	domain                  TEXT NOT NULL,
	platform                TEXT NOT NULL,
	estimated_value         REAL NOT NULL,
	current_bid_at_decision REAL NOT NULL,
	strategy_used           TEXT NOT NULL,
	recommended_bid         REAL NOT NULL,
	decision_source         TEXT NOT NULL,
	confidence              REAL NOT NULL,
	result_round            TEXT NOT NULL,
	recorded_at             TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rounds_thread
	ON auction_rounds(thread_id, round_number);
`

// SQLiteStore is the Store implementation over a local sqlite database.
// Safe for concurrent use; WAL mode keeps readers unblocked by writers.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &SQLiteStore{
		db:  db,
		log: log.With().Str("component", "history").Logger(),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordOutcome upserts one completed auction keyed by auction_id. Replays
// overwrite in place.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, o *AuctionOutcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}

	var margin sql.NullFloat64
	if o.ProfitMargin != nil {
		margin = sql.NullFloat64{Float64: *o.ProfitMargin, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_outcomes (
			auction_id, domain, platform, recorded_at, estimated_value,
			current_bid_at_decision, final_price, num_bidders,
			hours_remaining_at_decision, bot_detected, strategy_used,
			recommended_bid, decision_source, confidence, result,
			profit_margin, opponent_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(auction_id) DO UPDATE SET
			domain = excluded.domain,
			platform = excluded.platform,
			recorded_at = excluded.recorded_at,
			estimated_value = excluded.estimated_value,
			current_bid_at_decision = excluded.current_bid_at_decision,
			final_price = excluded.final_price,
			num_bidders = excluded.num_bidders,
			hours_remaining_at_decision = excluded.hours_remaining_at_decision,
			bot_detected = excluded.bot_detected,
			strategy_used = excluded.strategy_used,
			recommended_bid = excluded.recommended_bid,
			decision_source = excluded.decision_source,
			confidence = excluded.confidence,
			result = excluded.result,
			profit_margin = excluded.profit_margin,
			opponent_hash = excluded.opponent_hash`,
		o.AuctionID, o.Domain, string(o.Platform), o.RecordedAt, o.EstimatedValue,
		o.CurrentBidAtDecision, o.FinalPrice, o.NumBidders,
		o.HoursRemainingAtDecision, o.BotDetected, string(o.StrategyUsed),
		o.RecommendedBid, string(o.DecisionSource), o.Confidence, o.Result,
		margin, o.OpponentHash)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", o.AuctionID, err)
	}

	s.log.Debug().
		Str("auction_id", o.AuctionID).
		Str("result", o.Result).
		Msg("outcome recorded")
	return nil
}

// RecordRound upserts one decision round keyed by the thread/round natural
// key digest, so replays after partial failures overwrite in place.
func (s *SQLiteStore) RecordRound(ctx context.Context, r *AuctionRound) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	key := core.ComputeRoundKey(r.ThreadID, r.RoundNumber)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_rounds (
			round_key, thread_id, round_number, domain, platform,
			estimated_value, current_bid_at_decision, strategy_used,
			recommended_bid, decision_source, confidence, result_round,
			recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(round_key) DO UPDATE SET
			domain = excluded.domain,
			platform = excluded.platform,
			estimated_value = excluded.estimated_value,
			current_bid_at_decision = excluded.current_bid_at_decision,
			strategy_used = excluded.strategy_used,
			recommended_bid = excluded.recommended_bid,
			decision_source = excluded.decision_source,
			confidence = excluded.confidence,
			result_round = excluded.result_round,
			recorded_at = excluded.recorded_at`,
		key, r.ThreadID, r.RoundNumber, r.Domain, string(r.Platform),
		r.EstimatedValue, r.CurrentBidAtDecision, string(r.StrategyUsed),
		r.RecommendedBid, string(r.DecisionSource), r.Confidence,
		r.ResultRound, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("record round %s/%d: %w", r.ThreadID, r.RoundNumber, err)
	}
	return nil
}

const outcomeColumns = `auction_id, domain, platform, recorded_at, estimated_value,
	current_bid_at_decision, final_price, num_bidders,
	hours_remaining_at_decision, bot_detected, strategy_used,
	recommended_bid, decision_source, confidence, result,
	profit_margin, opponent_hash`

func (s *SQLiteStore) SimilarAuctions(ctx context.Context, platform core.Platform, valueMin, valueMax float64, limit int) ([]AuctionOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outcomeColumns+`
		FROM auction_outcomes
		WHERE platform = ? AND estimated_value BETWEEN ? AND ?
		ORDER BY recorded_at DESC
		LIMIT ?`,
		string(platform), valueMin, valueMax, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar auctions: %w", err)
	}
	defer rows.Close()

	var out []AuctionOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOutcome(rows *sql.Rows) (AuctionOutcome, error) {
	var o AuctionOutcome
	var margin sql.NullFloat64
	err := rows.Scan(&o.AuctionID, &o.Domain, &o.Platform, &o.RecordedAt,
		&o.EstimatedValue, &o.CurrentBidAtDecision, &o.FinalPrice,
		&o.NumBidders, &o.HoursRemainingAtDecision, &o.BotDetected,
		&o.StrategyUsed, &o.RecommendedBid, &o.DecisionSource,
		&o.Confidence, &o.Result, &margin, &o.OpponentHash)
	if err != nil {
		return AuctionOutcome{}, fmt.Errorf("scan outcome: %w", err)
	}
	if margin.Valid {
		o.ProfitMargin = &margin.Float64
	}
	return o, nil
}

// tierCondition translates a value tier into a SQL predicate over
// estimated_value. An empty tier matches everything.
func tierCondition(tier core.ValueTier) string {
	switch tier {
	case core.TierHigh:
		return "estimated_value >= 1000"
	case core.TierMedium:
		return "estimated_value >= 100 AND estimated_value < 1000"
	case core.TierLow:
		return "estimated_value < 100"
	default:
		return "1=1"
	}
}

// Performance derives strategy aggregates from auction_outcomes. Because
// nothing is incremented, replayed outcome records can never skew the stats.
func (s *SQLiteStore) Performance(ctx context.Context, strategy core.Strategy, platform core.Platform, tier core.ValueTier) (StrategyPerformance, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN result = 'won' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN result = 'won' AND profit_margin IS NOT NULL
		                         THEN profit_margin * final_price ELSE 0 END), 0)
		FROM auction_outcomes
		WHERE strategy_used = ? AND ` + tierCondition(tier)
	args := []any{string(strategy)}
	if platform != "" {
		query += " AND platform = ?"
		args = append(args, string(platform))
	}

	perf := StrategyPerformance{Strategy: strategy}
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&perf.TotalUses, &perf.Wins, &perf.TotalProfit)
	if err != nil {
		return StrategyPerformance{}, fmt.Errorf("query strategy performance: %w", err)
	}
	return perf, nil
}

// BestStrategy picks the strategy with the best derived win rate for a
// platform and tier, requiring minSamples recorded outcomes.
func (s *SQLiteStore) BestStrategy(ctx context.Context, platform core.Platform, tier core.ValueTier, minSamples int) (core.Strategy, bool, error) {
	query := `
		SELECT strategy_used,
		       CAST(SUM(CASE WHEN result = 'won' THEN 1 ELSE 0 END) AS REAL) / COUNT(*) AS win_rate
		FROM auction_outcomes
		WHERE platform = ? AND ` + tierCondition(tier) + `
		GROUP BY strategy_used
		HAVING COUNT(*) >= ?
		ORDER BY win_rate DESC
		LIMIT 1`

	var strategy string
	var winRate float64
	err := s.db.QueryRowContext(ctx, query, string(platform), minSamples).Scan(&strategy, &winRate)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query best strategy: %w", err)
	}
	return core.Strategy(strategy), true, nil
}

func (s *SQLiteStore) RoundsForThread(ctx context.Context, threadID string) ([]AuctionRound, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, round_number, domain, platform, estimated_value,
		       current_bid_at_decision, strategy_used, recommended_bid,
		       decision_source, confidence, result_round, recorded_at
		FROM auction_rounds
		WHERE thread_id = ?
		ORDER BY round_number ASC`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("query rounds for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var out []AuctionRound
	for rows.Next() {
		var r AuctionRound
		if err := rows.Scan(&r.ThreadID, &r.RoundNumber, &r.Domain, &r.Platform,
			&r.EstimatedValue, &r.CurrentBidAtDecision, &r.StrategyUsed,
			&r.RecommendedBid, &r.DecisionSource, &r.Confidence,
			&r.ResultRound, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
