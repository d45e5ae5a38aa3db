// Package agent exposes the top-level bidding advisor: one facade wiring
// market intelligence, historical learning, the decision pipeline, and the
// audit log behind a single SelectStrategy call.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/audit"
	"github.com/cloudx-io/proxypilot/core"
	"github.com/cloudx-io/proxypilot/history"
	"github.com/cloudx-io/proxypilot/intel"
	"github.com/cloudx-io/proxypilot/oracle"
	"github.com/cloudx-io/proxypilot/pipeline"
)

// Stats counts decisions by outcome class since the last reset.
type Stats struct {
	TotalDecisions int `json:"total_decisions"`
	LLMSuccesses   int `json:"llm_success_count"`
	Fallbacks      int `json:"fallback_count"`
	SafetyBlocks   int `json:"safety_block_count"`
	SystemErrors   int `json:"system_error_count"`
}

// LLMSuccessRate is the share of decisions the oracle produced, zero-safe.
func (s Stats) LLMSuccessRate() float64 {
	if s.TotalDecisions == 0 {
		return 0
	}
	return float64(s.LLMSuccesses) / float64(s.TotalDecisions)
}

// FallbackRate is the share of decisions routed to the rule fallback.
func (s Stats) FallbackRate() float64 {
	if s.TotalDecisions == 0 {
		return 0
	}
	return float64(s.Fallbacks) / float64(s.TotalDecisions)
}

// Options configures an Advisor. Every collaborator except the pipeline is
// optional: a nil Resolver skips enrichment, a nil Store disables history
// and learning, a nil Audit disables the decision log, and a nil Oracle
// runs every decision through the rule fallback.
type Options struct {
	Oracle   oracle.Oracle
	Resolver *intel.Resolver
	Store    history.Store
	Audit    *audit.Writer

	// SafeMaxRatio overrides the fallback/proxy safe-max ratio when > 0.
	SafeMaxRatio float64
	// CeilingRatio overrides the validator's bid ceiling ratio when > 0.
	CeilingRatio float64

	Logger zerolog.Logger
}

// Advisor is the production entry point. Safe for concurrent use; each
// decision run is private and only the counters are shared.
type Advisor struct {
	resolver *intel.Resolver
	store    history.Store
	learning *history.Learning
	pipeline *pipeline.Pipeline
	audit    *audit.Writer
	log      zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

// New assembles an advisor from the given options.
func New(opts Options) *Advisor {
	log := opts.Logger.With().Str("component", "advisor").Logger()

	p := pipeline.New(opts.Oracle, opts.Logger)
	if opts.SafeMaxRatio > 0 {
		p.SetSafeMaxRatio(opts.SafeMaxRatio)
	}
	if opts.CeilingRatio > 0 {
		p.Validator.CeilingRatio = opts.CeilingRatio
	}

	a := &Advisor{
		resolver: opts.Resolver,
		store:    opts.Store,
		pipeline: p,
		audit:    opts.Audit,
		log:      log,
	}
	if opts.Store != nil {
		a.learning = history.NewLearning(opts.Store, opts.Logger)
	}
	return a
}

// SelectStrategy runs one full decision for the auction context. It never
// returns an error: every failure class degrades to a safe do_not_bid
// decision with source system_error.
func (a *Advisor) SelectStrategy(ctx context.Context, auctionCtx *core.AuctionContext) core.FinalDecision {
	return a.SelectStrategyAgainst(ctx, auctionCtx, "")
}

// SelectStrategyAgainst is SelectStrategy with a known opposing bidder id,
// enabling exact-profile intelligence instead of cluster matching.
func (a *Advisor) SelectStrategyAgainst(ctx context.Context, auctionCtx *core.AuctionContext, lastBidderID string) (final core.FinalDecision) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("strategy selection panicked")
			final = emergencyDecision(fmt.Sprintf("%v", r))
			a.count(final.DecisionSource)
		}
	}()

	var enrichment *intel.Enrichment
	if a.resolver != nil {
		e := a.resolver.Enrich(auctionCtx, lastBidderID)
		enrichment = &e
	}

	var historical string
	if a.learning != nil {
		hc, err := a.learning.HistoricalContext(ctx, auctionCtx)
		if err != nil {
			a.log.Warn().Err(err).Msg("historical context unavailable, deciding without it")
		} else {
			historical = hc.PromptSection()
		}
	}

	state := a.pipeline.Decide(ctx, auctionCtx, enrichment, historical)
	a.count(state.Final.DecisionSource)

	if a.audit != nil {
		record := audit.Record{
			RunID:         state.RunID,
			Domain:        auctionCtx.Domain,
			Platform:      auctionCtx.Platform,
			ContextDigest: core.ComputeContextDigest(auctionCtx),
			Decision:      state.Final,
		}
		if err := a.audit.Append(record); err != nil {
			// The decision stands even when the audit trail is broken.
			a.log.Error().Err(err).Str("run_id", state.RunID).Msg("audit append failed")
		}
	}

	return state.Final
}

// RecordOutcome persists how a completed auction ended, enabling learning
// from results. auctionID is the idempotency key; when empty a fresh one is
// generated from the domain and a UUID.
func (a *Advisor) RecordOutcome(ctx context.Context, auctionID string, auctionCtx *core.AuctionContext, decision core.FinalDecision, result string, finalPrice float64) error {
	if a.store == nil {
		return fmt.Errorf("no history store configured")
	}
	if auctionID == "" {
		auctionID = fmt.Sprintf("%s_%s", auctionCtx.Domain, uuid.NewString())
	}

	var profitMargin *float64
	if result == history.ResultWon && auctionCtx.EstimatedValue > 0 {
		margin := (auctionCtx.EstimatedValue - finalPrice) / auctionCtx.EstimatedValue
		profitMargin = &margin
	}

	outcome := &history.AuctionOutcome{
		AuctionID:  auctionID,
		Domain:     auctionCtx.Domain,
		Platform:   auctionCtx.Platform,
		RecordedAt: time.Now().UTC(),

		EstimatedValue:           auctionCtx.EstimatedValue,
		CurrentBidAtDecision:     auctionCtx.CurrentBid,
		FinalPrice:               finalPrice,
		NumBidders:               auctionCtx.NumBidders,
		HoursRemainingAtDecision: auctionCtx.HoursRemaining,
		BotDetected:              auctionCtx.BidderAnalysis.BotDetected,

		StrategyUsed:   decision.Strategy,
		RecommendedBid: decision.RecommendedBidAmount,
		DecisionSource: decision.DecisionSource,
		Confidence:     decision.Confidence,

		Result:       result,
		ProfitMargin: profitMargin,
	}
	if err := a.store.RecordOutcome(ctx, outcome); err != nil {
		return fmt.Errorf("record outcome %s: %w", auctionID, err)
	}
	return nil
}

// RecordRound persists one mid-auction round, typically after being outbid.
// The round number continues the thread's existing sequence.
func (a *Advisor) RecordRound(ctx context.Context, auctionCtx *core.AuctionContext, decision core.FinalDecision, resultRound string) error {
	if a.store == nil {
		return fmt.Errorf("no history store configured")
	}
	if auctionCtx.ThreadID == "" {
		return fmt.Errorf("auction context has no thread_id")
	}

	existing, err := a.store.RoundsForThread(ctx, auctionCtx.ThreadID)
	if err != nil {
		return fmt.Errorf("load rounds for thread %s: %w", auctionCtx.ThreadID, err)
	}

	round := &history.AuctionRound{
		ThreadID:    auctionCtx.ThreadID,
		RoundNumber: len(existing) + 1,
		Domain:      auctionCtx.Domain,
		Platform:    auctionCtx.Platform,

		EstimatedValue:       auctionCtx.EstimatedValue,
		CurrentBidAtDecision: auctionCtx.CurrentBid,
		StrategyUsed:         decision.Strategy,
		RecommendedBid:       decision.RecommendedBidAmount,
		DecisionSource:       decision.DecisionSource,
		Confidence:           decision.Confidence,
		ResultRound:          resultRound,
		RecordedAt:           time.Now().UTC(),
	}
	if err := a.store.RecordRound(ctx, round); err != nil {
		return fmt.Errorf("record round %d of thread %s: %w", round.RoundNumber, round.ThreadID, err)
	}
	return nil
}

// Stats returns a snapshot of the decision counters.
func (a *Advisor) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// ResetStats zeroes the decision counters.
func (a *Advisor) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = Stats{}
}

func (a *Advisor) count(source core.DecisionSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalDecisions++
	switch source {
	case core.SourceLLM:
		a.stats.LLMSuccesses++
	case core.SourceRulesFallback:
		a.stats.Fallbacks++
	case core.SourceSafetyBlock:
		a.stats.SafetyBlocks++
	case core.SourceSystemError:
		a.stats.SystemErrors++
	}
}

func emergencyDecision(reason string) core.FinalDecision {
	return core.FinalDecision{
		Strategy:       core.StrategyDoNotBid,
		RiskLevel:      core.RiskHigh,
		Confidence:     0,
		Reasoning:      "System error: " + reason + ". Emergency safe decision: do not bid.",
		DecisionSource: core.SourceSystemError,
	}
}
