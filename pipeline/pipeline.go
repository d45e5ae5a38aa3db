// Package pipeline orchestrates one bidding decision: safety gate, oracle
// proposal, tiered validation, rule fallback, proxy analysis, finalization.
// Every failure class collapses into a FinalDecision; Decide never returns
// an error and never panics outward.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
	"github.com/cloudx-io/proxypilot/intel"
	"github.com/cloudx-io/proxypilot/oracle"
	"github.com/cloudx-io/proxypilot/validation"
)

// State is the per-run record of everything a decision pass produced. It is
// owned by exactly one run and safe to inspect after Decide returns.
type State struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Context           *core.AuctionContext
	Enrichment        *intel.Enrichment
	HistoricalContext string

	Blocked        *core.Block
	OracleDecision *core.StrategyDecision
	OracleErr      error
	Validation     *validation.Result
	FallbackUsed   bool

	// Chosen is the strategy that entered proxy analysis, before any
	// accept-loss override.
	Chosen core.StrategyDecision
	Proxy  *core.ProxyDecision

	Final core.FinalDecision
}

// Pipeline wires the decision stages. Fields are exported so callers can
// tune ratios and thresholds before the first run; the pipeline itself is
// stateless across runs.
type Pipeline struct {
	Safety    *core.SafetyGate
	Oracle    oracle.Oracle // nil runs oracle-less, straight to fallback
	Validator *validation.Validator
	Fallback  *core.RuleFallbackEngine
	Proxy     *core.ProxyLogicEngine

	log zerolog.Logger
}

// New assembles a pipeline with default engines around the given oracle.
func New(o oracle.Oracle, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Safety:    core.NewSafetyGate(),
		Oracle:    o,
		Validator: validation.New(log),
		Fallback:  core.NewRuleFallbackEngine(),
		Proxy:     core.NewProxyLogicEngine(),
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// SetSafeMaxRatio applies one safe-max ratio to both engines that use it,
// keeping fallback amounts and proxy ceilings consistent.
func (p *Pipeline) SetSafeMaxRatio(ratio float64) {
	p.Fallback.SafeMaxRatio = ratio
	p.Proxy.SafeMaxRatio = ratio
}

// Decide runs one full decision pass. The returned state always carries a
// populated Final, whatever went wrong along the way.
func (p *Pipeline) Decide(ctx context.Context, auctionCtx *core.AuctionContext, enrichment *intel.Enrichment, historical string) (state *State) {
	state = &State{
		RunID:             uuid.NewString(),
		StartedAt:         time.Now().UTC(),
		Context:           auctionCtx,
		Enrichment:        enrichment,
		HistoricalContext: historical,
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("run_id", state.RunID).
				Interface("panic", r).
				Msg("decision pass panicked")
			state.Final = systemErrorDecision(fmt.Sprintf("decision pass panicked: %v", r))
		}
		state.FinishedAt = time.Now().UTC()
	}()

	if err := auctionCtx.Validate(); err != nil {
		state.Final = systemErrorDecision("invalid auction context: " + err.Error())
		return state
	}

	if block := p.Safety.Check(auctionCtx); block != nil {
		state.Blocked = block
		state.Final = block.Decision()
		p.log.Info().
			Str("run_id", state.RunID).
			Str("domain", auctionCtx.Domain).
			Str("rule", block.Rule).
			Msg("safety gate blocked auction")
		return state
	}

	chosen, source := p.chooseStrategy(ctx, state)
	state.Chosen = chosen

	updated, analysis := p.Proxy.Apply(auctionCtx, chosen)
	state.Proxy = &analysis

	p.finalize(state, updated, source)

	p.log.Info().
		Str("run_id", state.RunID).
		Str("domain", auctionCtx.Domain).
		Str("strategy", string(state.Final.Strategy)).
		Str("source", string(state.Final.DecisionSource)).
		Float64("recommended_bid", state.Final.RecommendedBidAmount).
		Msg("decision finalized")
	return state
}

// chooseStrategy asks the oracle and validates its proposal; any failure on
// that path routes to the deterministic rule fallback.
func (p *Pipeline) chooseStrategy(ctx context.Context, state *State) (core.StrategyDecision, core.DecisionSource) {
	auctionCtx := state.Context

	if p.Oracle != nil {
		proposal, err := p.Oracle.Propose(ctx, oracle.Request{
			Context:           auctionCtx,
			Enrichment:        state.Enrichment,
			HistoricalContext: state.HistoricalContext,
		})
		if err != nil {
			state.OracleErr = err
			p.log.Warn().
				Str("run_id", state.RunID).
				Err(err).
				Msg("oracle produced no proposal, using rule fallback")
		} else {
			state.OracleDecision = &proposal
			result := p.Validator.Validate(&proposal, auctionCtx)
			state.Validation = &result
			if result.IsValid() {
				return proposal, core.SourceLLM
			}
			p.log.Warn().
				Str("run_id", state.RunID).
				Str("rejection", result.Message()).
				Msg("oracle proposal rejected, using rule fallback")
		}
	}

	state.FallbackUsed = true
	var signals core.OpponentSignals
	if state.Enrichment != nil {
		signals = state.Enrichment.OpponentSignals()
	}
	return p.Fallback.Decide(auctionCtx, signals), core.SourceRulesFallback
}

// finalize assembles the FinalDecision. A run that somehow reaches this
// point without proxy analysis degrades to a system_error no-bid.
func (p *Pipeline) finalize(state *State, decision core.StrategyDecision, source core.DecisionSource) {
	if state.Proxy == nil {
		state.Final = systemErrorDecision("no strategy or proxy analysis available")
		return
	}

	shouldIncrease := false
	if decision.ShouldIncreaseProxy != nil {
		shouldIncrease = *decision.ShouldIncreaseProxy
	}

	state.Final = core.FinalDecision{
		Strategy:             decision.Strategy,
		RecommendedBidAmount: decision.RecommendedBidAmount,
		ShouldIncreaseProxy:  shouldIncrease,
		NextBidAmount:        decision.NextBidAmount,
		MaxBudgetForDomain:   decision.MaxBudgetForDomain,
		RiskLevel:            decision.RiskLevel,
		Confidence:           decision.Confidence,
		Reasoning:            decision.Reasoning,
		ProxyDecision:        state.Proxy,
		DecisionSource:       source,
	}
}

func systemErrorDecision(reason string) core.FinalDecision {
	return core.FinalDecision{
		Strategy:       core.StrategyDoNotBid,
		RiskLevel:      core.RiskHigh,
		Confidence:     0,
		Reasoning:      "System error: " + reason,
		DecisionSource: core.SourceSystemError,
	}
}
