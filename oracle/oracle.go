// Package oracle obtains strategy proposals from an external reasoning
// model. The pipeline treats the oracle as unreliable: every failure mode
// maps to a typed error so the caller can fall back to deterministic rules.
package oracle

import (
	"context"
	"errors"

	"github.com/cloudx-io/proxypilot/core"
	"github.com/cloudx-io/proxypilot/intel"
)

var (
	// ErrUnavailable marks transport-level failures: the endpoint could not
	// be reached or returned an API error.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrMalformedReply marks replies that could not be parsed into a
	// structurally valid strategy decision.
	ErrMalformedReply = errors.New("oracle reply malformed")
)

// Request carries everything the oracle may condition its proposal on.
// Enrichment and HistoricalContext are optional.
type Request struct {
	Context           *core.AuctionContext
	Enrichment        *intel.Enrichment
	HistoricalContext string
}

// Oracle produces a strategy proposal for one auction round.
type Oracle interface {
	Propose(ctx context.Context, req Request) (core.StrategyDecision, error)
}

// Func adapts a plain function to the Oracle interface. Used by tests and
// by offline mode.
type Func func(ctx context.Context, req Request) (core.StrategyDecision, error)

func (f Func) Propose(ctx context.Context, req Request) (core.StrategyDecision, error) {
	return f(ctx, req)
}
