package core

import (
	"fmt"
)

// minHeadroomIncrements is the number of platform increments a proxy
// increase must gain before it is worth changing the standing proxy.
const minHeadroomIncrements = 3

// ProxyLogicEngine translates a chosen strategy into a concrete proxy-bid
// adjustment. It is the last authority on financial risk: even a validated
// oracle decision is downgraded to do_not_bid here when the current bid has
// already consumed the safe max, and that override is unconditional.
type ProxyLogicEngine struct {
	// SafeMaxRatio is the fraction of estimated value treated as the maximum
	// biddable amount while preserving the target margin.
	SafeMaxRatio float64
}

// NewProxyLogicEngine returns an engine with the default safe-max ratio.
func NewProxyLogicEngine() *ProxyLogicEngine {
	return &ProxyLogicEngine{SafeMaxRatio: 1.0}
}

// Analyze decides the proxy adjustment for the current auction state.
// Scenarios are evaluated in order: initialize, accept loss, increase,
// maintain.
func (e *ProxyLogicEngine) Analyze(ctx *AuctionContext) ProxyDecision {
	safeMax := MulRatio(ctx.EstimatedValue, e.SafeMaxRatio)
	increment := ctx.Platform.MinIncrement(ctx.CurrentBid)
	currentProxy := ctx.YourCurrentProxy
	currentBid := ctx.CurrentBid

	// Scenario 1: no proxy set yet, initialize one.
	if currentProxy == 0 {
		newProxyMax := MoneyMin(safeMax, ctx.BudgetAvailable, ctx.EstimatedValue)
		nextBid := AddMoney(currentBid, increment)

		return ProxyDecision{
			CurrentProxy:        currentProxy,
			CurrentBid:          currentBid,
			SafeMax:             safeMax,
			ShouldIncreaseProxy: true,
			NewProxyMax:         Float64Ptr(newProxyMax),
			NextBidAmount:       Float64Ptr(nextBid),
			MaxBudgetForDomain:  newProxyMax,
			ProxyAction:         ProxyIncrease,
			Explanation: fmt.Sprintf(
				"INITIAL PROXY SETUP: No current proxy set. Safe max calculated as "+
					"$%.2f from $%.2f estimated value. Setting proxy to $%.2f. Next "+
					"visible bid will be $%.2f ($%.2f + $%.2f increment). Domain will "+
					"never cost more than $%.2f even if fully contested.",
				safeMax, ctx.EstimatedValue, newProxyMax, nextBid, currentBid, increment, newProxyMax),
		}
	}

	// Scenario 2: the current bid has consumed the safe max; no profitable
	// continuation exists.
	if MoneyGTE(currentBid, safeMax) {
		return ProxyDecision{
			CurrentProxy:        currentProxy,
			CurrentBid:          currentBid,
			SafeMax:             safeMax,
			ShouldIncreaseProxy: false,
			MaxBudgetForDomain:  0,
			ProxyAction:         ProxyAcceptLoss,
			Explanation: fmt.Sprintf(
				"PROFIT IMPOSSIBLE: Safe max ($%.2f) is below current bid ($%.2f). "+
					"Cannot increase proxy above max budget ($%.2f). Current proxy "+
					"($%.2f) is insufficient. Strategy: Accept loss and do not increase "+
					"proxy. This prevents a winner's curse scenario.",
				safeMax, currentBid, safeMax, currentProxy),
		}
	}

	// Scenario 3: room remains below safe max. Increase only when the new
	// proxy gains meaningful headroom over the standing one.
	potentialNewProxy := MoneyMin(safeMax, ctx.BudgetAvailable, ctx.EstimatedValue)
	minIncreaseThreshold := MulRatio(increment, minHeadroomIncrements)

	if MoneyGT(potentialNewProxy, AddMoney(currentProxy, minIncreaseThreshold)) {
		nextBid := AddMoney(currentBid, increment)

		return ProxyDecision{
			CurrentProxy:        currentProxy,
			CurrentBid:          currentBid,
			SafeMax:             safeMax,
			ShouldIncreaseProxy: true,
			NewProxyMax:         Float64Ptr(potentialNewProxy),
			NextBidAmount:       Float64Ptr(nextBid),
			MaxBudgetForDomain:  potentialNewProxy,
			ProxyAction:         ProxyIncrease,
			Explanation: fmt.Sprintf(
				"PROXY INCREASE OPTIMAL: Safe max ($%.2f) exceeds current bid ($%.2f). "+
					"Current proxy ($%.2f) insufficient for profit protection. "+
					"Increasing proxy to $%.2f. Next visible bid will be $%.2f ($%.2f + "+
					"$%.2f increment). Domain cost capped at $%.2f (max budget).",
				safeMax, currentBid, currentProxy, potentialNewProxy, nextBid,
				currentBid, increment, potentialNewProxy),
		}
	}

	return ProxyDecision{
		CurrentProxy:        currentProxy,
		CurrentBid:          currentBid,
		SafeMax:             safeMax,
		ShouldIncreaseProxy: false,
		MaxBudgetForDomain:  currentProxy,
		ProxyAction:         ProxyMaintain,
		Explanation: fmt.Sprintf(
			"PROXY ADEQUATE: Current proxy ($%.2f) provides sufficient protection. "+
				"Safe max ($%.2f) supports the current position against bid ($%.2f). "+
				"No proxy increase needed. Domain will not exceed $%.2f cost (within "+
				"max budget).",
			currentProxy, safeMax, currentBid, currentProxy),
	}
}

// Apply integrates proxy analysis into a strategy decision. When the
// analysis concludes accept_loss the strategy is force-overridden to
// do_not_bid: the bid is zeroed, confidence capped at 0.5, risk forced to
// high, and the override reason appended to the existing reasoning.
func (e *ProxyLogicEngine) Apply(ctx *AuctionContext, decision StrategyDecision) (StrategyDecision, ProxyDecision) {
	analysis := e.Analyze(ctx)

	updated := decision
	updated.ShouldIncreaseProxy = BoolPtr(analysis.ShouldIncreaseProxy)
	updated.NextBidAmount = analysis.NextBidAmount
	updated.MaxBudgetForDomain = analysis.MaxBudgetForDomain

	if analysis.ProxyAction == ProxyAcceptLoss {
		updated.Strategy = StrategyDoNotBid
		updated.RecommendedBidAmount = 0
		if updated.Confidence > 0.5 {
			updated.Confidence = 0.5
		}
		updated.RiskLevel = RiskHigh
		updated.Reasoning += " PROXY ANALYSIS OVERRIDE: " + analysis.Explanation
	}

	return updated, analysis
}
