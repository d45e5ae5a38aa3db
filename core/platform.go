package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultIncrement is the flat minimum increment applied when a platform has
// no variable-increment rule.
const defaultIncrement = 5.0

// ParsePlatform normalizes and validates a platform identifier.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformGoDaddy:
		return PlatformGoDaddy, nil
	case PlatformNameJet:
		return PlatformNameJet, nil
	case PlatformDynadot:
		return PlatformDynadot, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// MinIncrement returns the platform's minimum bid increment given the
// current bid. Dynadot uses 5% of the current bid with a $5 floor; the rest
// use a flat $5. Unrecognized platforms fall back to the flat increment.
func (p Platform) MinIncrement(currentBid float64) float64 {
	switch p {
	case PlatformDynadot:
		pct := decimal.NewFromFloat(currentBid).Mul(decimal.NewFromFloat(0.05))
		floor := decimal.NewFromFloat(defaultIncrement)
		if pct.GreaterThan(floor) {
			out, _ := pct.Round(monetaryPrecision).Float64()
			return out
		}
		return defaultIncrement
	default:
		return defaultIncrement
	}
}

// HasLateExtension reports whether late bids extend the auction close.
// GoDaddy adds a 5-minute auto-extension on bids near the deadline; snipe
// timing has to account for it.
func (p Platform) HasLateExtension() bool {
	return p == PlatformGoDaddy
}

// Rules returns a short description of the platform's bidding mechanics,
// used when constructing oracle prompts.
func (p Platform) Rules() string {
	switch p {
	case PlatformGoDaddy:
		return "5-minute extension on late bids. Snipe timing must account for auto-extensions."
	case PlatformNameJet:
		return "No extensions, fast-paced. Immediate execution required."
	case PlatformDynadot:
		return "Variable increments, occasional extensions. Monitor closely."
	default:
		return "Standard proxy bidding rules."
	}
}

// ValueTier is the coarse value bucket used to select strategy logic.
type ValueTier string

const (
	TierHigh   ValueTier = "high"   // >= $1000
	TierMedium ValueTier = "medium" // $100 - $999.99
	TierLow    ValueTier = "low"    // < $100
)

// TierFor buckets an estimated value into a ValueTier.
func TierFor(estimatedValue float64) ValueTier {
	switch {
	case estimatedValue >= 1000:
		return TierHigh
	case estimatedValue >= 100:
		return TierMedium
	default:
		return TierLow
	}
}
