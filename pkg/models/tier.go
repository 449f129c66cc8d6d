package models

// Tier represents the cost/capability level at which an agent's work runs.
type Tier string

const (
	// TierCheap is the lowest-cost tier for lightweight work.
	TierCheap Tier = "cheap"
	// TierCapable is the mid tier for standard work.
	TierCapable Tier = "capable"
	// TierPremium is the highest tier; there is no escalation past it.
	TierPremium Tier = "premium"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierCheap, TierCapable, TierPremium:
		return true
	default:
		return false
	}
}

// Next returns the tier one step up the ladder.
// Premium returns itself; the ladder never moves downward.
func (t Tier) Next() Tier {
	switch t {
	case TierCheap:
		return TierCapable
	case TierCapable:
		return TierPremium
	default:
		return TierPremium
	}
}

// Rank returns the ordinal position of the tier on the ladder.
// Used to assert non-decreasing escalation sequences.
func (t Tier) Rank() int {
	switch t {
	case TierCheap:
		return 0
	case TierCapable:
		return 1
	case TierPremium:
		return 2
	default:
		return -1
	}
}

// TierStrategy controls how an agent moves across the tier ladder.
type TierStrategy string

const (
	// TierStrategyCheapOnly runs at cheap with same-tier provider fallback
	// and never escalates.
	TierStrategyCheapOnly TierStrategy = "cheap_only"
	// TierStrategyCapableFirst starts at capable and escalates to premium
	// only when every capable provider is exhausted.
	TierStrategyCapableFirst TierStrategy = "capable_first"
	// TierStrategyProgressive walks cheap -> capable -> premium one step
	// per failure, stopping at premium.
	TierStrategyProgressive TierStrategy = "progressive"
)

// Valid returns true if the strategy is a known value.
func (s TierStrategy) Valid() bool {
	switch s {
	case TierStrategyCheapOnly, TierStrategyCapableFirst, TierStrategyProgressive:
		return true
	default:
		return false
	}
}

// StartTier returns the tier the strategy begins at.
func (s TierStrategy) StartTier() Tier {
	switch s {
	case TierStrategyCapableFirst:
		return TierCapable
	default:
		return TierCheap
	}
}
