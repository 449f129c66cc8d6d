package router

import (
	"github.com/ShayCichocki/squad/pkg/models"
)

// TierRouter decides which (provider, tier) pair an agent attempt uses
// next. It holds the provider ladder per tier and the shared circuit
// breaker table; per-agent progression state lives in Route values.
type TierRouter struct {
	providers map[models.Tier][]string
	breakers  *CircuitBreakerTable
}

// DefaultProviders is the provider order used when config supplies none.
// The cheap tier prefers the direct API; higher tiers fall back to Bedrock
// when the direct API is failing.
func DefaultProviders() map[models.Tier][]string {
	return map[models.Tier][]string{
		models.TierCheap:   {"anthropic", "bedrock"},
		models.TierCapable: {"anthropic", "bedrock"},
		models.TierPremium: {"anthropic", "bedrock"},
	}
}

// New creates a TierRouter. A nil provider map falls back to
// DefaultProviders; a nil breaker table gets the default tuning.
func New(providers map[models.Tier][]string, breakers *CircuitBreakerTable) *TierRouter {
	if providers == nil {
		providers = DefaultProviders()
	}
	if breakers == nil {
		breakers = NewCircuitBreakerTable(DefaultBreakerConfig())
	}
	return &TierRouter{providers: providers, breakers: breakers}
}

// Breakers exposes the circuit breaker table for attempt gating.
func (r *TierRouter) Breakers() *CircuitBreakerTable { return r.breakers }

// Providers returns the provider order for a tier.
func (r *TierRouter) Providers(tier models.Tier) []string {
	return r.providers[tier]
}

// ShouldFallback reports whether a failed attempt should try another
// (provider, tier) pair. Premium never falls back and fatal errors never
// fall back.
func (r *TierRouter) ShouldFallback(err error, tier models.Tier) bool {
	if tier == models.TierPremium {
		return false
	}
	return Classify(err).Recoverable()
}

// NextAttempt is the (provider, tier) pair a Route hands out.
type NextAttempt struct {
	// Provider is the runtime provider to call.
	Provider string
	// Tier is the tier to run at.
	Tier models.Tier
}

// Route walks the tier ladder for a single agent execution according to
// the agent's tier strategy. It is not safe for concurrent use; each
// agent execution owns one Route.
type Route struct {
	router   *TierRouter
	strategy models.TierStrategy

	tier        models.Tier
	providerIdx int
	escalated   bool
	done        bool
}

// NewRoute starts a ladder walk for one agent.
func (r *TierRouter) NewRoute(strategy models.TierStrategy) *Route {
	return &Route{
		router:   r,
		strategy: strategy,
		tier:     strategy.StartTier(),
	}
}

// Next returns the pair for the upcoming attempt, or false when the
// ladder is exhausted. Next does not advance state; the caller reports
// the attempt outcome through Observe.
func (rt *Route) Next() (NextAttempt, bool) {
	if rt.done {
		return NextAttempt{}, false
	}
	providers := rt.router.Providers(rt.tier)
	if rt.providerIdx >= len(providers) {
		return NextAttempt{}, false
	}
	return NextAttempt{Provider: providers[rt.providerIdx], Tier: rt.tier}, true
}

// Tier returns the tier the route currently sits at.
func (rt *Route) Tier() models.Tier { return rt.tier }

// ObserveSuccess reports a successful runtime call. criteriaMet is the
// success-criteria verdict on the produced output; under the progressive
// strategy a criteria miss escalates one tier instead of finishing.
// It returns true when the route should retry at another pair.
func (rt *Route) ObserveSuccess(criteriaMet bool) bool {
	if rt.done {
		return false
	}
	if criteriaMet {
		rt.done = true
		return false
	}
	if rt.strategy == models.TierStrategyProgressive && rt.tier != models.TierPremium {
		rt.escalate()
		return true
	}
	// Output exists but misses its criteria and no escalation remains.
	rt.done = true
	return false
}

// ObserveFailure reports a failed runtime call (or a short-circuited
// attempt). It returns true when the route should retry at another pair.
func (rt *Route) ObserveFailure(kind ErrorKind) bool {
	if rt.done {
		return false
	}
	if !kind.Recoverable() {
		rt.done = true
		return false
	}

	switch rt.strategy {
	case models.TierStrategyCheapOnly:
		// Same-tier provider fallback only; never escalates.
		rt.providerIdx++
		if rt.providerIdx >= len(rt.router.Providers(rt.tier)) {
			rt.done = true
			return false
		}
		return true

	case models.TierStrategyCapableFirst:
		if rt.tier == models.TierPremium {
			rt.done = true
			return false
		}
		rt.providerIdx++
		if rt.providerIdx < len(rt.router.Providers(rt.tier)) {
			return true
		}
		// All capable providers exhausted: the single premium shot.
		if !rt.escalated {
			rt.escalated = true
			rt.tier = models.TierPremium
			rt.providerIdx = 0
			return len(rt.router.Providers(rt.tier)) > 0
		}
		rt.done = true
		return false

	case models.TierStrategyProgressive:
		if rt.tier == models.TierPremium {
			rt.done = true
			return false
		}
		rt.escalate()
		return true

	default:
		rt.done = true
		return false
	}
}

// escalate moves the route exactly one tier step up. The tier never moves
// downward within one execution.
func (rt *Route) escalate() {
	rt.tier = rt.tier.Next()
	rt.providerIdx = 0
	rt.escalated = true
	if len(rt.router.Providers(rt.tier)) == 0 {
		rt.done = true
	}
}

// Exhausted reports whether the route has finished handing out attempts.
func (rt *Route) Exhausted() bool {
	if rt.done {
		return true
	}
	_, ok := rt.Next()
	return !ok
}
