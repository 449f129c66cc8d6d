package models

// Strategy is the concurrency pattern used to run a set of agents.
type Strategy string

const (
	// StrategyParallel dispatches independent agents concurrently under a
	// bounded worker limit. Default for side-by-side analysis agents.
	StrategyParallel Strategy = "parallel"
	// StrategySequential runs agents strictly in list order, feeding each
	// agent's output into the context of the agents after it.
	StrategySequential Strategy = "sequential"
	// StrategyRefinement runs a producer/reviewer loop with bounded rounds.
	StrategyRefinement Strategy = "refinement"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyParallel, StrategySequential, StrategyRefinement:
		return true
	default:
		return false
	}
}
