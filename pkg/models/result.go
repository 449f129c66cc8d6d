package models

import "time"

// AttemptOutcome classifies how a single tier attempt ended.
type AttemptOutcome string

const (
	// OutcomeSuccess indicates the attempt produced usable output.
	OutcomeSuccess AttemptOutcome = "success"
	// OutcomeRecoverableError indicates a retryable failure (timeout,
	// connection, rate limit, open breaker).
	OutcomeRecoverableError AttemptOutcome = "recoverable_error"
	// OutcomeFatalError indicates a non-retryable failure (bad input
	// or config).
	OutcomeFatalError AttemptOutcome = "fatal_error"
)

// Valid returns true if the outcome is a known value.
func (o AttemptOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeRecoverableError, OutcomeFatalError:
		return true
	default:
		return false
	}
}

// TierAttempt is one append-only log entry for a single runtime call.
// The attempt log is the sole source of truth for cost accounting.
type TierAttempt struct {
	// Provider is the runtime provider used.
	Provider string `json:"provider"`
	// Tier is the tier the attempt ran at.
	Tier Tier `json:"tier"`
	// StartedAt is when the attempt began.
	StartedAt time.Time `json:"started_at"`
	// Duration is how long the attempt took.
	Duration time.Duration `json:"duration"`
	// Outcome classifies the attempt result.
	Outcome AttemptOutcome `json:"outcome"`
	// ErrorKind names the failure class, empty on success.
	ErrorKind string `json:"error_kind,omitempty"`
	// Cost is the attempt's cost in dollars.
	Cost float64 `json:"cost"`
}

// RoleOutput is the payload an agent's runtime call produces. The engine
// treats it as opaque beyond role-keyed metric extraction.
type RoleOutput struct {
	// Role is the producing agent's role.
	Role string `json:"role"`
	// Metrics holds the role-specific raw metric values.
	Metrics map[string]float64 `json:"metrics,omitempty"`
	// Summary is an optional human-readable synopsis.
	Summary string `json:"summary,omitempty"`
	// Findings lists individual issues the agent surfaced.
	Findings []string `json:"findings,omitempty"`
	// Degraded is set when underlying tooling was missing and the
	// runtime substituted a safe default payload.
	Degraded bool `json:"degraded,omitempty"`
}

// AgentResult is the finalized outcome for one AgentSpec. Exactly one
// exists per spec after an execution plan completes, even on exhaustion.
type AgentResult struct {
	// Role is the agent's role.
	Role string `json:"role"`
	// Success is the final pass/fail flag.
	Success bool `json:"success"`
	// Skipped is set when the agent was never attempted (unmet
	// dependency or plan cancellation).
	Skipped bool `json:"skipped,omitempty"`
	// Output is the final payload, nil when the agent failed without
	// producing one.
	Output *RoleOutput `json:"output,omitempty"`
	// Error describes the final failure, empty on success.
	Error string `json:"error,omitempty"`
	// Attempts is the number of tier attempts made.
	Attempts int `json:"attempts"`
	// TotalCost is the summed cost of all attempts in dollars.
	TotalCost float64 `json:"total_cost"`
	// TotalDuration is the summed duration of all attempts.
	TotalDuration time.Duration `json:"total_duration"`
	// AttemptLog is the append-only list of tier attempts.
	AttemptLog []TierAttempt `json:"attempt_log,omitempty"`
}

// ExecutionPlan is the immutable unit of work handed to the scheduler,
// persisted alongside the report for replay and inspection.
type ExecutionPlan struct {
	// RunID is the generated id for this execution.
	RunID string `json:"run_id"`
	// TemplateID is the template the plan was composed from.
	TemplateID string `json:"template_id"`
	// Strategy is the execution strategy.
	Strategy Strategy `json:"strategy"`
	// Specs are the composed agents in template order.
	Specs []AgentSpec `json:"specs"`
	// CreatedAt is when the plan was composed.
	CreatedAt time.Time `json:"created_at"`
}
