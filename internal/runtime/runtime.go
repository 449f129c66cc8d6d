// Package runtime provides the agent-runtime capability: given a role, a
// tier, and a provider, run one unit of agent work and return its output.
// The production implementation calls Claude via the direct Anthropic API
// or AWS Bedrock; a deterministic stub ships for tests and offline runs.
package runtime

import (
	"context"

	"github.com/ShayCichocki/squad/pkg/models"
)

// Call describes one unit of agent work.
type Call struct {
	// Role is the agent role being executed.
	Role string
	// Tier is the cost/capability level to run at.
	Tier models.Tier
	// Provider names the runtime provider ("anthropic", "bedrock").
	Provider string
	// Config is the agent's config map from composition.
	Config map[string]any
	// Context carries prior agents' output under the sequential and
	// refinement strategies.
	Context map[string]any
	// Tools lists the tool names available to the agent.
	Tools []string
}

// Runtime executes agent work. Implementations must be idempotent-safe to
// retry, must return within the caller's context deadline or fail with a
// timeout-classified error, and must substitute a degraded default payload
// (never crash) when underlying tooling is missing. Failures are wrapped
// in router.ExecError so the scheduler can classify them.
type Runtime interface {
	// Run performs the call and returns the output and its cost in
	// dollars.
	Run(ctx context.Context, call Call) (*models.RoleOutput, float64, error)
}
