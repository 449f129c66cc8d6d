package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ShayCichocki/squad/internal/router"
	"github.com/ShayCichocki/squad/internal/runtime"
	"github.com/ShayCichocki/squad/pkg/models"
)

// Config tunes scheduler behavior.
type Config struct {
	// WorkerLimit bounds concurrent in-flight agents under the
	// parallel strategy.
	WorkerLimit int
	// AttemptTimeout is the default per-tier-attempt deadline.
	AttemptTimeout time.Duration
	// TierTimeouts overrides the attempt deadline per tier.
	TierTimeouts map[models.Tier]time.Duration
	// RefinementRounds bounds the producer/reviewer loop.
	RefinementRounds int
}

// DefaultConfig returns the standard scheduler tuning.
func DefaultConfig() Config {
	return Config{
		WorkerLimit:      4,
		AttemptTimeout:   2 * time.Minute,
		RefinementRounds: 3,
	}
}

// Scheduler executes plans. It never embeds analysis logic: tier and
// provider choice is the router's, the work itself is the runtime's.
type Scheduler struct {
	router  *router.TierRouter
	runtime runtime.Runtime
	cfg     Config
	emitter *Emitter
}

// New creates a Scheduler. A nil emitter disables progress events.
func New(r *router.TierRouter, rt runtime.Runtime, cfg Config, emitter *Emitter) *Scheduler {
	if cfg.WorkerLimit <= 0 {
		cfg.WorkerLimit = 4
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 2 * time.Minute
	}
	if cfg.RefinementRounds <= 0 {
		cfg.RefinementRounds = 3
	}
	return &Scheduler{router: r, runtime: rt, cfg: cfg, emitter: emitter}
}

// planTracker accumulates plan-level progress shared across agents.
type planTracker struct {
	runID string
	total int

	mu      sync.Mutex
	settled int
	cost    float64
}

func (t *planTracker) addCost(c float64) {
	t.mu.Lock()
	t.cost += c
	t.mu.Unlock()
}

func (t *planTracker) settle() {
	t.mu.Lock()
	t.settled++
	t.mu.Unlock()
}

func (t *planTracker) snapshot() (percent, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total > 0 {
		percent = float64(t.settled) / float64(t.total) * 100
	}
	// Refinement rounds settle the same spec more than once.
	if percent > 100 {
		percent = 100
	}
	return percent, t.cost
}

// emitAgent emits a progress event when an emitter is configured.
func (s *Scheduler) emitAgent(typ EventType, role string, tier models.Tier, provider string, tracker *planTracker) {
	if s.emitter == nil {
		return
	}
	percent, cost := tracker.snapshot()
	s.emitter.Emit(Event{
		Type:        typ,
		RunID:       tracker.runID,
		Role:        role,
		Tier:        tier,
		Provider:    provider,
		Percent:     percent,
		RunningCost: cost,
		Timestamp:   time.Now(),
	})
}

// Execute runs a plan and returns exactly one AgentResult per spec, in
// spec order, regardless of failures or cancellation. Errors inside
// individual agents become result fields, never returned errors; the only
// error Execute itself returns is an unknown strategy, which is a
// configuration problem.
func (s *Scheduler) Execute(ctx context.Context, plan models.ExecutionPlan) ([]models.AgentResult, error) {
	tracker := &planTracker{runID: plan.RunID, total: len(plan.Specs)}
	s.emitPlan(EventPlanStarted, tracker, fmt.Sprintf("executing %d agents (%s)", len(plan.Specs), plan.Strategy))

	var results []models.AgentResult
	switch plan.Strategy {
	case models.StrategyParallel:
		results = s.executeParallel(ctx, plan.Specs, tracker)
	case models.StrategySequential:
		results = s.executeSequential(ctx, plan.Specs, tracker)
	case models.StrategyRefinement:
		results = s.executeRefinement(ctx, plan.Specs, tracker)
	default:
		return nil, fmt.Errorf("unknown execution strategy %q", plan.Strategy)
	}

	s.emitPlan(EventPlanFinished, tracker, "plan settled")
	return results, nil
}

func (s *Scheduler) emitPlan(typ EventType, tracker *planTracker, msg string) {
	if s.emitter == nil {
		return
	}
	percent, cost := tracker.snapshot()
	s.emitter.Emit(Event{
		Type:        typ,
		RunID:       tracker.runID,
		Percent:     percent,
		RunningCost: cost,
		Message:     msg,
		Timestamp:   time.Now(),
	})
}

// executeParallel dispatches dependency-free specs concurrently under the
// worker limit and waits for all of them to settle; one agent's failure
// never cancels its siblings. Specs that declare dependencies run after
// the concurrent wave, in order, with the wave's outputs as context.
func (s *Scheduler) executeParallel(ctx context.Context, specs []models.AgentSpec, tracker *planTracker) []models.AgentResult {
	results := make([]models.AgentResult, len(specs))
	sem := semaphore.NewWeighted(int64(s.cfg.WorkerLimit))

	var wg sync.WaitGroup
	var dependent []int

	for i := range specs {
		if len(specs[i].DependsOn) > 0 {
			dependent = append(dependent, i)
			continue
		}

		// Waiting for a worker slot is a cancellation point: agents
		// that never got a slot are recorded as skipped.
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = skippedResult(specs[i].Role, "execution cancelled")
			tracker.settle()
			s.emitAgent(EventAgentSkipped, specs[i].Role, "", "", tracker)
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = s.executeAgent(ctx, specs[i], nil, tracker)
		}(i)
	}

	wg.Wait()

	if len(dependent) > 0 {
		execCtx := make(map[string]any)
		for i := range specs {
			if len(specs[i].DependsOn) == 0 {
				mergeOutput(execCtx, &results[i])
			}
		}
		s.runDependents(ctx, specs, dependent, results, execCtx, tracker)
	}

	return results
}

// executeSequential runs specs strictly in list order, merging each
// finalized output into the context visible to later agents.
func (s *Scheduler) executeSequential(ctx context.Context, specs []models.AgentSpec, tracker *planTracker) []models.AgentResult {
	results := make([]models.AgentResult, len(specs))
	execCtx := make(map[string]any)

	for i := range specs {
		if ctx.Err() != nil {
			results[i] = skippedResult(specs[i].Role, "execution cancelled")
			tracker.settle()
			s.emitAgent(EventAgentSkipped, specs[i].Role, "", "", tracker)
			continue
		}
		if missing := unmetDependency(specs[i].DependsOn, results[:i]); missing != "" {
			results[i] = skippedResult(specs[i].Role, "dependency unmet: "+missing)
			tracker.settle()
			s.emitAgent(EventAgentSkipped, specs[i].Role, "", "", tracker)
			continue
		}

		results[i] = s.executeAgent(ctx, specs[i], execCtx, tracker)
		mergeOutput(execCtx, &results[i])
	}

	return results
}

// runDependents executes dependency-declaring specs one at a time against
// the settled results so far.
func (s *Scheduler) runDependents(ctx context.Context, specs []models.AgentSpec, order []int, results []models.AgentResult, execCtx map[string]any, tracker *planTracker) {
	for _, i := range order {
		if ctx.Err() != nil {
			results[i] = skippedResult(specs[i].Role, "execution cancelled")
			tracker.settle()
			s.emitAgent(EventAgentSkipped, specs[i].Role, "", "", tracker)
			continue
		}
		if missing := unmetDependencyIn(specs[i].DependsOn, results); missing != "" {
			results[i] = skippedResult(specs[i].Role, "dependency unmet: "+missing)
			tracker.settle()
			s.emitAgent(EventAgentSkipped, specs[i].Role, "", "", tracker)
			continue
		}
		results[i] = s.executeAgent(ctx, specs[i], execCtx, tracker)
		mergeOutput(execCtx, &results[i])
	}
}

// unmetDependency reports the first dependency role that is absent or
// failed among the settled results, or "" when all are met.
func unmetDependency(deps []string, settled []models.AgentResult) string {
	return unmetDependencyIn(deps, settled)
}

func unmetDependencyIn(deps []string, settled []models.AgentResult) string {
	for _, dep := range deps {
		met := false
		for i := range settled {
			if settled[i].Role == dep && settled[i].Success {
				met = true
				break
			}
		}
		if !met {
			return dep
		}
	}
	return ""
}

// mergeOutput exposes a successful agent's output to later agents under
// a stable role-keyed entry.
func mergeOutput(execCtx map[string]any, result *models.AgentResult) {
	if !result.Success || result.Output == nil {
		return
	}
	execCtx["output:"+result.Role] = map[string]any{
		"metrics":  result.Output.Metrics,
		"summary":  result.Output.Summary,
		"findings": result.Output.Findings,
	}
}
