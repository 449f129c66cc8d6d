package scheduler

import (
	"context"
	"time"

	"github.com/ShayCichocki/squad/internal/router"
	"github.com/ShayCichocki/squad/internal/runtime"
	"github.com/ShayCichocki/squad/pkg/models"
)

// executeAgent runs one agent to settlement: it walks the tier route,
// gating each attempt on the circuit breaker, until success, exhaustion,
// a fatal error, or plan cancellation. Every attempt - short-circuited
// ones included - lands in the append-only attempt log. This function
// never panics past the agent boundary.
func (s *Scheduler) executeAgent(ctx context.Context, spec models.AgentSpec, execCtx map[string]any, tracker *planTracker) models.AgentResult {
	result := models.AgentResult{Role: spec.Role}
	route := s.router.NewRoute(spec.TierStrategy)
	breakers := s.router.Breakers()

	s.emitAgent(EventAgentStarted, spec.Role, "", "", tracker)
	debugLog("[agent %s] starting, tier strategy %s", spec.Role, spec.TierStrategy)

	for {
		next, ok := route.Next()
		if !ok {
			break
		}

		if !breakers.Allow(next.Provider, next.Tier) {
			// Open breaker: record the attempt as a recoverable
			// failure without invoking the runtime.
			debugLog("[agent %s] short-circuited (%s, %s): breaker open", spec.Role, next.Provider, next.Tier)
			result.AttemptLog = append(result.AttemptLog, models.TierAttempt{
				Provider:  next.Provider,
				Tier:      next.Tier,
				StartedAt: time.Now(),
				Outcome:   models.OutcomeRecoverableError,
				ErrorKind: string(router.KindShortCircuit),
			})
			result.Error = "short-circuited: circuit breaker open"
			if !route.ObserveFailure(router.KindShortCircuit) {
				break
			}
			continue
		}

		started := time.Now()
		out, cost, err := s.runAttempt(ctx, spec, next, execCtx)
		duration := time.Since(started)
		tracker.addCost(cost)
		s.emitAgent(EventAgentAttempt, spec.Role, next.Tier, next.Provider, tracker)

		if err != nil {
			kind := router.Classify(err)
			outcome := models.OutcomeFatalError
			if kind.Recoverable() {
				outcome = models.OutcomeRecoverableError
				breakers.RecordFailure(next.Provider, next.Tier)
			} else {
				// A fatal outcome must still settle a half-open probe
				// or the pair stays short-circuited forever.
				breakers.RecordFatal(next.Provider, next.Tier)
			}
			debugLog("[agent %s] attempt failed (%s, %s): %s: %v", spec.Role, next.Provider, next.Tier, kind, err)
			result.AttemptLog = append(result.AttemptLog, models.TierAttempt{
				Provider:  next.Provider,
				Tier:      next.Tier,
				StartedAt: started,
				Duration:  duration,
				Outcome:   outcome,
				ErrorKind: string(kind),
				Cost:      cost,
			})
			result.Error = err.Error()
			if !route.ObserveFailure(kind) {
				break
			}
		} else {
			breakers.RecordSuccess(next.Provider, next.Tier)
			result.AttemptLog = append(result.AttemptLog, models.TierAttempt{
				Provider:  next.Provider,
				Tier:      next.Tier,
				StartedAt: started,
				Duration:  duration,
				Outcome:   models.OutcomeSuccess,
				Cost:      cost,
			})
			result.Output = out

			criteriaMet := models.CriteriaMet(spec.SuccessCriteria, out)
			if criteriaMet {
				result.Success = true
				result.Error = ""
				break
			}
			debugLog("[agent %s] output missed success criteria at tier %s", spec.Role, next.Tier)
			result.Error = "output did not meet success criteria"
			if !route.ObserveSuccess(false) {
				break
			}
		}

		// Cancellation is cooperative: the attempt that was in flight
		// finished above, further attempts do not start.
		if ctx.Err() != nil {
			debugLog("[agent %s] cancelled after %d attempts", spec.Role, len(result.AttemptLog))
			result.Error = "execution cancelled"
			break
		}
	}

	if len(result.AttemptLog) == 0 && result.Error == "" {
		result.Error = "no provider available for tier ladder"
	}

	result.Attempts = len(result.AttemptLog)
	for _, a := range result.AttemptLog {
		result.TotalCost += a.Cost
		result.TotalDuration += a.Duration
	}

	tracker.settle()
	s.emitAgent(EventAgentFinished, spec.Role, "", "", tracker)
	debugLog("[agent %s] settled: success=%v attempts=%d cost=%.4f", spec.Role, result.Success, result.Attempts, result.TotalCost)
	return result
}

// runAttempt performs one bounded runtime call. The attempt context is
// detached from plan cancellation so an in-flight call finishes rather
// than being interrupted mid-call, and a panicking runtime is converted
// to a fatal classified error.
func (s *Scheduler) runAttempt(ctx context.Context, spec models.AgentSpec, next router.NextAttempt, execCtx map[string]any) (out *models.RoleOutput, cost float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = router.Errorf(router.KindPanic, "runtime panicked: %v", r)
		}
	}()

	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.attemptTimeout(next.Tier))
	defer cancel()

	return s.runtime.Run(attemptCtx, runtime.Call{
		Role:     spec.Role,
		Tier:     next.Tier,
		Provider: next.Provider,
		Config:   spec.Config,
		Context:  execCtx,
		Tools:    spec.Tools,
	})
}

// attemptTimeout returns the per-attempt deadline for a tier.
func (s *Scheduler) attemptTimeout(tier models.Tier) time.Duration {
	if d, ok := s.cfg.TierTimeouts[tier]; ok && d > 0 {
		return d
	}
	return s.cfg.AttemptTimeout
}

// skippedResult synthesizes the result for an agent that never ran.
func skippedResult(role, reason string) models.AgentResult {
	return models.AgentResult{
		Role:    role,
		Success: false,
		Skipped: true,
		Error:   reason,
	}
}
