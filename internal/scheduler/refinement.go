package scheduler

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/squad/pkg/models"
)

// executeRefinement runs the two-role producer/reviewer pattern: the
// producer runs, the reviewer evaluates its output, and failing rounds
// feed the reviewer's feedback back into the producer's context, up to
// the configured round bound. The producer's success criteria are judged
// against the reviewer's output metrics; a producer with no criteria
// passes as soon as the reviewer succeeds. Specs beyond the first two
// run sequentially after the loop with the pair's outputs as context.
func (s *Scheduler) executeRefinement(ctx context.Context, specs []models.AgentSpec, tracker *planTracker) []models.AgentResult {
	if len(specs) < 2 {
		debugLog("[refinement] %d specs, need a producer/reviewer pair; falling back to sequential", len(specs))
		return s.executeSequential(ctx, specs, tracker)
	}

	results := make([]models.AgentResult, len(specs))
	producer, reviewer := specs[0], specs[1]
	execCtx := make(map[string]any)

	producerResult := models.AgentResult{Role: producer.Role}
	reviewerResult := skippedResult(reviewer.Role, "producer never succeeded")

	for round := 1; round <= s.cfg.RefinementRounds; round++ {
		if ctx.Err() != nil {
			producerResult.Error = "execution cancelled"
			break
		}
		debugLog("[refinement] round %d/%d", round, s.cfg.RefinementRounds)

		// The producer's own criteria are judged by the reviewer, not
		// by its raw output, so the round strips them before running.
		roundProducer := producer
		roundProducer.SuccessCriteria = nil

		pres := s.executeAgent(ctx, roundProducer, execCtx, tracker)
		accumulate(&producerResult, &pres)
		if !pres.Success {
			break
		}
		mergeOutput(execCtx, &pres)

		rres := s.executeAgent(ctx, reviewer, execCtx, tracker)
		accumulate(&reviewerResult, &rres)
		reviewerResult.Skipped = false
		if !rres.Success {
			// Verdictless round: the produced output stands but the
			// loop cannot decide, so it stops here.
			producerResult.Error = "reviewer failed; refinement inconclusive"
			producerResult.Success = false
			break
		}

		approved := models.CriteriaMet(producer.SuccessCriteria, rres.Output)
		if approved {
			producerResult.Success = true
			producerResult.Error = ""
			break
		}

		producerResult.Success = false
		producerResult.Error = fmt.Sprintf("reviewer rejected output after round %d", round)
		execCtx["feedback"] = reviewerFeedback(rres.Output)
	}

	results[0] = producerResult
	results[1] = reviewerResult

	if len(specs) > 2 {
		rest := make([]int, 0, len(specs)-2)
		for i := 2; i < len(specs); i++ {
			rest = append(rest, i)
		}
		s.runDependents(ctx, specs, rest, results, execCtx, tracker)
	}

	return results
}

// accumulate merges one round's execution into the role's cumulative
// result. The attempt log only ever grows; the latest round's output and
// verdict replace the previous ones.
func accumulate(total *models.AgentResult, round *models.AgentResult) {
	total.AttemptLog = append(total.AttemptLog, round.AttemptLog...)
	total.Attempts = len(total.AttemptLog)
	total.TotalCost += round.TotalCost
	total.TotalDuration += round.TotalDuration
	total.Success = round.Success
	total.Output = round.Output
	total.Error = round.Error
}

// reviewerFeedback flattens the reviewer's output into the context entry
// the producer sees on the next round.
func reviewerFeedback(out *models.RoleOutput) map[string]any {
	if out == nil {
		return nil
	}
	return map[string]any{
		"summary":  out.Summary,
		"findings": out.Findings,
		"metrics":  out.Metrics,
	}
}
