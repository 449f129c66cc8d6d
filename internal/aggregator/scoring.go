// Package aggregator turns a completed set of agent results into a single
// weighted score, grade, and pass/fail quality-gate report.
package aggregator

import (
	"fmt"

	"github.com/ShayCichocki/squad/pkg/models"
)

// Scorer maps one role's raw output metrics to a 0-100 score. It returns
// the score, the primary raw metric value, and any issues found while
// scoring. Scores are clamped by the aggregator; scorers only need to be
// monotone: more severe findings must never raise the score.
type Scorer func(out *models.RoleOutput) (score, raw float64, issues []string)

// Scorers is the role -> scoring function registry.
type Scorers map[string]Scorer

// DefaultScorers returns the scoring functions for the built-in roles.
// The exact constants are tunable; the shapes are fixed.
func DefaultScorers() Scorers {
	return Scorers{
		"security":    scoreSecurity,
		"coverage":    metricScorer("line_coverage"),
		"quality":     scoreQuality,
		"docs":        metricScorer("doc_coverage"),
		"test_runner": metricScorer("pass_rate"),
		"publisher":   metricScorer("review_score"),
		"reviewer":    metricScorer("review_score"),
	}
}

// ScorerFor returns the registered scorer, falling back to a generic one
// that reads the "score" metric.
func (s Scorers) ScorerFor(role string) Scorer {
	if fn, ok := s[role]; ok {
		return fn
	}
	return metricScorer("score")
}

// scoreSecurity deducts per finding, weighted by severity. A single
// critical finding costs more than many lows so the score stays monotone
// in severity.
func scoreSecurity(out *models.RoleOutput) (float64, float64, []string) {
	critical := out.Metrics["critical_issues"]
	high := out.Metrics["high_issues"]
	medium := out.Metrics["medium_issues"]
	low := out.Metrics["low_issues"]

	score := 100 - 25*critical - 10*high - 3*medium - 1*low

	var issues []string
	if critical > 0 {
		issues = append(issues, fmt.Sprintf("%d critical security issue(s)", int(critical)))
	}
	if high > 0 {
		issues = append(issues, fmt.Sprintf("%d high-severity security issue(s)", int(high)))
	}
	return score, critical, issues
}

// scoreQuality deducts per lint and type error, type errors weighing more.
func scoreQuality(out *models.RoleOutput) (float64, float64, []string) {
	lint := out.Metrics["lint_errors"]
	typeErrs := out.Metrics["type_errors"]

	score := 100 - 2*lint - 5*typeErrs

	var issues []string
	if lint > 0 {
		issues = append(issues, fmt.Sprintf("%d lint error(s)", int(lint)))
	}
	if typeErrs > 0 {
		issues = append(issues, fmt.Sprintf("%d type error(s)", int(typeErrs)))
	}
	return score, lint + typeErrs, issues
}

// metricScorer reads a single 0-100 metric directly as the score.
func metricScorer(metric string) Scorer {
	return func(out *models.RoleOutput) (float64, float64, []string) {
		v, ok := out.Metrics[metric]
		if !ok {
			return 0, 0, []string{fmt.Sprintf("output missing metric %q", metric)}
		}
		return v, v, nil
	}
}

// clamp bounds a score to [0, 100].
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
