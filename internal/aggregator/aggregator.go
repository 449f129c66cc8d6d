package aggregator

import (
	"fmt"
	"math"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// GateSpec declares the readiness gate for one category. The gate reads
// the category's raw metric, not its 0-100 score.
type GateSpec struct {
	// Metric is the key into the agent's output metrics.
	Metric string `mapstructure:"metric"`
	// Comparator relates the actual value to the threshold.
	Comparator models.Comparator `mapstructure:"comparator"`
	// Threshold is the required value.
	Threshold float64 `mapstructure:"threshold"`
}

// CategoryConfig declares one scored category.
type CategoryConfig struct {
	// Name is the category name; it must match the agent role that
	// produces the category's data.
	Name string `mapstructure:"name"`
	// Weight is the category's share of the overall score.
	Weight float64 `mapstructure:"weight"`
	// Threshold is the passing score for the category (default 70).
	Threshold float64 `mapstructure:"threshold"`
	// Gate, when set, adds a readiness quality gate for the category.
	Gate *GateSpec `mapstructure:"gate"`
}

// Options tunes one aggregation.
type Options struct {
	// Categories are the scored categories in report order.
	Categories []CategoryConfig
	// Epsilon is the trend dead zone in points (default 1.0).
	Epsilon float64
	// Readiness enables quality-gate evaluation.
	Readiness bool
	// Scorers overrides the role scoring registry (default DefaultScorers).
	Scorers Scorers
}

// DefaultCategories returns the standard analysis categories with equal
// weighting and readiness gates.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Name: "security", Weight: 0.30, Threshold: 70, Gate: &GateSpec{Metric: "critical_issues", Comparator: models.ComparatorEQ, Threshold: 0}},
		{Name: "coverage", Weight: 0.30, Threshold: 70, Gate: &GateSpec{Metric: "line_coverage", Comparator: models.ComparatorGTE, Threshold: 80}},
		{Name: "quality", Weight: 0.25, Threshold: 70, Gate: &GateSpec{Metric: "lint_errors", Comparator: models.ComparatorEQ, Threshold: 0}},
		{Name: "docs", Weight: 0.15, Threshold: 60, Gate: &GateSpec{Metric: "doc_coverage", Comparator: models.ComparatorGTE, Threshold: 50}},
	}
}

// CategoriesFromSpecs derives a category set from the agents a template
// actually composed: one equally-weighted category per role, gated by
// the role's first success criterion when it declares one. This keeps
// templates whose roles differ from the default analysis set (for
// example a producer/reviewer pair) scorable without explicit category
// configuration.
func CategoriesFromSpecs(specs []models.AgentSpec) []CategoryConfig {
	seen := make(map[string]bool, len(specs))
	var cats []CategoryConfig
	for _, spec := range specs {
		if seen[spec.Role] {
			continue
		}
		seen[spec.Role] = true
		cat := CategoryConfig{Name: spec.Role, Threshold: 70}
		if len(spec.SuccessCriteria) > 0 {
			c := spec.SuccessCriteria[0]
			cat.Gate = &GateSpec{Metric: c.Metric, Comparator: c.Comparator, Threshold: c.Threshold}
		}
		cats = append(cats, cat)
	}
	return cats
}

// wideMarginRatio is the relative distance from a gate threshold above
// which a verdict counts as high-margin.
const wideMarginRatio = 0.10

// Aggregate folds the completed agent results into a report. A report is
// always produced: categories without a successful agent score 0 with one
// issue each, and readiness gates fail closed on missing data.
func Aggregate(results []models.AgentResult, opts Options, previous *models.Report) *models.Report {
	if len(opts.Categories) == 0 {
		opts.Categories = DefaultCategories()
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = 1.0
	}
	if opts.Scorers == nil {
		opts.Scorers = DefaultScorers()
	}

	byRole := make(map[string]*models.AgentResult, len(results))
	for i := range results {
		byRole[results[i].Role] = &results[i]
	}

	weights := normalizeWeights(opts.Categories)

	report := &models.Report{
		Timestamp: time.Now(),
		Trend:     models.TrendBaseline,
	}

	var overall float64
	for i, cat := range opts.Categories {
		cs := scoreCategory(cat, weights[i], byRole[cat.Name], opts.Scorers)
		report.Categories = append(report.Categories, cs)
		report.Issues = append(report.Issues, cs.Issues...)
		overall += cs.Weight * cs.Score
	}
	report.OverallScore = clamp(overall)
	report.Grade = models.GradeForScore(report.OverallScore)

	for _, r := range results {
		if !r.Skipped {
			report.AgentsExecuted++
		}
		if r.Success {
			report.AgentsSucceeded++
		}
	}

	if previous != nil {
		delta := report.OverallScore - previous.OverallScore
		switch {
		case delta > opts.Epsilon:
			report.Trend = models.TrendImproving
		case delta < -opts.Epsilon:
			report.Trend = models.TrendDeclining
		default:
			report.Trend = models.TrendStable
		}
	}

	if opts.Readiness {
		aggregateReadiness(report, opts.Categories, byRole)
	}

	report.Recommendations = recommend(report)
	return report
}

// scoreCategory computes one category's score. An absent or failed agent
// forces score 0 with exactly one issue naming the category's role.
func scoreCategory(cat CategoryConfig, weight float64, result *models.AgentResult, scorers Scorers) models.CategoryScore {
	cs := models.CategoryScore{
		Name:      cat.Name,
		Weight:    weight,
		Threshold: cat.Threshold,
	}
	if cs.Threshold == 0 {
		cs.Threshold = 70
	}

	switch {
	case result == nil:
		cs.Issues = []string{fmt.Sprintf("agent %s not executed", cat.Name)}
		return cs
	case !result.Success || result.Output == nil:
		cs.Issues = []string{fmt.Sprintf("agent %s failed", cat.Name)}
		return cs
	}

	score, raw, issues := scorers.ScorerFor(cat.Name)(result.Output)
	cs.Score = clamp(score)
	cs.Raw = raw
	cs.Issues = issues
	cs.Passed = cs.Score >= cs.Threshold
	if result.Output.Degraded {
		cs.Issues = append(cs.Issues, fmt.Sprintf("agent %s ran degraded (missing tooling)", cat.Name))
	}
	return cs
}

// aggregateReadiness computes the quality gates and the readiness verdict.
// Gates on categories whose agent is missing or failed never silently
// pass.
func aggregateReadiness(report *models.Report, categories []CategoryConfig, byRole map[string]*models.AgentResult) {
	allAgentsOK := true
	allMarginsWide := true

	for _, cat := range categories {
		if cat.Gate == nil {
			continue
		}
		gate := models.QualityGate{
			Name:       cat.Name,
			Threshold:  cat.Gate.Threshold,
			Comparator: cat.Gate.Comparator,
		}

		result := byRole[cat.Name]
		if result == nil || !result.Success || result.Output == nil {
			// Fail closed.
			gate.Passed = false
			allAgentsOK = false
		} else if actual, ok := result.Output.Metrics[cat.Gate.Metric]; ok {
			gate.Actual = actual
			gate.Passed = cat.Gate.Comparator.Compare(actual, cat.Gate.Threshold)
			if !wideMargin(actual, cat.Gate.Threshold) {
				allMarginsWide = false
			}
		} else {
			gate.Passed = false
			allMarginsWide = false
		}

		report.Gates = append(report.Gates, gate)
		if !gate.Passed {
			report.Blockers = append(report.Blockers, gate.Name)
		}
	}

	for _, r := range byRole {
		if !r.Success {
			allAgentsOK = false
		}
	}

	report.Ready = len(report.Blockers) == 0 && len(report.Gates) > 0

	switch {
	case !allAgentsOK:
		report.Confidence = models.ConfidenceLow
	case allMarginsWide:
		report.Confidence = models.ConfidenceHigh
	default:
		report.Confidence = models.ConfidenceMedium
	}
}

// wideMargin reports whether actual clears the threshold by at least the
// wide-margin ratio. Zero thresholds compare on absolute distance.
func wideMargin(actual, threshold float64) bool {
	if threshold == 0 {
		return math.Abs(actual) == 0 || math.Abs(actual) >= 1
	}
	return math.Abs(actual-threshold) >= wideMarginRatio*math.Abs(threshold)
}

// normalizeWeights renormalizes category weights to sum to 1. Unweighted
// category sets fall back to equal shares.
func normalizeWeights(categories []CategoryConfig) []float64 {
	weights := make([]float64, len(categories))
	var sum float64
	for i, cat := range categories {
		weights[i] = cat.Weight
		sum += cat.Weight
	}
	if sum == 0 {
		for i := range weights {
			weights[i] = 1 / float64(len(weights))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// recommend derives follow-up suggestions from failing categories and a
// declining trend.
func recommend(report *models.Report) []string {
	var recs []string
	for _, cs := range report.Categories {
		if !cs.Passed {
			recs = append(recs, fmt.Sprintf("improve %s: score %.1f is below threshold %.1f", cs.Name, cs.Score, cs.Threshold))
		}
	}
	if report.Trend == models.TrendDeclining {
		recs = append(recs, "overall score is declining; compare with the previous run before release")
	}
	return recs
}
