package models

import "time"

// Grade is the letter grade derived from the overall score.
type Grade string

const (
	// GradeA is awarded at scores of 90 and above.
	GradeA Grade = "A"
	// GradeB is awarded at scores of 80 and above.
	GradeB Grade = "B"
	// GradeC is awarded at scores of 70 and above.
	GradeC Grade = "C"
	// GradeD is awarded at scores of 60 and above.
	GradeD Grade = "D"
	// GradeF is awarded below 60.
	GradeF Grade = "F"
)

// GradeForScore maps a 0-100 score to a letter grade.
// Boundaries resolve upward: exactly 90.0 is an A.
func GradeForScore(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// Trend classifies the overall score against the previous report.
type Trend string

const (
	// TrendImproving means the score rose by more than epsilon.
	TrendImproving Trend = "improving"
	// TrendDeclining means the score fell by more than epsilon.
	TrendDeclining Trend = "declining"
	// TrendStable means the score moved by at most epsilon.
	TrendStable Trend = "stable"
	// TrendBaseline means no previous report exists to compare against.
	TrendBaseline Trend = "baseline"
)

// Confidence estimates how trustworthy a readiness verdict is.
type Confidence string

const (
	// ConfidenceLow is reported when any agent failed or a gate margin
	// is narrow.
	ConfidenceLow Confidence = "LOW"
	// ConfidenceMedium is the middle ground.
	ConfidenceMedium Confidence = "MEDIUM"
	// ConfidenceHigh is reported when all agents succeeded with wide
	// gate margins.
	ConfidenceHigh Confidence = "HIGH"
)

// CategoryScore is one scored category in a report.
type CategoryScore struct {
	// Name is the category (and agent role) name.
	Name string `json:"name"`
	// Raw is the primary raw metric value the score was derived from.
	Raw float64 `json:"raw"`
	// Weight is the category's share of the overall score, normalized
	// so that all weights in a report sum to 1.
	Weight float64 `json:"weight"`
	// Score is the computed 0-100 value, clamped at both ends.
	Score float64 `json:"score"`
	// Passed is set when the score meets the category threshold.
	Passed bool `json:"passed"`
	// Threshold is the passing score for the category.
	Threshold float64 `json:"threshold"`
	// Issues lists problems found while scoring the category.
	Issues []string `json:"issues,omitempty"`
}

// QualityGate is a pass/fail check on a category's raw value, used for
// release-readiness decisions. Missing data fails closed.
type QualityGate struct {
	// Name is the gate (and category) name.
	Name string `json:"name"`
	// Actual is the measured raw value.
	Actual float64 `json:"actual"`
	// Threshold is the required value.
	Threshold float64 `json:"threshold"`
	// Comparator relates actual to threshold.
	Comparator Comparator `json:"comparator"`
	// Passed is the gate verdict.
	Passed bool `json:"passed"`
}

// Report is the aggregated outcome of one execution.
type Report struct {
	// RunID identifies the execution that produced this report.
	RunID string `json:"run_id"`
	// TemplateID is the template the execution was composed from.
	TemplateID string `json:"template_id"`
	// Timestamp is when the report was produced.
	Timestamp time.Time `json:"timestamp"`
	// OverallScore is the weighted sum of category scores, 0-100.
	OverallScore float64 `json:"overall_score"`
	// Grade is the letter grade for the overall score.
	Grade Grade `json:"grade"`
	// Categories are the per-category scores.
	Categories []CategoryScore `json:"categories"`
	// Issues aggregates all category issues.
	Issues []string `json:"issues,omitempty"`
	// Recommendations suggest follow-up actions.
	Recommendations []string `json:"recommendations,omitempty"`
	// Trend compares the overall score to the previous report.
	Trend Trend `json:"trend"`
	// Gates are the readiness quality gates, empty for plain reports.
	Gates []QualityGate `json:"gates,omitempty"`
	// Ready is true only when every gate passed.
	Ready bool `json:"ready"`
	// Blockers lists the failed gates by name.
	Blockers []string `json:"blockers,omitempty"`
	// Confidence qualifies the readiness verdict.
	Confidence Confidence `json:"confidence,omitempty"`
	// AgentsExecuted is the number of agents the plan ran.
	AgentsExecuted int `json:"agents_executed"`
	// AgentsSucceeded is the number that finished successfully.
	AgentsSucceeded int `json:"agents_succeeded"`
}
