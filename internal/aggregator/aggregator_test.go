package aggregator

import (
	"math"
	"strings"
	"testing"

	"github.com/ShayCichocki/squad/pkg/models"
)

func okResult(role string, metrics map[string]float64) models.AgentResult {
	return models.AgentResult{
		Role:    role,
		Success: true,
		Output:  &models.RoleOutput{Role: role, Metrics: metrics},
	}
}

func healthyResults() []models.AgentResult {
	return []models.AgentResult{
		okResult("security", map[string]float64{"critical_issues": 0, "high_issues": 0, "medium_issues": 1, "low_issues": 2}),
		okResult("coverage", map[string]float64{"line_coverage": 91}),
		okResult("quality", map[string]float64{"lint_errors": 0, "type_errors": 0}),
		okResult("docs", map[string]float64{"doc_coverage": 72}),
	}
}

func TestAggregate_WeightsSumToOne(t *testing.T) {
	tests := []struct {
		name       string
		categories []CategoryConfig
	}{
		{"default categories", nil},
		{
			"unnormalized weights",
			[]CategoryConfig{
				{Name: "security", Weight: 3},
				{Name: "coverage", Weight: 1},
			},
		},
		{
			"all zero weights fall back to equal shares",
			[]CategoryConfig{
				{Name: "security"},
				{Name: "coverage"},
				{Name: "quality"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Aggregate(healthyResults(), Options{Categories: tt.categories}, nil)
			var sum float64
			for _, cs := range report.Categories {
				sum += cs.Weight
			}
			if math.Abs(sum-1) > 1e-6 {
				t.Errorf("weights sum = %v, want 1", sum)
			}
		})
	}
}

func TestAggregate_MissingAgentScoresZeroWithOneIssue(t *testing.T) {
	results := healthyResults()[:3] // drop docs

	report := Aggregate(results, Options{}, nil)

	var docs *models.CategoryScore
	for i := range report.Categories {
		if report.Categories[i].Name == "docs" {
			docs = &report.Categories[i]
		}
	}
	if docs == nil {
		t.Fatal("docs category missing from report")
	}
	if docs.Score != 0 {
		t.Errorf("docs score = %v, want 0", docs.Score)
	}
	if len(docs.Issues) != 1 || !strings.Contains(docs.Issues[0], "not executed") {
		t.Errorf("docs issues = %v, want exactly one 'not executed' issue", docs.Issues)
	}
}

func TestAggregate_FailedAgentScoresZero(t *testing.T) {
	results := healthyResults()
	results[1] = models.AgentResult{Role: "coverage", Success: false, Error: "timed out"}

	report := Aggregate(results, Options{}, nil)
	for _, cs := range report.Categories {
		if cs.Name != "coverage" {
			continue
		}
		if cs.Score != 0 {
			t.Errorf("coverage score = %v, want 0", cs.Score)
		}
		if len(cs.Issues) != 1 || !strings.Contains(cs.Issues[0], "failed") {
			t.Errorf("coverage issues = %v", cs.Issues)
		}
	}
}

func TestAggregate_OverallScoreAndGrade(t *testing.T) {
	report := Aggregate(healthyResults(), Options{}, nil)

	// security 100-3-2=95, coverage 91, quality 100, docs 72 with default
	// weights .30/.30/.25/.15 -> 28.5 + 27.3 + 25 + 10.8 = 91.6 -> A.
	if math.Abs(report.OverallScore-91.6) > 1e-9 {
		t.Errorf("OverallScore = %v, want 91.6", report.OverallScore)
	}
	if report.Grade != models.GradeA {
		t.Errorf("Grade = %v, want A", report.Grade)
	}
	if report.AgentsExecuted != 4 || report.AgentsSucceeded != 4 {
		t.Errorf("executed/succeeded = %d/%d, want 4/4", report.AgentsExecuted, report.AgentsSucceeded)
	}
}

func TestAggregate_Trend(t *testing.T) {
	tests := []struct {
		name     string
		previous *models.Report
		want     models.Trend
	}{
		{"no previous run", nil, models.TrendBaseline},
		{"improved beyond epsilon", &models.Report{OverallScore: 85}, models.TrendImproving},
		{"declined beyond epsilon", &models.Report{OverallScore: 97}, models.TrendDeclining},
		{"within epsilon", &models.Report{OverallScore: 91.2}, models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Aggregate(healthyResults(), Options{}, tt.previous)
			if report.Trend != tt.want {
				t.Errorf("Trend = %v, want %v (score %v)", report.Trend, tt.want, report.OverallScore)
			}
		})
	}
}

func TestAggregate_ReadinessGateFailsClosed(t *testing.T) {
	results := healthyResults()
	results[1] = okResult("coverage", map[string]float64{"line_coverage": 54.3})

	report := Aggregate(results, Options{Readiness: true}, nil)

	var coverageGate *models.QualityGate
	for i := range report.Gates {
		if report.Gates[i].Name == "coverage" {
			coverageGate = &report.Gates[i]
		}
	}
	if coverageGate == nil {
		t.Fatal("coverage gate missing")
	}
	if coverageGate.Passed {
		t.Error("coverage gate passed with 54.3 against >= 80")
	}
	if coverageGate.Actual != 54.3 {
		t.Errorf("gate actual = %v, want 54.3", coverageGate.Actual)
	}
	if report.Ready {
		t.Error("Ready = true with a failing gate")
	}
	found := false
	for _, b := range report.Blockers {
		if b == "coverage" {
			found = true
		}
	}
	if !found {
		t.Errorf("Blockers = %v, want coverage listed", report.Blockers)
	}
}

func TestAggregate_ReadinessConfidence(t *testing.T) {
	t.Run("low when any agent failed", func(t *testing.T) {
		results := healthyResults()
		results[3] = models.AgentResult{Role: "docs", Success: false, Error: "boom"}
		report := Aggregate(results, Options{Readiness: true}, nil)
		if report.Confidence != models.ConfidenceLow {
			t.Errorf("Confidence = %v, want LOW", report.Confidence)
		}
		if report.Ready {
			t.Error("Ready = true with a failed gated agent")
		}
	})

	t.Run("high when all margins are wide", func(t *testing.T) {
		results := []models.AgentResult{
			okResult("security", map[string]float64{"critical_issues": 0}),
			okResult("coverage", map[string]float64{"line_coverage": 95}),
			okResult("quality", map[string]float64{"lint_errors": 0}),
			okResult("docs", map[string]float64{"doc_coverage": 90}),
		}
		report := Aggregate(results, Options{Readiness: true}, nil)
		if report.Confidence != models.ConfidenceHigh {
			t.Errorf("Confidence = %v, want HIGH", report.Confidence)
		}
		if !report.Ready {
			t.Errorf("Ready = false, blockers %v", report.Blockers)
		}
	})

	t.Run("medium when a gate passes narrowly", func(t *testing.T) {
		results := []models.AgentResult{
			okResult("security", map[string]float64{"critical_issues": 0}),
			okResult("coverage", map[string]float64{"line_coverage": 81}), // within 10% of 80
			okResult("quality", map[string]float64{"lint_errors": 0}),
			okResult("docs", map[string]float64{"doc_coverage": 90}),
		}
		report := Aggregate(results, Options{Readiness: true}, nil)
		if report.Confidence != models.ConfidenceMedium {
			t.Errorf("Confidence = %v, want MEDIUM", report.Confidence)
		}
	})
}

func TestAggregate_NoReadinessMeansNoGates(t *testing.T) {
	report := Aggregate(healthyResults(), Options{}, nil)
	if len(report.Gates) != 0 {
		t.Errorf("Gates = %v, want none without readiness", report.Gates)
	}
	if report.Ready {
		t.Error("Ready = true without readiness evaluation")
	}
}

func TestAggregate_ScoreClamping(t *testing.T) {
	results := []models.AgentResult{
		okResult("security", map[string]float64{"critical_issues": 10}),
	}
	report := Aggregate(results, Options{
		Categories: []CategoryConfig{{Name: "security", Weight: 1}},
	}, nil)

	if report.Categories[0].Score != 0 {
		t.Errorf("security score = %v, want clamped to 0", report.Categories[0].Score)
	}
	if report.OverallScore != 0 {
		t.Errorf("OverallScore = %v, want 0", report.OverallScore)
	}
	if report.Grade != models.GradeF {
		t.Errorf("Grade = %v, want F", report.Grade)
	}
}

func TestAggregate_DegradedOutputFlagged(t *testing.T) {
	results := healthyResults()
	results[2].Output.Degraded = true

	report := Aggregate(results, Options{}, nil)
	for _, cs := range report.Categories {
		if cs.Name != "quality" {
			continue
		}
		found := false
		for _, issue := range cs.Issues {
			if strings.Contains(issue, "degraded") {
				found = true
			}
		}
		if !found {
			t.Errorf("quality issues = %v, want a degraded note", cs.Issues)
		}
	}
}

func TestAggregate_RecommendationsNameFailingCategories(t *testing.T) {
	results := healthyResults()
	results[3] = okResult("docs", map[string]float64{"doc_coverage": 20})

	report := Aggregate(results, Options{}, nil)
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "docs") {
			found = true
		}
	}
	if !found {
		t.Errorf("Recommendations = %v, want docs named", report.Recommendations)
	}
}

func TestCategoriesFromSpecs(t *testing.T) {
	specs := []models.AgentSpec{
		{
			Role: "publisher",
			SuccessCriteria: []models.SuccessCriterion{
				{Metric: "review_score", Comparator: models.ComparatorGTE, Threshold: 80},
			},
		},
		{Role: "reviewer"},
		{Role: "reviewer"},
	}

	cats := CategoriesFromSpecs(specs)
	if len(cats) != 2 {
		t.Fatalf("len(cats) = %d, want 2 (duplicate roles collapse)", len(cats))
	}
	if cats[0].Name != "publisher" || cats[1].Name != "reviewer" {
		t.Fatalf("category names = %q, %q", cats[0].Name, cats[1].Name)
	}
	if cats[0].Gate == nil || cats[0].Gate.Metric != "review_score" || cats[0].Gate.Threshold != 80 {
		t.Errorf("publisher gate = %+v, want the first success criterion", cats[0].Gate)
	}
	if cats[1].Gate != nil {
		t.Error("reviewer gate set, want none without success criteria")
	}
}

func TestAggregate_SpecDerivedCategoriesScoreNonDefaultRoles(t *testing.T) {
	specs := []models.AgentSpec{{Role: "publisher"}, {Role: "reviewer"}}
	results := []models.AgentResult{
		okResult("publisher", map[string]float64{"review_score": 95}),
		okResult("reviewer", map[string]float64{"review_score": 95}),
	}

	report := Aggregate(results, Options{Categories: CategoriesFromSpecs(specs)}, nil)
	if report.OverallScore != 95 {
		t.Errorf("OverallScore = %.1f, want 95 from two equal-weight categories", report.OverallScore)
	}
	if report.Grade != models.GradeA {
		t.Errorf("Grade = %v, want A", report.Grade)
	}
}
