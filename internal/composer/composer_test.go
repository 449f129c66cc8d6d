package composer

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/squad/pkg/models"
)

func twoRuleTemplate() *models.Template {
	return &models.Template{
		ID:       "ci-check",
		Name:     "CI Check",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{
				Role:         "test_runner",
				TierStrategy: models.TierStrategyCheapOnly,
				Config: models.ConfigMapping{
					Literals: map[string]any{"target": "."},
				},
			},
			{
				Role:         "publisher",
				Condition:    &models.Condition{Question: "has_tests", Op: models.OpTruthy},
				TierStrategy: models.TierStrategyCapableFirst,
				Config: models.ConfigMapping{
					Literals: map[string]any{"target": ".", "format": "markdown"},
				},
			},
		},
	}
}

func TestCompose_ConditionGatesRule(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := twoRuleTemplate()

	resp := models.NewFormResponse(tmpl.ID, map[string]any{"has_tests": false})
	specs, stats := c.Compose(tmpl, resp)

	if len(specs) != 1 {
		t.Fatalf("Compose() produced %d specs, want 1", len(specs))
	}
	if specs[0].Role != "test_runner" {
		t.Errorf("specs[0].Role = %q, want test_runner", specs[0].Role)
	}
	if stats.RulesSkipped != 1 {
		t.Errorf("stats.RulesSkipped = %d, want 1", stats.RulesSkipped)
	}
	if stats.SkipReasons["publisher"] != "condition false" {
		t.Errorf("skip reason = %q, want condition false", stats.SkipReasons["publisher"])
	}
}

func TestCompose_StatsAlwaysBalance(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := twoRuleTemplate()

	for _, answers := range []map[string]any{
		{"has_tests": true},
		{"has_tests": false},
		{},
	} {
		resp := models.NewFormResponse(tmpl.ID, answers)
		_, stats := c.Compose(tmpl, resp)
		if stats.AgentsCreated+stats.RulesSkipped != stats.RulesEvaluated {
			t.Errorf("answers %v: created %d + skipped %d != evaluated %d",
				answers, stats.AgentsCreated, stats.RulesSkipped, stats.RulesEvaluated)
		}
	}
}

func TestCompose_UnknownRoleSkipsRule(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := &models.Template{
		ID:       "bad",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{Role: "astrologer", TierStrategy: models.TierStrategyCheapOnly},
			{Role: "security", TierStrategy: models.TierStrategyCheapOnly},
		},
	}

	specs, stats := c.Compose(tmpl, models.NewFormResponse("bad", nil))
	if len(specs) != 1 {
		t.Fatalf("Compose() produced %d specs, want 1", len(specs))
	}
	if !strings.Contains(stats.SkipReasons["astrologer"], "unknown role") {
		t.Errorf("skip reason = %q, want unknown role", stats.SkipReasons["astrologer"])
	}
}

func TestCompose_MissingRequiredAnswerSkipsRule(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := &models.Template{
		ID:       "needs-answer",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{
				Role:         "coverage",
				TierStrategy: models.TierStrategyCheapOnly,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"min_coverage": "coverage_target"},
				},
			},
		},
	}

	specs, stats := c.Compose(tmpl, models.NewFormResponse("needs-answer", nil))
	if len(specs) != 0 {
		t.Fatalf("Compose() produced %d specs, want 0", len(specs))
	}
	if stats.RulesSkipped != 1 {
		t.Errorf("stats.RulesSkipped = %d, want 1", stats.RulesSkipped)
	}
	if reason := stats.SkipReasons["coverage"]; !strings.Contains(reason, "coverage_target") {
		t.Errorf("skip reason = %q, want it to name the missing question", reason)
	}
}

func TestCompose_UndeclaredConfigKeyRejected(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := &models.Template{
		ID:       "bad-key",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{
				Role:         "docs",
				TierStrategy: models.TierStrategyCheapOnly,
				Config: models.ConfigMapping{
					Literals: map[string]any{"shell_cmd": "rm -rf"},
				},
			},
		},
	}

	specs, stats := c.Compose(tmpl, models.NewFormResponse("bad-key", nil))
	if len(specs) != 0 {
		t.Fatalf("Compose() produced %d specs, want 0", len(specs))
	}
	if !strings.Contains(stats.SkipReasons["docs"], "shell_cmd") {
		t.Errorf("skip reason = %q, want it to name the rejected key", stats.SkipReasons["docs"])
	}
}

func TestCompose_DefaultToolsAppliedWhenRuleDeclaresNone(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := &models.Template{
		ID:       "tools",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{Role: "security", TierStrategy: models.TierStrategyCheapOnly},
			{Role: "quality", TierStrategy: models.TierStrategyCheapOnly, Tools: []string{"linter"}},
		},
	}

	specs, _ := c.Compose(tmpl, models.NewFormResponse("tools", nil))
	if len(specs) != 2 {
		t.Fatalf("Compose() produced %d specs, want 2", len(specs))
	}
	if len(specs[0].Tools) == 0 {
		t.Error("security spec has no tools, want handler defaults")
	}
	if len(specs[1].Tools) != 1 || specs[1].Tools[0] != "linter" {
		t.Errorf("quality spec tools = %v, want [linter]", specs[1].Tools)
	}
}

// stringerBomb panics when formatted, which is how a hostile answer value
// surfaces inside the config mapping.
type stringerBomb struct{}

func (stringerBomb) String() string { panic("boom") }

func TestCompose_PanicInOneRuleDoesNotAbortOthers(t *testing.T) {
	c := New(DefaultRegistry())
	tmpl := &models.Template{
		ID:       "panicky",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{
				Role:         "docs",
				Condition:    &models.Condition{Question: "bomb", Op: models.OpEq, Value: "x"},
				TierStrategy: models.TierStrategyCheapOnly,
			},
			{Role: "security", TierStrategy: models.TierStrategyCheapOnly},
		},
	}

	// Condition evaluation formats the answer; the bomb panics there if
	// composition ever stops containing rule-level panics.
	resp := models.NewFormResponse("panicky", map[string]any{"bomb": stringerBomb{}})

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Compose() let a rule panic escape: %v", r)
		}
	}()
	specs, _ := c.Compose(tmpl, resp)
	if len(specs) == 0 {
		t.Error("Compose() produced no specs, want the healthy rule to survive")
	}
}
