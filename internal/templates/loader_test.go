package templates

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/squad/internal/composer"
	"github.com/ShayCichocki/squad/pkg/models"
)

func TestParse_RejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("{{{not yaml")); err == nil {
		t.Error("Parse() = nil error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	roles := composer.DefaultRegistry()

	valid := func() *models.Template {
		return &models.Template{
			ID:       "t",
			Strategy: models.StrategyParallel,
			Rules: []models.CompositionRule{
				{Role: "security", TierStrategy: models.TierStrategyCheapOnly},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.Template)
		wantErr string
	}{
		{"valid template", func(*models.Template) {}, ""},
		{"missing id", func(tmpl *models.Template) { tmpl.ID = "" }, "missing template id"},
		{"unknown strategy", func(tmpl *models.Template) { tmpl.Strategy = "psychic" }, "unknown strategy"},
		{"no rules", func(tmpl *models.Template) { tmpl.Rules = nil }, "no composition rules"},
		{"missing role", func(tmpl *models.Template) { tmpl.Rules[0].Role = "" }, "missing role"},
		{"unknown role", func(tmpl *models.Template) { tmpl.Rules[0].Role = "astrologer" }, "unknown role"},
		{"unknown tier strategy", func(tmpl *models.Template) { tmpl.Rules[0].TierStrategy = "free_only" }, "unknown tier strategy"},
		{
			"condition missing question",
			func(tmpl *models.Template) {
				tmpl.Rules[0].Condition = &models.Condition{Op: models.OpTruthy}
			},
			"condition missing question",
		},
		{
			"condition unknown op",
			func(tmpl *models.Template) {
				tmpl.Rules[0].Condition = &models.Condition{Question: "q", Op: "matches"}
			},
			"unknown condition op",
		},
		{
			"eq condition needs a value",
			func(tmpl *models.Template) {
				tmpl.Rules[0].Condition = &models.Condition{Question: "q", Op: models.OpEq}
			},
			"requires a value",
		},
		{
			"criterion missing metric",
			func(tmpl *models.Template) {
				tmpl.Rules[0].SuccessCriteria = []models.SuccessCriterion{{Comparator: models.ComparatorGTE}}
			},
			"missing metric",
		},
		{
			"criterion unknown comparator",
			func(tmpl *models.Template) {
				tmpl.Rules[0].SuccessCriteria = []models.SuccessCriterion{{Metric: "score", Comparator: "!="}}
			},
			"unknown comparator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := valid()
			tt.mutate(tmpl)
			err := Validate(tmpl, roles)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Builtins(t *testing.T) {
	roles := composer.DefaultRegistry()
	for id, tmpl := range builtins() {
		if err := Validate(tmpl, roles); err != nil {
			t.Errorf("builtin %s invalid: %v", id, err)
		}
	}
}
