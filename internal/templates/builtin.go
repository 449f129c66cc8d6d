package templates

import "github.com/ShayCichocki/squad/pkg/models"

// builtins returns the templates that ship with the binary. Each call
// returns fresh values so a caller mutating a template cannot poison
// later loads.
func builtins() map[string]*models.Template {
	return map[string]*models.Template{
		"health-check":      healthCheckTemplate(),
		"release-readiness": releaseReadinessTemplate(),
		"doc-refinement":    docRefinementTemplate(),
	}
}

// healthCheckTemplate runs the independent analysis agents side by side.
func healthCheckTemplate() *models.Template {
	return &models.Template{
		ID:       "health-check",
		Name:     "Project Health Check",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{
				Role:         "security",
				TierStrategy: models.TierStrategyCapableFirst,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
					Literals:     map[string]any{"scan_dependencies": true},
				},
			},
			{
				Role:         "coverage",
				TierStrategy: models.TierStrategyCheapOnly,
				Condition:    &models.Condition{Question: "has_tests", Op: models.OpTruthy},
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
				},
			},
			{
				Role:         "quality",
				TierStrategy: models.TierStrategyCheapOnly,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
					Literals:     map[string]any{"strict": false},
				},
			},
			{
				Role:         "docs",
				TierStrategy: models.TierStrategyCheapOnly,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
				},
			},
		},
	}
}

// releaseReadinessTemplate gates a release on the full analysis set.
func releaseReadinessTemplate() *models.Template {
	return &models.Template{
		ID:       "release-readiness",
		Name:     "Release Readiness",
		Strategy: models.StrategyParallel,
		Rules: []models.CompositionRule{
			{
				Role:         "security",
				TierStrategy: models.TierStrategyCapableFirst,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
					Literals:     map[string]any{"scan_dependencies": true, "severity_floor": "low"},
				},
				SuccessCriteria: []models.SuccessCriterion{
					{Metric: "critical_issues", Comparator: models.ComparatorEQ, Threshold: 0},
				},
			},
			{
				Role:         "coverage",
				TierStrategy: models.TierStrategyProgressive,
				Condition:    &models.Condition{Question: "has_tests", Op: models.OpTruthy},
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
					Literals:     map[string]any{"include_integration": true},
				},
				SuccessCriteria: []models.SuccessCriterion{
					{Metric: "line_coverage", Comparator: models.ComparatorGTE, Threshold: 60},
				},
			},
			{
				Role:         "quality",
				TierStrategy: models.TierStrategyCapableFirst,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
					Literals:     map[string]any{"strict": true},
				},
			},
			{
				Role:         "docs",
				TierStrategy: models.TierStrategyCheapOnly,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
				},
			},
		},
	}
}

// docRefinementTemplate is the producer/reviewer refinement pair.
func docRefinementTemplate() *models.Template {
	return &models.Template{
		ID:       "doc-refinement",
		Name:     "Documentation Refinement",
		Strategy: models.StrategyRefinement,
		Rules: []models.CompositionRule{
			{
				Role:         "publisher",
				TierStrategy: models.TierStrategyProgressive,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{
						"target": "project_path",
						"format": "doc_format",
					},
					Optional: []string{"doc_format"},
				},
				SuccessCriteria: []models.SuccessCriterion{
					{Metric: "review_score", Comparator: models.ComparatorGTE, Threshold: 80},
				},
			},
			{
				Role:         "reviewer",
				TierStrategy: models.TierStrategyCapableFirst,
				Config: models.ConfigMapping{
					FromResponse: map[string]string{"target": "project_path"},
				},
				DependsOn: []string{"publisher"},
			},
		},
	}
}
