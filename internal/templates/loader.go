package templates

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/squad/pkg/models"
)

// Parse decodes a YAML template document.
func Parse(data []byte) (*models.Template, error) {
	var tmpl models.Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &tmpl, nil
}

// Validate checks a template before it is handed to the engine: non-empty
// id and rules, a known execution strategy, and for every rule a known
// role, a well-formed condition, a valid tier strategy, and well-formed
// success criteria. Load-time validation is the only error allowed to
// abort an execution before it starts.
func Validate(tmpl *models.Template, roles RoleSet) error {
	if tmpl.ID == "" {
		return fmt.Errorf("missing template id")
	}
	if !tmpl.Strategy.Valid() {
		return fmt.Errorf("template %s: unknown strategy %q", tmpl.ID, tmpl.Strategy)
	}
	if len(tmpl.Rules) == 0 {
		return fmt.Errorf("template %s: no composition rules", tmpl.ID)
	}

	for i := range tmpl.Rules {
		rule := &tmpl.Rules[i]
		if rule.Role == "" {
			return fmt.Errorf("template %s: rule %d: missing role", tmpl.ID, i)
		}
		if roles != nil && !roles.Known(rule.Role) {
			return fmt.Errorf("template %s: rule %d: unknown role %q", tmpl.ID, i, rule.Role)
		}
		if !rule.TierStrategy.Valid() {
			return fmt.Errorf("template %s: rule %s: unknown tier strategy %q", tmpl.ID, rule.Role, rule.TierStrategy)
		}
		if c := rule.Condition; c != nil {
			if c.Question == "" {
				return fmt.Errorf("template %s: rule %s: condition missing question", tmpl.ID, rule.Role)
			}
			if !c.Op.Valid() {
				return fmt.Errorf("template %s: rule %s: unknown condition op %q", tmpl.ID, rule.Role, c.Op)
			}
			if c.Op != models.OpTruthy && c.Value == "" {
				return fmt.Errorf("template %s: rule %s: condition op %s requires a value", tmpl.ID, rule.Role, c.Op)
			}
		}
		for _, sc := range rule.SuccessCriteria {
			if sc.Metric == "" {
				return fmt.Errorf("template %s: rule %s: success criterion missing metric", tmpl.ID, rule.Role)
			}
			if !sc.Comparator.Valid() {
				return fmt.Errorf("template %s: rule %s: unknown comparator %q", tmpl.ID, rule.Role, sc.Comparator)
			}
		}
	}
	return nil
}
