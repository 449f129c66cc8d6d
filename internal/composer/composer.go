package composer

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/squad/pkg/models"
)

// CompositionStats records what happened during one compose call. It is
// used for observability and tests, never for control flow.
type CompositionStats struct {
	// RulesEvaluated is the total number of rules in the template.
	RulesEvaluated int `json:"rules_evaluated"`
	// AgentsCreated is the number of rules that produced an agent.
	AgentsCreated int `json:"agents_created"`
	// RulesSkipped is the number of rules that produced no agent.
	RulesSkipped int `json:"rules_skipped"`
	// SkipReasons maps a skipped rule's role to why it was skipped.
	SkipReasons map[string]string `json:"skip_reasons,omitempty"`
}

// Composer builds agent specs from templates and form responses.
type Composer struct {
	registry *Registry
}

// New creates a Composer over the given role registry.
func New(registry *Registry) *Composer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Composer{registry: registry}
}

// Registry returns the composer's role registry.
func (c *Composer) Registry() *Registry { return c.registry }

// Compose evaluates every rule in template order against the response.
// A false condition, an unknown role, or a failing config mapping skips
// that one rule with a recorded reason; one bad rule never aborts
// composition of the rest.
func (c *Composer) Compose(tmpl *models.Template, resp *models.FormResponse) ([]models.AgentSpec, CompositionStats) {
	stats := CompositionStats{
		RulesEvaluated: len(tmpl.Rules),
		SkipReasons:    make(map[string]string),
	}

	specs := make([]models.AgentSpec, 0, len(tmpl.Rules))
	for i := range tmpl.Rules {
		rule := &tmpl.Rules[i]

		spec, err := c.buildSpec(rule, resp)
		if err != nil {
			stats.RulesSkipped++
			stats.SkipReasons[rule.Role] = err.Error()
			continue
		}

		specs = append(specs, spec)
		stats.AgentsCreated++
	}

	return specs, stats
}

// errConditionFalse marks a rule whose condition evaluated false.
var errConditionFalse = errors.New("condition false")

// buildSpec evaluates one rule and constructs its agent spec. Panics
// raised by the condition or the config mapping are contained here and
// reported as a skipped rule.
func (c *Composer) buildSpec(rule *models.CompositionRule, resp *models.FormResponse) (spec models.AgentSpec, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule evaluation panicked: %v", r)
		}
	}()

	if !rule.Condition.Eval(resp) {
		return models.AgentSpec{}, errConditionFalse
	}

	handler, ok := c.registry.Lookup(rule.Role)
	if !ok {
		return models.AgentSpec{}, fmt.Errorf("unknown role %q", rule.Role)
	}

	cfg, err := rule.Config.Apply(resp)
	if err != nil {
		return models.AgentSpec{}, fmt.Errorf("config mapping: %w", err)
	}
	if err := handler.ValidateConfig(cfg); err != nil {
		return models.AgentSpec{}, err
	}

	tools := rule.Tools
	if len(tools) == 0 {
		tools = append([]string{}, handler.DefaultTools...)
	}

	return models.AgentSpec{
		Role:            rule.Role,
		TierStrategy:    rule.TierStrategy,
		Config:          cfg,
		Tools:           tools,
		SuccessCriteria: rule.SuccessCriteria,
		DependsOn:       rule.DependsOn,
	}, nil
}
