package models

import "fmt"

// ConditionOp is the operator used by a rule condition.
type ConditionOp string

const (
	// OpEq passes when the answer equals the expected value.
	OpEq ConditionOp = "eq"
	// OpNeq passes when the answer differs from the expected value.
	OpNeq ConditionOp = "neq"
	// OpContains passes when a list answer contains the expected value.
	OpContains ConditionOp = "contains"
	// OpTruthy passes when the answer is present and truthy.
	OpTruthy ConditionOp = "truthy"
)

// Valid returns true if the operator is a known value.
func (op ConditionOp) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpContains, OpTruthy:
		return true
	default:
		return false
	}
}

// Condition gates a composition rule on a single form answer.
// A nil *Condition is treated as always true.
type Condition struct {
	// Question is the question id the condition reads.
	Question string `json:"question" yaml:"question"`
	// Op is the comparison operator.
	Op ConditionOp `json:"op" yaml:"op"`
	// Value is the expected value, unused for truthy.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Eval evaluates the condition against a response.
// Absent answers make every operator evaluate false.
func (c *Condition) Eval(resp *FormResponse) bool {
	if c == nil {
		return true
	}
	if resp == nil || !resp.Has(c.Question) {
		return false
	}
	switch c.Op {
	case OpEq:
		s, _ := resp.String(c.Question)
		return s == c.Value
	case OpNeq:
		s, _ := resp.String(c.Question)
		return s != c.Value
	case OpContains:
		list, ok := resp.StringList(c.Question)
		if !ok {
			return false
		}
		for _, e := range list {
			if e == c.Value {
				return true
			}
		}
		return false
	case OpTruthy:
		if b, ok := resp.Bool(c.Question); ok {
			return b
		}
		s, _ := resp.String(c.Question)
		return s != "" && s != "false" && s != "no" && s != "0"
	default:
		return false
	}
}

// ConfigMapping declares how an agent's config map is built from a
// response. It names exactly the question ids it reads, which keeps rule
// evaluation a pure, testable function of the response.
type ConfigMapping struct {
	// FromResponse maps config key -> question id.
	FromResponse map[string]string `json:"from_response,omitempty" yaml:"from_response,omitempty"`
	// Literals are config entries set unconditionally.
	Literals map[string]any `json:"literals,omitempty" yaml:"literals,omitempty"`
	// Optional lists question ids that may be absent without failing
	// the mapping.
	Optional []string `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Apply builds the config map for one rule. A required question that was
// never answered is an error; the composer records it as a skipped rule.
func (m ConfigMapping) Apply(resp *FormResponse) (map[string]any, error) {
	cfg := make(map[string]any, len(m.FromResponse)+len(m.Literals))
	for k, v := range m.Literals {
		cfg[k] = v
	}
	optional := make(map[string]bool, len(m.Optional))
	for _, q := range m.Optional {
		optional[q] = true
	}
	for key, question := range m.FromResponse {
		if resp == nil || !resp.Has(question) {
			if optional[question] {
				continue
			}
			return nil, fmt.Errorf("config key %q: question %q not answered", key, question)
		}
		cfg[key] = resp.Answers[question]
	}
	return cfg, nil
}

// CompositionRule declares one potential agent in a template.
type CompositionRule struct {
	// Role is the agent role this rule produces.
	Role string `json:"role" yaml:"role"`
	// Condition gates the rule; nil means always true.
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	// Config builds the agent's config map from the response.
	Config ConfigMapping `json:"config" yaml:"config"`
	// TierStrategy is the declared tier ladder behavior.
	TierStrategy TierStrategy `json:"tier_strategy" yaml:"tier_strategy"`
	// Tools lists tool names made available to the agent.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	// SuccessCriteria are thresholds the agent's output must meet.
	SuccessCriteria []SuccessCriterion `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
	// DependsOn names roles whose output this agent needs. Only
	// honored by the sequential and refinement strategies.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Template is an immutable, validated team definition.
type Template struct {
	// ID is the unique template identifier.
	ID string `json:"id" yaml:"id"`
	// Name is the human-readable display name.
	Name string `json:"name" yaml:"name"`
	// Strategy selects the execution strategy for the composed team.
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	// Rules are evaluated in order during composition.
	Rules []CompositionRule `json:"rules" yaml:"rules"`
}

// TemplateSummary is the listing view of a template.
type TemplateSummary struct {
	// ID is the unique template identifier.
	ID string `json:"id"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Strategy is the template's execution strategy.
	Strategy Strategy `json:"strategy"`
	// RuleCount is the number of composition rules.
	RuleCount int `json:"rule_count"`
}

// AgentSpec is a concrete agent produced by composition.
// Created once per execution and immutable afterwards.
type AgentSpec struct {
	// Role identifies the kind of work this agent performs.
	Role string `json:"role"`
	// TierStrategy is the tier ladder behavior for this agent.
	TierStrategy TierStrategy `json:"tier_strategy"`
	// Config is the agent's config map built from the response.
	Config map[string]any `json:"config,omitempty"`
	// Tools lists tool names available to the agent.
	Tools []string `json:"tools,omitempty"`
	// SuccessCriteria are thresholds the output must meet.
	SuccessCriteria []SuccessCriterion `json:"success_criteria,omitempty"`
	// DependsOn names roles whose output this agent needs.
	DependsOn []string `json:"depends_on,omitempty"`
}
