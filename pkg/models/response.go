package models

import "fmt"

// FormResponse holds the user's answers for one template.
// The engine treats answers as an opaque key-value source; the typed
// accessors exist so composition rules can declare exactly what they read.
type FormResponse struct {
	// TemplateID is the template these answers belong to.
	TemplateID string `json:"template_id"`
	// Answers maps question id to a scalar or list answer.
	Answers map[string]any `json:"answers"`
}

// NewFormResponse creates a FormResponse for the given template.
func NewFormResponse(templateID string, answers map[string]any) *FormResponse {
	if answers == nil {
		answers = make(map[string]any)
	}
	return &FormResponse{TemplateID: templateID, Answers: answers}
}

// Has returns true if the question was answered.
func (r *FormResponse) Has(question string) bool {
	_, ok := r.Answers[question]
	return ok
}

// Bool returns the answer as a bool. The second return is false when the
// question is absent or not boolean-shaped.
func (r *FormResponse) Bool(question string) (bool, bool) {
	v, ok := r.Answers[question]
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		return b == "true" || b == "yes", true
	default:
		return false, false
	}
}

// String returns the answer as a string.
func (r *FormResponse) String(question string) (string, bool) {
	v, ok := r.Answers[question]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// Float returns the answer as a float64, converting integer answers.
func (r *FormResponse) Float(question string) (float64, bool) {
	v, ok := r.Answers[question]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// StringList returns the answer as a list of strings. A scalar string
// answer is returned as a single-element list.
func (r *FormResponse) StringList(question string) ([]string, bool) {
	v, ok := r.Answers[question]
	if !ok {
		return nil, false
	}
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out, true
	case string:
		return []string{l}, true
	default:
		return nil, false
	}
}
