package models

// Comparator compares an actual value against a threshold.
type Comparator string

const (
	// ComparatorGTE passes when actual >= threshold.
	ComparatorGTE Comparator = ">="
	// ComparatorLTE passes when actual <= threshold.
	ComparatorLTE Comparator = "<="
	// ComparatorGT passes when actual > threshold.
	ComparatorGT Comparator = ">"
	// ComparatorLT passes when actual < threshold.
	ComparatorLT Comparator = "<"
	// ComparatorEQ passes when actual == threshold.
	ComparatorEQ Comparator = "=="
)

// Valid returns true if the comparator is a known value.
func (c Comparator) Valid() bool {
	switch c {
	case ComparatorGTE, ComparatorLTE, ComparatorGT, ComparatorLT, ComparatorEQ:
		return true
	default:
		return false
	}
}

// Compare applies the comparator to actual and threshold.
// Unknown comparators fail closed.
func (c Comparator) Compare(actual, threshold float64) bool {
	switch c {
	case ComparatorGTE:
		return actual >= threshold
	case ComparatorLTE:
		return actual <= threshold
	case ComparatorGT:
		return actual > threshold
	case ComparatorLT:
		return actual < threshold
	case ComparatorEQ:
		return actual == threshold
	default:
		return false
	}
}

// SuccessCriterion is a threshold an agent's output metric must meet for
// the output to count as a pass.
type SuccessCriterion struct {
	// Metric is the key into RoleOutput.Metrics.
	Metric string `json:"metric" yaml:"metric"`
	// Comparator relates the actual metric value to the threshold.
	Comparator Comparator `json:"comparator" yaml:"comparator"`
	// Threshold is the required value.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Met returns true if the output satisfies the criterion.
// A missing metric fails closed.
func (sc SuccessCriterion) Met(output *RoleOutput) bool {
	if output == nil {
		return false
	}
	actual, ok := output.Metrics[sc.Metric]
	if !ok {
		return false
	}
	return sc.Comparator.Compare(actual, sc.Threshold)
}

// CriteriaMet returns true if the output satisfies every criterion.
// An empty criteria list always passes.
func CriteriaMet(criteria []SuccessCriterion, output *RoleOutput) bool {
	for _, c := range criteria {
		if !c.Met(output) {
			return false
		}
	}
	return true
}
