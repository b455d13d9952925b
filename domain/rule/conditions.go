package rule

// Kind of a template selection condition.
type Kind string

const (
	KindValueThreshold Kind = "VALUE_THRESHOLD"
	KindDepartment     Kind = "DEPARTMENT"
	KindRiskLevel      Kind = "RISK_LEVEL"
	KindProjectType    Kind = "PROJECT_TYPE"
)

// EntitySnapshot is the slice of business entity data the selector evaluates,
// captured by the caller at workflow start.
type EntitySnapshot struct {
	Value       float64 `json:"value"`
	Department  string  `json:"department"`
	RiskLevel   string  `json:"riskLevel"`
	ProjectType string  `json:"projectType"`
}

// Condition is a tagged variant: Threshold is meaningful for
// KindValueThreshold, Value for the equality kinds.
type Condition struct {
	Kind      Kind    `json:"kind"`
	Threshold float64 `json:"threshold,omitempty"`
	Value     string  `json:"value,omitempty"`
}

func (c Condition) Match(s EntitySnapshot) bool {
	switch c.Kind {
	case KindValueThreshold:
		return s.Value > c.Threshold
	case KindDepartment:
		return c.Value != "" && s.Department == c.Value
	case KindRiskLevel:
		return c.Value != "" && s.RiskLevel == c.Value
	case KindProjectType:
		return c.Value != "" && s.ProjectType == c.Value
	}
	return false
}

// AnyMatch short-circuit OR over the ordered condition list.
func AnyMatch(conditions []Condition, s EntitySnapshot) bool {
	for _, c := range conditions {
		if c.Match(s) {
			return true
		}
	}
	return false
}
