package invoice

// Severity indicates how much a failed rule should worry a reviewer.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationResult is the outcome of one rule on one field.
type ValidationResult struct {
	RuleKey       string
	Severity      Severity
	Passed        bool
	FieldPath     string
	ExpectedValue string
	ActualValue   string
	Message       string
}
