package model

import "fmt"

// Severity classifies how a violation should be treated by callers.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Violation describes one unsafe operation found in a migration.
// Operation is a stable identifier suitable for assertions and machine
// filtering; Problem and SafeAlternative are prose for human display.
type Violation struct {
	Operation       string   `json:"operation"`
	Problem         string   `json:"problem"`
	SafeAlternative string   `json:"safe_alternative"`
	Severity        Severity `json:"severity"`
	LineNumber      int      `json:"line_number,omitempty"`
}

// NewViolation builds a Violation with the default Error severity.
func NewViolation(operation, problem, safeAlternative string) Violation {
	return Violation{
		Operation:       operation,
		Problem:         problem,
		SafeAlternative: safeAlternative,
		Severity:        SeverityError,
	}
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Operation, v.Problem)
}

// FileResult pairs a checked file with the violations found in it, or with
// the error that prevented checking it.
type FileResult struct {
	Path       string      `json:"file"`
	Violations []Violation `json:"violations,omitempty"`
	Err        error       `json:"-"`
}
