// Package validation provides structural and cross-breakpoint consistency
// checks for capitalization tables and completed analyses.
package validation

// Check severities. Error-severity failures block downstream analysis;
// warnings and info never do.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// CheckResult is the outcome of one named validation test.
type CheckResult struct {
	TestName      string   `json:"testName" yaml:"testName"`
	Passed        bool     `json:"passed" yaml:"passed"`
	Severity      string   `json:"severity" yaml:"severity"`
	Message       string   `json:"message" yaml:"message"`
	AffectedItems []string `json:"affectedItems,omitempty" yaml:"affectedItems,omitempty"`
}

// Report collects the results of a validation battery.
type Report struct {
	Checks []CheckResult `json:"checks" yaml:"checks"`
}

// Valid reports whether no error-severity check failed. Warning and info
// failures leave the report valid.
func (r *Report) Valid() bool {
	for _, check := range r.Checks {
		if !check.Passed && check.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass, at any severity.
func (r *Report) Failed() []CheckResult {
	var failed []CheckResult
	for _, check := range r.Checks {
		if !check.Passed {
			failed = append(failed, check)
		}
	}
	return failed
}

// Warnings returns the messages of failed warning-severity checks.
func (r *Report) Warnings() []string {
	var warnings []string
	for _, check := range r.Checks {
		if !check.Passed && check.Severity == SeverityWarning {
			warnings = append(warnings, check.Message)
		}
	}
	return warnings
}

func (r *Report) add(testName string, passed bool, severity, message string, affected ...string) {
	r.Checks = append(r.Checks, CheckResult{
		TestName:      testName,
		Passed:        passed,
		Severity:      severity,
		Message:       message,
		AffectedItems: affected,
	})
}
