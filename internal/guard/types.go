package guard

import "regexp"

// Category identifies a class of personal data the guard detects.
type Category string

const (
	CategoryNationalID  Category = "national_id"
	CategoryPhone       Category = "phone"
	CategoryEmail       Category = "email"
	CategoryPatientName Category = "patient_name"
)

// Severity classifies how serious a detected match is.
type Severity string

const (
	// SeverityCritical marks direct identifiers (personnummer).
	SeverityCritical Severity = "critical"
	// SeverityWarning marks contact details and contextual identifiers.
	SeverityWarning Severity = "warning"
)

// Rule represents a single detection and redaction rule.
type Rule struct {
	Category Category
	Severity Severity
	Pattern  *regexp.Regexp
	// Replacement is applied with Pattern.ReplaceAllString and may reference
	// capture groups, so a rule can keep surrounding text intact.
	Replacement string
	// Placeholder is the bare token the replacement inserts.
	Placeholder string
	// Reason is the user-facing explanation, in the platform's working language.
	Reason string
	// Filter, when set, rejects pattern candidates after the regexp fires.
	Filter func(match string) bool
}

// ScanResult contains the outcome of scanning a single text.
type ScanResult struct {
	Safe     bool     `json:"safe"`
	Category Category `json:"category,omitempty"`
	Severity Severity `json:"severity,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	// MatchedSpan is the literal substring that triggered the match. It is
	// kept for diagnostics and tests and must never reach persistent logs.
	MatchedSpan string `json:"-"`
}
