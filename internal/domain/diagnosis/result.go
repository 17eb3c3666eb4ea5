package diagnosis

// Severity enum
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the three accepted severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Result is the strict shape every analysis resolves to, whether the model
// produced parseable output or the fallback filled it in.
type Result struct {
	Diagnosis  string   `json:"diagnosis"`
	Advice     string   `json:"advice"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
}
