package model

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType     `json:"type"`           // Signal classification
	Severity    SignalSeverity `json:"severity"`       // info, warning, critical
	Description string         `json:"description"`    // Human-readable description
	Data        map[string]any `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalMetadataIntegrity   SignalType = "metadata_integrity"   // Provenance / generation evidence
	SignalPhysicsMatch        SignalType = "physics_match"        // Physical plausibility of the scene
	SignalSourceCorroboration SignalType = "source_corroboration" // Independent coverage or risk assessment
	SignalUnavailable         SignalType = "unavailable"          // A sub-analysis could not run
	SignalDegraded            SignalType = "degraded"             // Content fell back to URL-only analysis
	SignalCitations           SignalType = "citations"            // Outbound links of an analyzed page
	SignalTrustScore          SignalType = "trust_score"          // Final weighted composition
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// SeverityForScore maps a 0-100 sub-score to a severity
func SeverityForScore(v int) SignalSeverity {
	switch {
	case v <= 30:
		return SeverityCritical
	case v < 60:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
