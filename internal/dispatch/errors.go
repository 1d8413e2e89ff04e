package dispatch

import "fmt"

// Step names used in AnalysisError
const (
	StepText          = "text analysis"
	StepURL           = "url analysis"
	StepImage         = "image analysis"
	StepAIDetection   = "ai detection"
	StepTranscription = "transcription"
	StepRecycled      = "recycled footage"
	StepCrisis        = "crisis context"
	StepAnonymization = "anonymization"
	StepCitations     = "citation check"
	StepPageRead      = "page read"
)

// AnalysisError is an external analysis failure, tagged with the step that
// failed. It is never retried.
type AnalysisError struct {
	Step string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func stepError(step string, err error) error {
	if err == nil {
		return nil
	}
	return &AnalysisError{Step: step, Err: err}
}
