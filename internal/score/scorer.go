package score

import (
	"fmt"

	"github.com/ppiankov/unearth/internal/model"
)

// Sub-score weights in percent. They sum to 100.
const (
	WeightIntegrity     = 30
	WeightPhysical      = 40
	WeightCorroboration = 30
)

// Neutral is used for any sub-score that has no evidence either way
const Neutral = 50

// Scorer composes the trust score from a report's sub-analyses
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate derives the three sub-scores from the report and combines them.
// Every input that moved a sub-score is recorded as a signal.
func (s *Scorer) Calculate(r *model.AnalysisResults) model.Score {
	var signals []model.Signal

	// 1. Metadata integrity
	integrity, integritySignal := s.integrity(r)
	signals = append(signals, integritySignal)

	// 2. Physics match
	physical, physicalSignal := s.physical(r)
	signals = append(signals, physicalSignal)

	// 3. Source corroboration
	corroboration, corroborationSignal := s.corroboration(r)
	signals = append(signals, corroborationSignal)

	if r.URL != nil && len(r.URL.CitedSources) > 0 {
		signals = append(signals, citationSignal(r.URL.CitedSources))
	}

	for _, name := range r.Unavailable {
		signals = append(signals, model.Signal{
			Type:        model.SignalUnavailable,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%s analysis unavailable (scored neutral)", name),
			Data:        map[string]any{"subReport": name, "score": Neutral},
		})
	}

	trust := Combine(integrity, physical, corroboration)
	signals = append(signals, model.Signal{
		Type:        model.SignalTrustScore,
		Severity:    model.SeverityForScore(trust),
		Description: fmt.Sprintf("Trust score %d (%s)", trust, Label(trust)),
		Data: map[string]any{
			"integrity":     integrity,
			"physical":      physical,
			"corroboration": corroboration,
			"score":         trust,
			"formula":       "round(0.3*integrity + 0.4*physical + 0.3*corroboration)",
		},
	})

	return model.Score{
		Trust:         trust,
		Integrity:     integrity,
		Physical:      physical,
		Corroboration: corroboration,
		Signals:       signals,
	}
}

// Combine applies the fixed weights and rounds half up
func Combine(integrity, physical, corroboration int) int {
	integrity, physical, corroboration = clamp(integrity), clamp(physical), clamp(corroboration)
	sum := integrity*WeightIntegrity + physical*WeightPhysical + corroboration*WeightCorroboration
	return (sum + 50) / 100
}

// Label names a trust score band
func Label(trust int) string {
	switch {
	case trust > 75:
		return "High Trust"
	case trust > 40:
		return "Caution"
	default:
		return "High Risk"
	}
}

// RiskScore maps a misinformation risk level to a corroboration sub-score
func RiskScore(risk model.Risk) int {
	switch risk {
	case model.RiskLow:
		return 85
	case model.RiskMedium:
		return 50
	case model.RiskHigh:
		return 15
	default:
		return Neutral
	}
}

// AuthorityScore maps a source tier to an integrity sub-score
func AuthorityScore(tier model.AuthorityTier) int {
	switch tier {
	case model.TierPrimary:
		return 90
	case model.TierSecondary:
		return 70
	case model.TierTertiary:
		return 40
	default:
		return Neutral
	}
}

// integrity scores provenance (0-100)
func (s *Scorer) integrity(r *model.AnalysisResults) (int, model.Signal) {
	switch {
	case r.URL != nil:
		score := AuthorityScore(r.URL.SourceAuthority)
		return score, model.Signal{
			Type:        model.SignalMetadataIntegrity,
			Severity:    model.SeverityForScore(score),
			Description: fmt.Sprintf("Source authority: %s", r.URL.SourceAuthority),
			Data: map[string]any{
				"authority": r.URL.SourceAuthority.String(),
				"score":     score,
				"formula":   "primary 90, secondary 70, tertiary 40, unknown 50",
			},
		}

	case r.Kind == model.KindImage || r.Kind == model.KindVideo:
		manipulated := r.Image != nil && r.Image.ManipulationDetected
		if r.AIDetection == nil {
			if !manipulated {
				return neutral(model.SignalMetadataIntegrity, "AI-generation probability unavailable")
			}
			score := clamp(Neutral - 25)
			return score, model.Signal{
				Type:        model.SignalMetadataIntegrity,
				Severity:    model.SeverityForScore(score),
				Description: "Manipulation detected; AI-generation probability unavailable",
				Data: map[string]any{
					"manipulationDetected": true,
					"score":                score,
					"formula":              "clamp(50 - 25*manipulation_detected)",
				},
			}
		}

		score := 100 - r.AIDetection.AIProbability
		if manipulated {
			score -= 25
		}
		score = clamp(score)

		return score, model.Signal{
			Type:        model.SignalMetadataIntegrity,
			Severity:    model.SeverityForScore(score),
			Description: fmt.Sprintf("AI-generation probability %d%%", r.AIDetection.AIProbability),
			Data: map[string]any{
				"aiProbability":        r.AIDetection.AIProbability,
				"manipulationDetected": manipulated,
				"score":                score,
				"formula":              "clamp(100 - ai_probability - 25*manipulation_detected)",
			},
		}

	default:
		return neutral(model.SignalMetadataIntegrity, "No provenance data for this content type")
	}
}

// physical scores scene plausibility (0-100)
func (s *Scorer) physical(r *model.AnalysisResults) (int, model.Signal) {
	switch r.Kind {
	case model.KindVideo:
		if r.CrisisContext == nil {
			return neutral(model.SignalPhysicsMatch, "Crisis context unavailable")
		}
		if r.CrisisContext.WeatherMatch {
			return 90, model.Signal{
				Type:        model.SignalPhysicsMatch,
				Severity:    model.SeverityInfo,
				Description: "Visible weather matches the claimed place and time",
				Data:        map[string]any{"weatherMatch": true, "score": 90},
			}
		}
		return 30, model.Signal{
			Type:        model.SignalPhysicsMatch,
			Severity:    model.SeverityCritical,
			Description: "Visible weather does not match the claimed place and time",
			Data: map[string]any{
				"weatherMatch":   false,
				"mismatchReason": r.CrisisContext.MismatchReason,
				"score":          30,
			},
		}

	case model.KindImage:
		if r.AIDetection == nil || r.AIDetection.PhysicsScore == nil {
			return neutral(model.SignalPhysicsMatch, "Physics realism score unavailable")
		}
		score := clamp(*r.AIDetection.PhysicsScore)
		return score, model.Signal{
			Type:        model.SignalPhysicsMatch,
			Severity:    model.SeverityForScore(score),
			Description: fmt.Sprintf("Lighting and reflections realism %d/100", score),
			Data:        map[string]any{"physicsScore": score, "score": score},
		}

	default:
		return neutral(model.SignalPhysicsMatch, "No physical scene to check")
	}
}

// corroboration scores independent support (0-100)
func (s *Scorer) corroboration(r *model.AnalysisResults) (int, model.Signal) {
	if r.Kind == model.KindVideo {
		if r.RecycledFootage == nil {
			return neutral(model.SignalSourceCorroboration, "News coverage check unavailable")
		}
		if r.RecycledFootage.HasCoverage() {
			return 85, model.Signal{
				Type:        model.SignalSourceCorroboration,
				Severity:    model.SeverityInfo,
				Description: "Event is covered by independent news sources",
				Data:        map[string]any{"newsCoverage": true, "score": 85},
			}
		}
		return 40, model.Signal{
			Type:        model.SignalSourceCorroboration,
			Severity:    model.SeverityWarning,
			Description: "No independent news coverage found",
			Data:        map[string]any{"newsCoverage": false, "score": 40},
		}
	}

	risk, ok := r.Risk()
	if !ok {
		return neutral(model.SignalSourceCorroboration, "No risk assessment available")
	}

	score := RiskScore(risk)
	return score, model.Signal{
		Type:        model.SignalSourceCorroboration,
		Severity:    model.SeverityForScore(score),
		Description: fmt.Sprintf("Misinformation risk: %s", risk),
		Data: map[string]any{
			"risk":    string(risk),
			"score":   score,
			"formula": "Low 85, Medium 50, High 15",
		},
	}
}

// citationSignal summarizes a page's cited sources. It is informational and
// does not move any sub-score.
func citationSignal(sources []model.CitedSource) model.Signal {
	var reachable, dead, authoritative int
	for _, src := range sources {
		if src.Reachable {
			reachable++
		}
		if src.Dead {
			dead++
		}
		if src.Authority == model.TierPrimary || src.Authority == model.TierSecondary {
			authoritative++
		}
	}

	severity := model.SeverityInfo
	if dead*2 > len(sources) {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:     model.SignalCitations,
		Severity: severity,
		Description: fmt.Sprintf("%d cited sources: %d reachable, %d dead, %d primary or secondary",
			len(sources), reachable, dead, authoritative),
		Data: map[string]any{
			"total":         len(sources),
			"reachable":     reachable,
			"dead":          dead,
			"authoritative": authoritative,
		},
	}
}

func neutral(t model.SignalType, description string) (int, model.Signal) {
	return Neutral, model.Signal{
		Type:        t,
		Severity:    model.SeverityInfo,
		Description: description,
		Data:        map[string]any{"score": Neutral},
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
