package score

import (
	"testing"

	"github.com/ppiankov/unearth/internal/model"
)

func intPtr(v int) *int { return &v }

func TestScorer_Calculate_TextHighRisk(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(&model.AnalysisResults{
		Kind: model.KindText,
		Text: &model.TextAnalysis{Summary: "s", MisinformationRisk: model.RiskHigh},
	})

	if result.Corroboration != 15 {
		t.Errorf("Expected corroboration 15 for High risk, got %d", result.Corroboration)
	}
	if result.Integrity != 50 || result.Physical != 50 {
		t.Errorf("Expected neutral integrity and physical, got %d/%d", result.Integrity, result.Physical)
	}
	// 0.3*50 + 0.4*50 + 0.3*15 = 39.5 -> 40
	if result.Trust != 40 {
		t.Errorf("Expected trust 40, got %d", result.Trust)
	}
}

func TestScorer_Calculate_VideoWeather(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		match    bool
		physical int
		trust    int
	}{
		{false, 30, 42},
		{true, 90, 66},
	}

	for _, tt := range tests {
		result := scorer.Calculate(&model.AnalysisResults{
			Kind:          model.KindVideo,
			CrisisContext: &model.CrisisContext{WeatherMatch: tt.match},
			Unavailable:   []string{model.SubReportAIDetection, model.SubReportRecycled},
		})

		if result.Physical != tt.physical {
			t.Errorf("weatherMatch=%v: expected physical %d, got %d", tt.match, tt.physical, result.Physical)
		}
		if result.Trust != tt.trust {
			t.Errorf("weatherMatch=%v: expected trust %d, got %d", tt.match, tt.trust, result.Trust)
		}
	}
}

func TestScorer_Calculate_VideoCoverage(t *testing.T) {
	scorer := NewScorer()
	yes, no := true, false

	covered := scorer.Calculate(&model.AnalysisResults{
		Kind:            model.KindVideo,
		RecycledFootage: &model.RecycledFootage{NewsCoverage: &yes},
		AIDetection:     &model.AIDetection{AIProbability: 20},
	})
	if covered.Corroboration != 85 {
		t.Errorf("Expected corroboration 85, got %d", covered.Corroboration)
	}
	if covered.Integrity != 80 {
		t.Errorf("Expected integrity 80, got %d", covered.Integrity)
	}

	uncovered := scorer.Calculate(&model.AnalysisResults{
		Kind:            model.KindVideo,
		RecycledFootage: &model.RecycledFootage{NewsCoverage: &no},
	})
	if uncovered.Corroboration != 40 {
		t.Errorf("Expected corroboration 40, got %d", uncovered.Corroboration)
	}
}

func TestScorer_Calculate_Image(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(&model.AnalysisResults{
		Kind:        model.KindImage,
		Image:       &model.ImageAnalysis{ManipulationDetected: true, MisinformationRisk: model.RiskHigh},
		AIDetection: &model.AIDetection{AIProbability: 93, PhysicsScore: intPtr(40)},
	})

	if result.Integrity != 0 {
		t.Errorf("Expected integrity clamped to 0, got %d", result.Integrity)
	}
	if result.Physical != 40 {
		t.Errorf("Expected physical 40, got %d", result.Physical)
	}
	// 0 + 16 + 4.5 = 20.5 -> 21
	if result.Trust != 21 {
		t.Errorf("Expected trust 21, got %d", result.Trust)
	}
}

func TestScorer_Calculate_ImageManipulationWithoutAIDetection(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(&model.AnalysisResults{
		Kind:        model.KindImage,
		Image:       &model.ImageAnalysis{ManipulationDetected: true, MisinformationRisk: model.RiskLow},
		Unavailable: []string{model.SubReportAIDetection},
	})

	if result.Integrity != 25 {
		t.Errorf("Expected integrity 25 (neutral minus manipulation), got %d", result.Integrity)
	}
	// 7.5 + 20 + 25.5 = 53
	if result.Trust != 53 {
		t.Errorf("Expected trust 53, got %d", result.Trust)
	}

	clean := scorer.Calculate(&model.AnalysisResults{
		Kind:  model.KindImage,
		Image: &model.ImageAnalysis{MisinformationRisk: model.RiskLow},
	})
	if clean.Integrity != Neutral {
		t.Errorf("Expected neutral integrity without manipulation, got %d", clean.Integrity)
	}
}

func TestScorer_Calculate_URLAuthority(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(&model.AnalysisResults{
		Kind: model.KindURL,
		URL: &model.URLAnalysis{
			MisinformationRisk: model.RiskLow,
			SourceAuthority:    model.TierSecondary,
		},
	})

	if result.Integrity != 70 {
		t.Errorf("Expected integrity 70 for secondary source, got %d", result.Integrity)
	}
	if result.Trust != 67 {
		t.Errorf("Expected trust 67, got %d", result.Trust)
	}
}

func TestScorer_Calculate_Signals(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(&model.AnalysisResults{
		Kind:        model.KindURL,
		URL:         &model.URLAnalysis{MisinformationRisk: model.RiskMedium},
		Unavailable: []string{model.SubReportImage},
	})

	counts := make(map[model.SignalType]int)
	for _, s := range result.Signals {
		counts[s.Type]++
	}

	for _, want := range []model.SignalType{
		model.SignalMetadataIntegrity,
		model.SignalPhysicsMatch,
		model.SignalSourceCorroboration,
		model.SignalUnavailable,
		model.SignalTrustScore,
	} {
		if counts[want] != 1 {
			t.Errorf("Expected exactly one %s signal, got %d", want, counts[want])
		}
	}

	last := result.Signals[len(result.Signals)-1]
	if last.Data["formula"] == nil {
		t.Error("Expected trust signal to carry its formula")
	}
}

func TestScorer_Calculate_Citations(t *testing.T) {
	scorer := NewScorer()

	base := &model.AnalysisResults{
		Kind: model.KindURL,
		URL: &model.URLAnalysis{
			MisinformationRisk: model.RiskLow,
			SourceAuthority:    model.TierSecondary,
			CitedSources: []model.CitedSource{
				{URL: "https://who.int/a", Authority: model.TierPrimary, Reachable: true},
				{URL: "https://blog.example/b", Authority: model.TierTertiary, Dead: true},
				{URL: "https://blog.example/c", Authority: model.TierTertiary, Dead: true},
			},
		},
	}
	result := scorer.Calculate(base)

	// Citations are informational
	if result.Trust != 67 {
		t.Errorf("Expected trust 67 regardless of citations, got %d", result.Trust)
	}

	var found *model.Signal
	for i := range result.Signals {
		if result.Signals[i].Type == model.SignalCitations {
			found = &result.Signals[i]
		}
	}
	if found == nil {
		t.Fatal("Expected a citations signal")
	}
	if found.Severity != model.SeverityWarning {
		t.Errorf("Expected warning when most citations are dead, got %s", found.Severity)
	}
	if found.Data["reachable"] != 1 || found.Data["dead"] != 2 || found.Data["authoritative"] != 1 {
		t.Errorf("Unexpected citation data: %v", found.Data)
	}
}

func TestCombine_Rounding(t *testing.T) {
	tests := []struct {
		i, p, c  int
		expected int
	}{
		{0, 0, 0, 0},
		{100, 100, 100, 100},
		{50, 50, 50, 50},
		{55, 50, 50, 52}, // 51.5 rounds up
		{51, 50, 50, 50}, // 50.3 rounds down
		{150, -20, 50, 45},
	}

	for _, tt := range tests {
		if got := Combine(tt.i, tt.p, tt.c); got != tt.expected {
			t.Errorf("Combine(%d, %d, %d) = %d, want %d", tt.i, tt.p, tt.c, got, tt.expected)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		trust    int
		expected string
	}{
		{100, "High Trust"},
		{76, "High Trust"},
		{75, "Caution"},
		{41, "Caution"},
		{40, "High Risk"},
		{0, "High Risk"},
	}

	for _, tt := range tests {
		if got := Label(tt.trust); got != tt.expected {
			t.Errorf("Label(%d) = %q, want %q", tt.trust, got, tt.expected)
		}
	}
}
