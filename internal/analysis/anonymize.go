package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/unearth/internal/llm"
	"github.com/ppiankov/unearth/internal/model"
)

// VoiceAnonymizer replaces the speaker's voice with a synthetic one by
// re-voicing the transcript
type VoiceAnonymizer struct {
	transcriber llm.Transcriber
	speaker     llm.Speaker
}

// NewVoiceAnonymizer creates an anonymizer
func NewVoiceAnonymizer(transcriber llm.Transcriber, speaker llm.Speaker) *VoiceAnonymizer {
	return &VoiceAnonymizer{transcriber: transcriber, speaker: speaker}
}

// Anonymize re-voices the media. A transcript already produced upstream is
// reused; otherwise the media is transcribed first.
func (v *VoiceAnonymizer) Anonymize(ctx context.Context, media model.InlinePayload, transcript string) (*model.Anonymization, error) {
	if strings.TrimSpace(transcript) == "" {
		t, err := v.transcriber.Transcribe(ctx, media)
		if err != nil {
			return nil, fmt.Errorf("anonymize: %w", err)
		}
		transcript = t
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("anonymize: no speech to re-voice")
	}

	audio, err := v.speaker.Speak(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("anonymize: %w", err)
	}

	return &model.Anonymization{AnonymizedAudioDataURI: audio.DataURI()}, nil
}
