package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/unearth/internal/model"
)

// Transcriber turns speech in an audio or video payload into text
type Transcriber interface {
	Transcribe(ctx context.Context, media model.InlinePayload) (string, error)
}

// Speaker synthesizes speech from text
type Speaker interface {
	Speak(ctx context.Context, text string) (model.InlinePayload, error)
}

// OpenAIAudio implements Transcriber and Speaker with the OpenAI audio API
type OpenAIAudio struct {
	client *openai.Client
	config Config
}

// NewOpenAIAudio creates the audio backend. Only OpenAI-compatible
// endpoints serve transcription and speech.
func NewOpenAIAudio(config Config) (*OpenAIAudio, error) {
	client, err := newOpenAIClient(config)
	if err != nil {
		return nil, err
	}
	return &OpenAIAudio{client: client, config: config}, nil
}

// Transcribe uploads the payload with a filename whose extension matches
// the media type, which is how the API detects the container
func (a *OpenAIAudio) Transcribe(ctx context.Context, media model.InlinePayload) (string, error) {
	raw, err := media.Bytes()
	if err != nil {
		return "", fmt.Errorf("decode media: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty media payload")
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOf(a.config, 120*time.Second))
	defer cancel()

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    pick(a.config.TranscribeModel, openai.Whisper1),
		FilePath: "media" + audioExtension(media.MediaType),
		Reader:   bytes.NewReader(raw),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Speak renders text as MP3 in the configured voice
func (a *OpenAIAudio) Speak(ctx context.Context, text string) (model.InlinePayload, error) {
	if strings.TrimSpace(text) == "" {
		return model.InlinePayload{}, fmt.Errorf("nothing to synthesize")
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOf(a.config, 120*time.Second))
	defer cancel()

	resp, err := a.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(pick(a.config.SpeechModel, string(openai.TTSModel1))),
		Input:          text,
		Voice:          openai.SpeechVoice(pick(a.config.Voice, string(openai.VoiceOnyx))),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer func() { _ = resp.Close() }()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("read speech: %w", err)
	}

	return model.NewInlinePayload("audio/mpeg", audio), nil
}

var audioExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/flac":  ".flac",
	"video/mp4":   ".mp4",
	"video/webm":  ".webm",
	"video/mpeg":  ".mpeg",
}

func audioExtension(mediaType string) string {
	if ext, ok := audioExtensions[mediaType]; ok {
		return ext
	}
	return ".mp3"
}
