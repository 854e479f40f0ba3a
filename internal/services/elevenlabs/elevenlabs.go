// Package elevenlabs wraps the ElevenLabs TTS client behind a narrow interface
package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"time"

	el "github.com/haguro/elevenlabs-go"
)

const requestTimeout = 60 * time.Second

// Service implements the Servicer interface using the ElevenLabs API
type Service struct {
	client *el.Client
}

// NewService creates a new ElevenLabs service instance
func NewService(apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs API key is not set")
	}

	return &Service{
		client: el.NewClient(context.Background(), apiKey, requestTimeout),
	}, nil
}

// Synthesize converts text to MP3 audio using the given voice
func (s *Service) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("cannot synthesize empty text")
	}

	audio, err := s.client.TextToSpeech(voiceID, el.TextToSpeechRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: &el.VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			SpeakerBoost:    true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("text-to-speech request failed: %w", err)
	}

	return audio, nil
}
