package elevenlabs

import (
	"context"
)

// Servicer defines the interface for TTS service operations
type Servicer interface {
	// Synthesize converts text to MP3 audio using the given voice
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// Ensure Service implements Servicer
var _ Servicer = (*Service)(nil)
