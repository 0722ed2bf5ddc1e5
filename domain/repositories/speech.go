package repositories

import (
	"context"

	"github.com/satriahrh/rev-voice/domain/entities"
)

// Synthesizer speaks text aloud.
type Synthesizer interface {
	// Speak blocks until the utterance finishes, fails, or ctx is cancelled.
	// A nil voice means the engine default.
	Speak(ctx context.Context, text string, voice *entities.Voice, style entities.SpeechStyle) error
	// Stop interrupts any ongoing utterance.
	Stop()
}

// VoiceCatalogSource exposes the voices of the synthesis engine. The list may
// be empty until the engine reports it ready.
type VoiceCatalogSource interface {
	Voices() []entities.Voice
	// Ready is closed once, when the catalog has been populated.
	Ready() <-chan struct{}
}
