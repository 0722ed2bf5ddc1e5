package repositories

import "context"

// AudioResponder abstracts the external generative-language API. It receives
// one recorded utterance and returns the assistant's reply text.
type AudioResponder interface {
	// RespondToAudio sends audio tagged with mimeType as a single user turn.
	RespondToAudio(ctx context.Context, audio []byte, mimeType string) (string, error)
}
