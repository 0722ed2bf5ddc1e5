package repositories

import (
	"context"

	"github.com/satriahrh/rev-voice/domain/entities"
)

// Relay sends a recording to the backend and returns the reply text.
type Relay interface {
	Send(ctx context.Context, blob entities.AudioBlob) (string, error)
}
