package repositories

import (
	"context"
	"time"
)

// Microphone acquires the capture device.
type Microphone interface {
	// Open asks for device access and starts recording, emitting one chunk
	// per tick. It fails with a permission_denied error when access is
	// refused.
	Open(ctx context.Context, tick time.Duration) (AudioStream, error)
}

// AudioStream is one active recording.
type AudioStream interface {
	// Chunks delivers captured fragments in order. The channel is closed
	// after Stop has flushed the final fragment.
	Chunks() <-chan []byte
	// Stop ends recording and flushes buffered data.
	Stop() error
	// Close releases the device.
	Close() error
	// MIMEType is the container of the concatenated chunks.
	MIMEType() string
}
