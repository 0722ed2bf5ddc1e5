package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

// MessageMicrophoneUnavailable is shown when the capture device cannot be
// acquired.
const MessageMicrophoneUnavailable = "Microphone access denied or unavailable"

var (
	// ErrCaptureActive is returned by Start while a recording is running.
	ErrCaptureActive = errors.New("capture already active")
	// ErrCaptureInactive is returned by Stop without a running recording.
	ErrCaptureInactive = errors.New("no active capture")
)

// recording is one acquisition of the microphone. buffer is owned by the
// collecting goroutine until done is closed.
type recording struct {
	stream  repositories.AudioStream
	buffer  entities.ChunkBuffer
	done    chan struct{}
	started time.Time
}

// CaptureController records one utterance at a time from the microphone.
type CaptureController struct {
	mic    repositories.Microphone
	tick   time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	current *recording
}

// NewCaptureController creates a controller emitting one chunk per tick.
func NewCaptureController(mic repositories.Microphone, tick time.Duration, logger *zap.Logger) *CaptureController {
	return &CaptureController{
		mic:    mic,
		tick:   tick,
		logger: logger,
	}
}

// Active reports whether a recording is running.
func (c *CaptureController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Start acquires the microphone and begins buffering chunks. It fails with a
// permission_denied error when the device cannot be opened.
func (c *CaptureController) Start(ctx context.Context) error {
	const op = "capture.Start"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return ErrCaptureActive
	}

	stream, err := c.mic.Open(ctx, c.tick)
	if err != nil {
		c.logger.Error("Error accessing microphone", zap.Error(err))
		return domain.Wrap(domain.KindPermissionDenied, op, MessageMicrophoneUnavailable, err)
	}

	rec := &recording{
		stream:  stream,
		done:    make(chan struct{}),
		started: time.Now(),
	}
	go rec.collect()
	c.current = rec

	c.logger.Info("Recording started",
		zap.String("mimeType", stream.MIMEType()),
		zap.Duration("tick", c.tick))
	return nil
}

func (r *recording) collect() {
	defer close(r.done)
	for chunk := range r.stream.Chunks() {
		r.buffer.Append(chunk)
	}
}

// Stop ends the recording, waits until the last chunk has been flushed and
// returns the chunks concatenated in arrival order. The device is released
// in every case. A recording without data yields an empty blob.
func (c *CaptureController) Stop(ctx context.Context) (entities.AudioBlob, error) {
	rec := c.take()
	if rec == nil {
		return entities.AudioBlob{}, ErrCaptureInactive
	}
	return c.finish(ctx, rec)
}

// finish stops a recording already detached from the controller.
func (c *CaptureController) finish(ctx context.Context, rec *recording) (entities.AudioBlob, error) {
	const op = "capture.Stop"

	defer c.release(rec)

	if err := rec.stream.Stop(); err != nil {
		c.logger.Warn("Failed to stop recorder cleanly", zap.Error(err))
	}

	select {
	case <-rec.done:
	case <-ctx.Done():
		return entities.AudioBlob{}, domain.Wrap(domain.KindUnknown, op, "Recording was interrupted", ctx.Err())
	}

	mimeType := rec.stream.MIMEType()
	blob := rec.buffer.Drain(mimeType, recordingFilename(mimeType))

	c.logger.Info("Recording finished",
		zap.Int("audioBytes", blob.Size()),
		zap.Duration("duration", time.Since(rec.started)))

	return blob, nil
}

// Cancel discards the running recording, if any, and releases the device.
func (c *CaptureController) Cancel() {
	rec := c.take()
	if rec == nil {
		return
	}

	if err := rec.stream.Stop(); err != nil {
		c.logger.Warn("Failed to stop recorder cleanly", zap.Error(err))
	}
	c.release(rec)
	c.logger.Info("Recording discarded")
}

func (c *CaptureController) take() *recording {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.current
	c.current = nil
	return rec
}

func (c *CaptureController) release(rec *recording) {
	if err := rec.stream.Close(); err != nil {
		c.logger.Warn("Failed to release microphone", zap.Error(err))
	}
}

// recordingFilename names the upload after the container, e.g.
// recording.webm for audio/webm.
func recordingFilename(mimeType string) string {
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return "recording." + strings.TrimPrefix(sub, "x-")
	}
	return entities.DefaultAudioFilename
}
