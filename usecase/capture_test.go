package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rev-voice/domain"
)

func newTestCapture(t *testing.T) (*CaptureController, *fakeMicrophone) {
	t.Helper()
	mic := &fakeMicrophone{}
	return NewCaptureController(mic, time.Second, zaptest.NewLogger(t)), mic
}

func TestCapture_ConcatenatesChunksInOrder(t *testing.T) {
	capture, mic := newTestCapture(t)
	require.NoError(t, capture.Start(context.Background()))

	stream := mic.last()
	stream.push(make([]byte, 1000))
	stream.push(make([]byte, 1200))
	stream.flushOnStop(make([]byte, 900))

	blob, err := capture.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3100, blob.Size())
	assert.Equal(t, "audio/webm", blob.MIMEType)
	assert.Equal(t, "recording.webm", blob.Filename)
	assert.True(t, stream.isClosed(), "device must be released")
	assert.False(t, capture.Active())
}

func TestCapture_ArrivalOrder(t *testing.T) {
	capture, mic := newTestCapture(t)
	require.NoError(t, capture.Start(context.Background()))

	stream := mic.last()
	stream.push([]byte("one-"))
	stream.push([]byte{})
	stream.push([]byte("two-"))
	stream.flushOnStop([]byte("three"))

	blob, err := capture.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one-two-three", string(blob.Data))
}

func TestCapture_StopBeforeAnyData(t *testing.T) {
	capture, _ := newTestCapture(t)
	require.NoError(t, capture.Start(context.Background()))

	blob, err := capture.Stop(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, blob.Data)
	assert.Zero(t, blob.Size())
}

func TestCapture_StartTwice(t *testing.T) {
	capture, _ := newTestCapture(t)
	require.NoError(t, capture.Start(context.Background()))

	assert.ErrorIs(t, capture.Start(context.Background()), ErrCaptureActive)
	assert.True(t, capture.Active())
}

func TestCapture_StopWithoutStart(t *testing.T) {
	capture, _ := newTestCapture(t)

	_, err := capture.Stop(context.Background())
	assert.ErrorIs(t, err, ErrCaptureInactive)
}

func TestCapture_PermissionDenied(t *testing.T) {
	capture, mic := newTestCapture(t)
	mic.err = errors.New("device busy")

	err := capture.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindPermissionDenied, domain.KindOf(err))
	assert.Equal(t, MessageMicrophoneUnavailable, domain.MessageOf(err, ""))
	assert.False(t, capture.Active())
}

func TestCapture_CancelReleasesDevice(t *testing.T) {
	capture, mic := newTestCapture(t)
	require.NoError(t, capture.Start(context.Background()))
	mic.last().push([]byte("discarded"))

	capture.Cancel()
	assert.True(t, mic.last().isClosed())
	assert.False(t, capture.Active())

	// The controller is usable again.
	require.NoError(t, capture.Start(context.Background()))
	blob, err := capture.Stop(context.Background())
	require.NoError(t, err)
	assert.Zero(t, blob.Size())
}

func TestRecordingFilename(t *testing.T) {
	assert.Equal(t, "recording.webm", recordingFilename("audio/webm"))
	assert.Equal(t, "recording.wav", recordingFilename("audio/x-wav"))
	assert.Equal(t, "recording.webm", recordingFilename(""))
}
