package playback

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/adapters/speaker"
)

const framesPerBuffer = 1024

// PortAudioPlayer writes PCM to the default output device.
type PortAudioPlayer struct {
	logger *zap.Logger
}

// NewPortAudioPlayer checks that PortAudio has an output device.
func NewPortAudioPlayer(logger *zap.Logger) (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	if _, err := portaudio.DefaultOutputDevice(); err != nil {
		return nil, fmt.Errorf("failed to get default output device: %w", err)
	}
	return &PortAudioPlayer{logger: logger}, nil
}

// Play implements speaker.Player
func (p *PortAudioPlayer) Play(ctx context.Context, pcm []int16, sampleRate, channels int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, &out)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	for offset := 0; offset < len(pcm); offset += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, pcm[offset:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write output stream: %w", err)
		}
	}
	return nil
}

var _ speaker.Player = (*PortAudioPlayer)(nil)
