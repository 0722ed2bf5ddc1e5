package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

const (
	defaultSampleRate = 16000
	framesPerBuffer   = 1024
	channels          = 1
	bitsPerSample     = 16

	// MIMEType of the concatenated chunks.
	MIMEType = "audio/wav"

	// streamingSize marks RIFF and data sizes unknown when the header is
	// written ahead of the samples.
	streamingSize = 0xFFFFFFFF
)

// PortAudioMicrophone records 16-bit mono PCM from the default input device
// and emits it as a streamed WAV file, one chunk per tick.
type PortAudioMicrophone struct {
	sampleRate int
	logger     *zap.Logger
}

var _ repositories.Microphone = (*PortAudioMicrophone)(nil)

// NewPortAudioMicrophone creates the adapter. Nothing is opened until Open.
func NewPortAudioMicrophone(sampleRate int, logger *zap.Logger) *PortAudioMicrophone {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
		logger.Info("Using default sampleRate", zap.Int("sampleRate", sampleRate))
	}
	return &PortAudioMicrophone{sampleRate: sampleRate, logger: logger}
}

// Open implements Microphone
func (m *PortAudioMicrophone) Open(ctx context.Context, tick time.Duration) (repositories.AudioStream, error) {
	const op = "portaudio.Open"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, domain.Wrap(domain.KindPermissionDenied, op, "Failed to initialize PortAudio", err)
	}

	s := &portAudioStream{
		chunker: newPCMChunker(m.sampleRate),
		chunks:  make(chan []byte, 16),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		logger:  m.logger,
	}

	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(m.sampleRate), framesPerBuffer, s.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, domain.Wrap(domain.KindPermissionDenied, op, "Failed to open input device", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, domain.Wrap(domain.KindPermissionDenied, op, "Failed to start input device", err)
	}
	s.stream = stream

	go s.flushLoop(tick)

	m.logger.Debug("Input device opened",
		zap.Int("sampleRate", m.sampleRate),
		zap.Duration("tick", tick))
	return s, nil
}

type portAudioStream struct {
	stream  *portaudio.Stream
	chunker *pcmChunker
	chunks  chan []byte
	logger  *zap.Logger

	stopOnce  sync.Once
	closeOnce sync.Once
	stopped   chan struct{}
	done      chan struct{}
	stopErr   error
}

// callback is called by PortAudio when audio data is available
func (s *portAudioStream) callback(in []int16) {
	s.chunker.write(in)
}

func (s *portAudioStream) flushLoop(tick time.Duration) {
	defer close(s.done)
	defer close(s.chunks)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if chunk := s.chunker.flush(); len(chunk) > 0 {
				s.chunks <- chunk
			}
		case <-s.stopped:
			if chunk := s.chunker.flush(); len(chunk) > 0 {
				s.chunks <- chunk
			}
			return
		}
	}
}

func (s *portAudioStream) Chunks() <-chan []byte {
	return s.chunks
}

// Stop stops the device, so no callback runs afterwards, then flushes the
// remaining samples and closes Chunks.
func (s *portAudioStream) Stop() error {
	s.stopOnce.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.stopErr = fmt.Errorf("failed to stop stream: %w", err)
		}
		close(s.stopped)
	})
	return s.stopErr
}

func (s *portAudioStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Stop()
		if closeErr := s.stream.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close stream: %w", closeErr)
		}
		if termErr := portaudio.Terminate(); termErr != nil && err == nil {
			err = fmt.Errorf("failed to terminate PortAudio: %w", termErr)
		}
	})
	return err
}

func (s *portAudioStream) MIMEType() string {
	return MIMEType
}

// pcmChunker turns int16 samples into little-endian WAV bytes. The first
// flushed chunk carries the header, so the chunks concatenate into one file.
type pcmChunker struct {
	mu         sync.Mutex
	sampleRate int
	pending    []byte
	headerSent bool
}

func newPCMChunker(sampleRate int) *pcmChunker {
	return &pcmChunker{sampleRate: sampleRate}
}

func (c *pcmChunker) write(samples []int16) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sample := range samples {
		c.pending = binary.LittleEndian.AppendUint16(c.pending, uint16(sample))
	}
}

// flush returns the samples written since the previous flush. It returns
// nil when nothing new was recorded.
func (c *pcmChunker) flush() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil
	}

	var chunk []byte
	if !c.headerSent {
		chunk = wavHeader(c.sampleRate)
		c.headerSent = true
	}
	chunk = append(chunk, c.pending...)
	c.pending = nil
	return chunk
}

// wavHeader is a 44-byte PCM header with unknown sizes.
func wavHeader(sampleRate int) []byte {
	blockAlign := channels * bitsPerSample / 8
	header := make([]byte, 0, 44)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, streamingSize)
	header = append(header, "WAVE"...)
	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, 1) // PCM
	header = binary.LittleEndian.AppendUint16(header, channels)
	header = binary.LittleEndian.AppendUint32(header, uint32(sampleRate))
	header = binary.LittleEndian.AppendUint32(header, uint32(sampleRate*blockAlign))
	header = binary.LittleEndian.AppendUint16(header, uint16(blockAlign))
	header = binary.LittleEndian.AppendUint16(header, bitsPerSample)
	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, streamingSize)
	return header
}
