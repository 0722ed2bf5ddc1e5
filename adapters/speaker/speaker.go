package speaker

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/wujunwei928/edge-tts-go/edge_tts"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

const (
	// DefaultVoiceID is used when no catalog voice was selected.
	DefaultVoiceID = "en-US-AriaNeural"

	// MessageSynthesisFailed is the user-facing text of a synthesis error.
	MessageSynthesisFailed = "Speech synthesis failed"

	// go-mp3 always decodes to 16-bit stereo.
	decodedChannels = 2
)

// SynthesizeFunc turns text into MP3 bytes with the named voice.
type SynthesizeFunc func(ctx context.Context, voiceID, text string) ([]byte, error)

// Player plays interleaved 16-bit PCM until done or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, pcm []int16, sampleRate, channels int) error
}

// Config holds configuration for the Speaker
// Required fields:
// - Player: the output device
// Optional fields with defaults:
// - DefaultVoice: "en-US-AriaNeural", or the engine's own default
// - Synthesize: Microsoft Edge online TTS
type Config struct {
	DefaultVoice string
	Synthesize   SynthesizeFunc
	Player       Player
}

// Speaker synthesizes replies to MP3 with an online engine and plays them
// locally. One utterance plays at a time; a new Speak interrupts the
// previous one.
type Speaker struct {
	defaultVoice string
	synthesize   SynthesizeFunc
	player       Player
	logger       *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ repositories.Synthesizer = (*Speaker)(nil)

// NewSpeaker creates the adapter. It fails with a
// synthesis_unsupported error when no output device is given.
func NewSpeaker(config Config, logger *zap.Logger) (*Speaker, error) {
	const op = "speaker.NewSpeaker"

	if config.Player == nil {
		return nil, domain.NewError(domain.KindSynthesisUnsupported, op, "No audio output device available")
	}
	if config.DefaultVoice == "" {
		config.DefaultVoice = DefaultVoiceID
		logger.Info("Using default voice", zap.String("voice", config.DefaultVoice))
	}
	if config.Synthesize == nil {
		config.Synthesize = EdgeSynthesize
	}

	return &Speaker{
		defaultVoice: config.DefaultVoice,
		synthesize:   config.Synthesize,
		player:       config.Player,
		logger:       logger,
	}, nil
}

// Speak implements Synthesizer. Rate and pitch are left to the voice; volume
// scales the decoded samples.
func (s *Speaker) Speak(ctx context.Context, text string, voice *entities.Voice, style entities.SpeechStyle) error {
	const op = "speaker.Speak"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.replace(cancel)

	voiceID := s.defaultVoice
	if voice != nil && voice.ID != "" {
		voiceID = voice.ID
	}

	started := time.Now()
	audio, err := s.synthesizeContext(ctx, voiceID, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("Speech synthesis failed", zap.String("voice", voiceID), zap.Error(err))
		return domain.Wrap(domain.KindSynthesis, op, MessageSynthesisFailed, err)
	}

	pcm, sampleRate, err := decodeMP3(audio)
	if err != nil {
		return domain.Wrap(domain.KindSynthesis, op, MessageSynthesisFailed, err)
	}
	scaleVolume(pcm, style.Volume)

	s.logger.Debug("Speaking",
		zap.String("voice", voiceID),
		zap.Int("sampleRate", sampleRate),
		zap.Duration("synthesis", time.Since(started)))

	if err := s.player.Play(ctx, pcm, sampleRate, decodedChannels); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.Wrap(domain.KindSynthesis, op, MessageSynthesisFailed, err)
	}
	return nil
}

// Stop implements Synthesizer
func (s *Speaker) Stop() {
	s.replace(nil)
}

// replace interrupts the current utterance and records the next one.
func (s *Speaker) replace(cancel context.CancelFunc) {
	s.mu.Lock()
	previous := s.cancel
	s.cancel = cancel
	s.mu.Unlock()

	if previous != nil {
		previous()
	}
}

// synthesizeContext lets ctx abandon a synthesis call that ignores it.
func (s *Speaker) synthesizeContext(ctx context.Context, voiceID, text string) ([]byte, error) {
	type result struct {
		audio []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		audio, err := s.synthesize(ctx, voiceID, text)
		done <- result{audio, err}
	}()

	select {
	case r := <-done:
		return r.audio, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EdgeSynthesize is the SynthesizeFunc of the Edge online service. The
// underlying client does not take a context.
func EdgeSynthesize(_ context.Context, voiceID, text string) ([]byte, error) {
	communicate, err := edge_tts.New(voiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Edge TTS communicator: %w", err)
	}
	defer communicate.Close()

	audio, err := communicate.Output(text)
	if err != nil {
		return nil, fmt.Errorf("Edge TTS synthesis failed: %w", err)
	}
	return audio, nil
}

// decodeMP3 returns interleaved stereo samples and their rate.
func decodeMP3(audio []byte) ([]int16, int, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}

	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm, decoder.SampleRate(), nil
}

// scaleVolume applies a 0..1 gain in place.
func scaleVolume(pcm []int16, volume float64) {
	if volume >= 1 {
		return
	}
	if volume < 0 {
		volume = 0
	}
	for i, sample := range pcm {
		pcm[i] = int16(float64(sample) * volume)
	}
}
