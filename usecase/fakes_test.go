package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

// fakeMicrophone hands out fakeStreams, or fails with err.
type fakeMicrophone struct {
	mu      sync.Mutex
	err     error
	streams []*fakeStream
}

func (m *fakeMicrophone) Open(ctx context.Context, tick time.Duration) (repositories.AudioStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	stream := &fakeStream{chunks: make(chan []byte, 64), pending: nil}
	m.streams = append(m.streams, stream)
	return stream, nil
}

func (m *fakeMicrophone) last() *fakeStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

// fakeStream emits pushed chunks. Chunks queued with flushOnStop are only
// delivered by Stop, like a recorder flushing its last partial tick.
type fakeStream struct {
	mu      sync.Mutex
	chunks  chan []byte
	pending [][]byte
	stopped bool
	closed  bool
}

func (s *fakeStream) push(chunk []byte) {
	s.chunks <- chunk
}

func (s *fakeStream) flushOnStop(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, chunk)
}

func (s *fakeStream) Chunks() <-chan []byte {
	return s.chunks
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	for _, chunk := range s.pending {
		s.chunks <- chunk
	}
	close(s.chunks)
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) MIMEType() string {
	return entities.DefaultAudioMIMEType
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeRelay answers Send from a script. When block is set it waits for
// release or ctx.
type fakeRelay struct {
	mu      sync.Mutex
	text    string
	err     error
	block   bool
	// deaf ignores cancellation, like a transport without abort support.
	deaf    bool
	release chan struct{}
	started chan struct{}
	blobs   []entities.AudioBlob
}

func newFakeRelay(text string) *fakeRelay {
	return &fakeRelay{
		text:    text,
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
	}
}

func (r *fakeRelay) Send(ctx context.Context, blob entities.AudioBlob) (string, error) {
	r.mu.Lock()
	r.blobs = append(r.blobs, blob)
	block, deaf, text, err := r.block, r.deaf, r.text, r.err
	r.mu.Unlock()

	r.started <- struct{}{}
	if block && deaf {
		<-r.release
	} else if block {
		select {
		case <-r.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (r *fakeRelay) sent() []entities.AudioBlob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.AudioBlob(nil), r.blobs...)
}

// fakeSynthesizer records utterances. When block is set Speak waits for
// ctx or Stop.
type fakeSynthesizer struct {
	mu      sync.Mutex
	err     error
	block   bool
	spoken  []spoken
	stop    chan struct{}
	started chan struct{}
}

type spoken struct {
	text  string
	voice *entities.Voice
	style entities.SpeechStyle
}

func newFakeSynthesizer() *fakeSynthesizer {
	return &fakeSynthesizer{stop: make(chan struct{}, 1), started: make(chan struct{}, 8)}
}

func (s *fakeSynthesizer) Speak(ctx context.Context, text string, voice *entities.Voice, style entities.SpeechStyle) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, spoken{text: text, voice: voice, style: style})
	block, err := s.block, s.err
	s.mu.Unlock()

	s.started <- struct{}{}
	if block {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return context.Canceled
		}
	}
	return err
}

func (s *fakeSynthesizer) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *fakeSynthesizer) utterances() []spoken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spoken(nil), s.spoken...)
}

// staticCatalog is a VoiceCatalogSource whose readiness is driven by tests.
type staticCatalog struct {
	mu     sync.Mutex
	voices []entities.Voice
	ready  chan struct{}
	once   sync.Once
}

func newStaticCatalog(voices ...entities.Voice) *staticCatalog {
	c := &staticCatalog{voices: voices, ready: make(chan struct{})}
	if len(voices) > 0 {
		c.markReady()
	}
	return c
}

func (c *staticCatalog) Voices() []entities.Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entities.Voice(nil), c.voices...)
}

func (c *staticCatalog) Ready() <-chan struct{} {
	return c.ready
}

func (c *staticCatalog) populate(voices ...entities.Voice) {
	c.mu.Lock()
	c.voices = voices
	c.mu.Unlock()
	c.markReady()
}

func (c *staticCatalog) markReady() {
	c.once.Do(func() { close(c.ready) })
}
