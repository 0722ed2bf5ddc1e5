package llm

import (
	"context"
	"sync"

	"github.com/satriahrh/rev-voice/domain/repositories"
)

// MockGemini is a scripted AudioResponder for local development and tests.
type MockGemini struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []MockCall
}

// MockCall records one RespondToAudio invocation.
type MockCall struct {
	Audio    []byte
	MIMEType string
}

var _ repositories.AudioResponder = (*MockGemini)(nil)

// NewMockGemini creates a mock that always answers with reply.
func NewMockGemini(reply string) *MockGemini {
	return &MockGemini{reply: reply}
}

// FailWith makes subsequent calls return err.
func (m *MockGemini) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// RespondToAudio implements AudioResponder
func (m *MockGemini) RespondToAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Audio: append([]byte(nil), audio...), MIMEType: mimeType})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

// Calls returns the recorded invocations.
func (m *MockGemini) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
