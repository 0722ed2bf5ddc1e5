package entities

import (
	"sync"
	"testing"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession("session-123")

	if session.ID != "session-123" {
		t.Errorf("Expected ID session-123, got %s", session.ID)
	}
	if session.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if len(session.Messages()) != 0 {
		t.Errorf("Expected empty messages, got %d messages", len(session.Messages()))
	}
	if _, ok := session.LastMessage(); ok {
		t.Error("Expected no last message")
	}
}

func TestAddMessage(t *testing.T) {
	session := NewSession("session")

	session.AddMessage(SenderAI, "Hi, I'm Rev!")
	added := session.AddMessage(SenderSystem, "You stopped the response.")

	messages := session.Messages()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Sender != SenderAI || messages[0].Text != "Hi, I'm Rev!" {
		t.Errorf("Unexpected first message %+v", messages[0])
	}
	if added.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	last, ok := session.LastMessage()
	if !ok || last != added {
		t.Errorf("Expected last message %+v, got %+v", added, last)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	session := NewSession("session")
	session.AddMessage(SenderAI, "original")

	messages := session.Messages()
	messages[0].Text = "mutated"

	if session.Messages()[0].Text != "original" {
		t.Error("Messages must not expose internal storage")
	}
}

func TestAddMessageConcurrent(t *testing.T) {
	session := NewSession("session")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.AddMessage(SenderSystem, "line")
		}()
	}
	wg.Wait()

	if len(session.Messages()) != 50 {
		t.Errorf("Expected 50 messages, got %d", len(session.Messages()))
	}
}

func TestSessionValidation(t *testing.T) {
	if err := NewSession("").Validate(); err == nil {
		t.Error("Expected validation error for empty ID")
	}
	if err := NewSession("session").Validate(); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}
