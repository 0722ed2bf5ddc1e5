package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rev-voice/adapters/llm"
	"github.com/satriahrh/rev-voice/adapters/storage"
	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/usecase"
)

func setupTestServer(t *testing.T, gemini *llm.MockGemini) (*Hub, string) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	uploads, err := storage.NewDiskUploadStore(t.TempDir(), 0, logger)
	if err != nil {
		t.Fatalf("Failed to create upload store: %v", err)
	}
	relay := usecase.NewRelayService(gemini, uploads, 0, logger)
	hub := NewHub(relay, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws/process-audio", func(c echo.Context) error {
		return HandleProcessAudio(hub, c, logger)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/process-audio"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeJSON(t *testing.T, conn *websocket.Conn, msg domain.ControlMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to write control message: %v", err)
	}
}

func writeChunk(t *testing.T, conn *websocket.Conn, chunk []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		t.Fatalf("Failed to write audio chunk: %v", err)
	}
}

// readFrame reads one text frame and decodes its type plus the raw body.
func readFrame(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Fatalf("Expected text frame, got %d", messageType)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	return head.Type, payload
}

func TestHub_ChunkedUpload(t *testing.T) {
	gemini := llm.NewMockGemini("Hi, I'm Rev!")
	_, url := setupTestServer(t, gemini)
	conn := dial(t, url)

	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningStart, MIMEType: "audio/ogg"})
	writeChunk(t, conn, []byte("aaa"))
	writeChunk(t, conn, []byte("bb"))
	writeChunk(t, conn, []byte("c"))
	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningEnd})

	frameType, payload := readFrame(t, conn)
	if frameType != domain.MessageTypeResponse {
		t.Fatalf("Expected response frame, got %s: %s", frameType, payload)
	}

	var response domain.ProcessAudioResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success || response.Text != "Hi, I'm Rev!" {
		t.Errorf("Unexpected response %+v", response)
	}

	calls := gemini.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 upstream call, got %d", len(calls))
	}
	if string(calls[0].Audio) != "aaabbc" {
		t.Errorf("Chunks not concatenated in arrival order: %q", calls[0].Audio)
	}
	if calls[0].MIMEType != "audio/ogg" {
		t.Errorf("Expected audio/ogg, got %s", calls[0].MIMEType)
	}
}

func TestHub_UpstreamFailureFrame(t *testing.T) {
	gemini := llm.NewMockGemini("")
	gemini.FailWith(domain.NewError(domain.KindUpstreamRateLimited, "test", llm.MessageRateLimited))
	_, url := setupTestServer(t, gemini)
	conn := dial(t, url)

	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningStart})
	writeChunk(t, conn, []byte("audio"))
	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningEnd})

	frameType, payload := readFrame(t, conn)
	if frameType != domain.MessageTypeError {
		t.Fatalf("Expected error frame, got %s", frameType)
	}

	var failure domain.ErrorResponse
	if err := json.Unmarshal(payload, &failure); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if failure.Status != 429 || failure.Error != llm.MessageRateLimited {
		t.Errorf("Unexpected error frame %+v", failure)
	}
}

func TestHub_EmptyRecording(t *testing.T) {
	gemini := llm.NewMockGemini("unused")
	_, url := setupTestServer(t, gemini)
	conn := dial(t, url)

	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningStart})
	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningEnd})

	frameType, payload := readFrame(t, conn)
	if frameType != domain.MessageTypeError {
		t.Fatalf("Expected error frame, got %s", frameType)
	}
	if !strings.Contains(string(payload), usecase.MessageNoAudio) {
		t.Errorf("Expected %q in %s", usecase.MessageNoAudio, payload)
	}
	if len(gemini.Calls()) != 0 {
		t.Error("Empty recording must not reach the upstream")
	}
}

func TestHub_ProtocolMisuse(t *testing.T) {
	gemini := llm.NewMockGemini("reply")
	_, url := setupTestServer(t, gemini)
	conn := dial(t, url)

	// A chunk outside a recording is ignored.
	writeChunk(t, conn, []byte("stray"))

	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningEnd})
	frameType, payload := readFrame(t, conn)
	if frameType != domain.MessageTypeError || !strings.Contains(string(payload), MessageNotRecording) {
		t.Fatalf("Expected not-recording error, got %s", payload)
	}

	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningStart})
	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningStart})
	frameType, payload = readFrame(t, conn)
	if frameType != domain.MessageTypeError || !strings.Contains(string(payload), MessageRecordingActive) {
		t.Fatalf("Expected recording-active error, got %s", payload)
	}

	writeChunk(t, conn, []byte("ok"))
	writeJSON(t, conn, domain.ControlMessage{Type: domain.MessageTypeListeningEnd})
	frameType, _ = readFrame(t, conn)
	if frameType != domain.MessageTypeResponse {
		t.Fatalf("Expected response frame, got %s", frameType)
	}

	calls := gemini.Calls()
	if len(calls) != 1 || string(calls[0].Audio) != "ok" {
		t.Errorf("Stray chunk leaked into the recording: %+v", calls)
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub, url := setupTestServer(t, llm.NewMockGemini("reply"))

	conn := dial(t, url)
	waitFor(t, func() bool { return hub.Count() == 1 })

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}
