// Command wsprobe streams an audio file to the relay's chunked upload
// endpoint and prints the reply.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
)

const chunkSize = 1024

func main() {
	server := flag.String("server", "ws://localhost:3000/ws/process-audio", "chunked upload endpoint")
	file := flag.String("file", "", "audio file to send")
	timeout := flag.Duration("timeout", 30*time.Second, "time to wait for the reply")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *file == "" {
		logger.Fatal("Missing -file")
	}
	audio, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("Failed to read audio file", zap.Error(err))
	}

	if u, err := url.Parse(*server); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		logger.Fatal("Invalid server URL, expected ws:// or wss://", zap.String("server", *server))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	logger.Info("Connecting", zap.String("server", *server))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *server, nil)
	if err != nil {
		logger.Fatal("Dial failed", zap.Error(err))
	}
	defer conn.Close()

	if err := stream(conn, audio, *file, logger); err != nil {
		logger.Fatal("Failed to stream audio", zap.Error(err))
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		logger.Fatal("No reply", zap.Error(err))
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		logger.Fatal("Invalid reply", zap.Error(err), zap.ByteString("payload", payload))
	}

	switch head.Type {
	case domain.MessageTypeResponse:
		var response domain.ProcessAudioResponse
		json.Unmarshal(payload, &response)
		fmt.Println(response.Text)
	case domain.MessageTypeError:
		var failure domain.ErrorResponse
		json.Unmarshal(payload, &failure)
		fmt.Fprintf(os.Stderr, "error %d: %s\n", failure.Status, failure.Error)
		os.Exit(1)
	default:
		logger.Fatal("Unexpected reply", zap.ByteString("payload", payload))
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func stream(conn *websocket.Conn, audio []byte, path string, logger *zap.Logger) error {
	mimeType := entities.NormalizeAudioMIMEType(mime.TypeByExtension(filepath.Ext(path)))

	start := domain.ControlMessage{
		Type:     domain.MessageTypeListeningStart,
		MIMEType: mimeType,
		Filename: filepath.Base(path),
	}
	if err := conn.WriteJSON(start); err != nil {
		return fmt.Errorf("failed to send listening_start: %w", err)
	}

	chunks := 0
	for offset := 0; offset < len(audio); offset += chunkSize {
		end := min(offset+chunkSize, len(audio))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return fmt.Errorf("failed to send chunk %d: %w", chunks, err)
		}
		chunks++
	}

	logger.Info("Audio sent",
		zap.String("mimeType", mimeType),
		zap.Int("chunks", chunks),
		zap.Int("bytes", len(audio)))

	return conn.WriteJSON(domain.ControlMessage{Type: domain.MessageTypeListeningEnd})
}
