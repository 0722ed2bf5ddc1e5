package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

const (
	defaultTimeout = 30 * time.Second
	processPath    = "/api/process-audio"
	audioField     = "audio"
)

// User-facing messages for relay failures.
const (
	MessageNoResponse       = "No response from server. Please try again."
	MessageInvalidResponse  = "Received invalid response from server."
	MessageProcessingFailed = "Error processing audio. Please try again."
	MessageUnreachable      = "Could not reach the server. Please check your connection and try again."
	MessageTimedOut         = "The server took too long to respond. Please try again."
)

// ClientConfig holds configuration for the relay client
// Required fields:
// - BaseURL: scheme and host of the relay server
// Optional fields with defaults:
// - Timeout: 30s
// - HTTPClient: a client with Timeout
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client uploads recordings to the relay server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.Relay = (*Client)(nil)

// relayBody is decoded loosely so that a missing field can be told apart
// from an empty one.
type relayBody struct {
	Success bool    `json:"success"`
	Text    *string `json:"text"`
	Error   *string `json:"error"`
}

// ValidateClientConfig validates the ClientConfig
func ValidateClientConfig(config ClientConfig) error {
	if config.BaseURL == "" {
		return errors.New("relay base URL is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewClient creates a relay client.
func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	if err := ValidateClientConfig(config); err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
			logger.Info("Using default timeout", zap.Duration("timeout", timeout))
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   strings.TrimRight(config.BaseURL, "/") + processPath,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Send uploads blob as the multipart field "audio" and returns the reply
// text. Cancelling ctx aborts the request.
func (c *Client) Send(ctx context.Context, blob entities.AudioBlob) (string, error) {
	const op = "relay.Send"

	body, contentType, err := encodeUpload(blob)
	if err != nil {
		return "", domain.Wrap(domain.KindRelay, op, MessageProcessingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", domain.Wrap(domain.KindRelay, op, MessageProcessingFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(op, err)
	}

	c.logger.Debug("Relay responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("audioBytes", blob.Size()),
		zap.Duration("elapsed", time.Since(started)))

	return interpret(op, resp.StatusCode, raw)
}

func encodeUpload(blob entities.AudioBlob) (*bytes.Buffer, string, error) {
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = entities.DefaultAudioMIMEType
	}
	filename := blob.Filename
	if filename == "" {
		filename = entities.DefaultAudioFilename
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, audioField, filename))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(blob.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &body, writer.FormDataContentType(), nil
}

// interpret applies the reply precedence: HTTP status first, then the body.
// A message from the server always wins over a generic one.
func interpret(op string, status int, raw []byte) (string, error) {
	if status < 200 || status > 299 {
		var body relayBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return "", statusError(op, status, fmt.Sprintf("HTTP error: %d", status))
		}
		if body.Error != nil && *body.Error != "" {
			return "", statusError(op, status, *body.Error)
		}
		return "", statusError(op, status, fmt.Sprintf("Server error: %d", status))
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", domain.NewError(domain.KindRelay, op, MessageNoResponse)
	}

	var body relayBody
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return "", domain.Wrap(domain.KindRelay, op, MessageProcessingFailed, err)
	}
	if body.Error != nil && *body.Error != "" {
		return "", domain.NewError(domain.KindRelay, op, *body.Error)
	}
	if body.Text == nil || *body.Text == "" {
		return "", domain.NewError(domain.KindRelay, op, MessageInvalidResponse)
	}

	return *body.Text, nil
}

func statusError(op string, status int, message string) error {
	return &domain.Error{
		Kind:    domain.KindRelay,
		Op:      op,
		Message: message,
		Detail:  fmt.Sprintf("status %d", status),
	}
}

func transportError(op string, err error) error {
	message := MessageUnreachable
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		message = MessageTimedOut
	}
	return &domain.Error{Kind: domain.KindTransport, Op: op, Message: message, Cause: err}
}
