package usecase

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

// Relay failure messages that do not come from the upstream adapter.
const (
	MessageNoAudio        = "No audio file provided"
	MessageProcessFailure = "Failed to process audio"
	MessageUploadFailure  = "Could not store the uploaded audio"
)

// RelayService receives one recording per request, hands it to the
// generative API and returns the reply text. It holds no per-request state.
type RelayService struct {
	responder repositories.AudioResponder
	uploads   repositories.UploadStore
	retain    int
	logger    *zap.Logger
}

// NewRelayService creates a relay. retain > 0 prunes the upload directory to
// that many files after every upload.
func NewRelayService(responder repositories.AudioResponder, uploads repositories.UploadStore, retain int, logger *zap.Logger) *RelayService {
	return &RelayService{
		responder: responder,
		uploads:   uploads,
		retain:    retain,
		logger:    logger,
	}
}

// ProcessUpload stores r as a temporary file, reads it back, disposes of it
// and relays the bytes upstream. The temporary file is handled before the
// upstream call so its outcome cannot leak the file.
func (s *RelayService) ProcessUpload(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	const op = "relay.ProcessUpload"

	path, err := s.uploads.Save(ctx, r)
	if err != nil {
		return "", domain.Wrap(domain.KindUnknown, op, MessageUploadFailure, err)
	}

	audio, err := s.uploads.Consume(ctx, path)
	if err != nil {
		return "", domain.Wrap(domain.KindUnknown, op, MessageUploadFailure, err)
	}

	if s.retain > 0 {
		s.prune(ctx)
	}

	return s.ProcessAudio(ctx, audio, mimeType)
}

// ProcessAudio relays an in-memory recording upstream.
func (s *RelayService) ProcessAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	s.logger.Info("Processing audio",
		zap.Int("audioBytes", len(audio)),
		zap.String("mimeType", mimeType))

	text, err := s.responder.RespondToAudio(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}
	return text, nil
}

// prune is best-effort; failures are logged and never reach the client.
func (s *RelayService) prune(ctx context.Context) {
	deleted, err := s.uploads.Prune(ctx, s.retain)
	if err != nil {
		s.logger.Warn("Failed to prune upload directory", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Debug("Pruned upload directory",
			zap.Int("deleted", deleted),
			zap.Int("retain", s.retain))
	}
}

// RelayFailure maps an error to the HTTP status and message returned to the
// client. Upstream detail is appended when it helps the user.
func RelayFailure(err error) (int, string) {
	detail := domain.DetailOf(err)

	switch domain.KindOf(err) {
	case domain.KindInvalidRequest:
		return http.StatusBadRequest, domain.MessageOf(err, MessageNoAudio)
	case domain.KindUpstreamRateLimited:
		return http.StatusTooManyRequests, domain.MessageOf(err, "")
	case domain.KindUpstreamNotFound:
		return http.StatusNotFound, domain.MessageOf(err, "")
	case domain.KindUpstreamBadRequest:
		message := domain.MessageOf(err, "")
		if detail != "" {
			message = fmt.Sprintf("%s %s", message, detail)
		}
		return http.StatusBadRequest, message
	}

	reason := domain.MessageOf(err, "")
	if detail != "" {
		reason = detail
	}
	if reason == "" {
		reason = err.Error()
	}
	return http.StatusInternalServerError, fmt.Sprintf("%s: %s", MessageProcessFailure, reason)
}
