package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/internal/websocket"
	"github.com/satriahrh/rev-voice/usecase"
)

const (
	serviceName = "rev-voice-relay"

	// audioField is the multipart field carrying the recording.
	audioField = "audio"

	MessageTooLarge      = "Recording is too large. Please record a shorter message."
	MessageInternalError = "Internal server error"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, relay *usecase.RelayService, publicDir string, logger *zap.Logger) {
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: serviceName,
		})
	})

	e.POST("/api/process-audio", func(c echo.Context) error {
		return processAudio(c, relay, logger)
	})

	// Chunked upload over WebSocket
	e.GET("/ws/process-audio", func(c echo.Context) error {
		return websocket.HandleProcessAudio(hub, c, logger)
	})

	if info, err := os.Stat(publicDir); err == nil && info.IsDir() {
		e.Static("/", publicDir)
		logger.Info("Serving static front end", zap.String("dir", publicDir))
	}
}

// processAudio relays one uploaded recording. Every outcome is a JSON body.
func processAudio(c echo.Context, relay *usecase.RelayService, logger *zap.Logger) error {
	fileHeader, err := c.FormFile(audioField)
	if err != nil {
		logger.Warn("Audio upload missing", zap.Error(err))
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error: usecase.MessageNoAudio,
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error: usecase.MessageNoAudio,
		})
	}
	defer file.Close()

	mimeType := entities.NormalizeAudioMIMEType(fileHeader.Header.Get(echo.HeaderContentType))

	text, err := relay.ProcessUpload(c.Request().Context(), file, mimeType)
	if err != nil {
		status, message := usecase.RelayFailure(err)
		logger.Error("Failed to process audio",
			zap.Int("status", status),
			zap.String("filename", fileHeader.Filename),
			zap.Int64("size", fileHeader.Size),
			zap.Error(err))
		return c.JSON(status, domain.ErrorResponse{Error: message})
	}

	return c.JSON(http.StatusOK, domain.ProcessAudioResponse{
		Success: true,
		Text:    text,
	})
}

// NewHTTPErrorHandler renders errors raised outside the handlers, such as
// body limits, unknown routes and recovered panics, as an ErrorResponse.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := MessageInternalError

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch {
			case status == http.StatusRequestEntityTooLarge:
				message = MessageTooLarge
			case status < http.StatusInternalServerError:
				message = fmt.Sprint(he.Message)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, domain.ErrorResponse{Error: message})
		}
		if err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}
