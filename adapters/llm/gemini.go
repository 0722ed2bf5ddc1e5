package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

const (
	defaultModel          = "gemini-1.5-flash"
	defaultAPIVersion     = "v1beta"
	defaultTimeoutSeconds = 30
)

// User-facing messages for upstream failures.
const (
	MessageRateLimited       = "Rate limit exceeded. Please try again later."
	MessageModelNotFound     = "API model not found. Please check configuration."
	MessageBadAudio          = "Invalid request. Please check your audio format."
	MessageUpstreamFailure   = "Failed to process audio"
	MessageInvalidStructure  = "Invalid response structure from Gemini API"
	MessageNoTextContent     = "No text content received from Gemini"
	MessageMissingAPIKey     = "Gemini API key is not configured"
	MessageUpstreamTimeout   = "Gemini API request timed out"
	MessageUpstreamUnreached = "Could not reach Gemini API"
)

// GeminiConfig holds configuration for the Gemini adapter
// Optional fields with defaults:
// - BaseURL: empty uses the SDK endpoint
// - APIVersion: "v1beta"
// - Model: "gemini-1.5-flash"
// - TimeoutSeconds: 30
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	APIVersion     string
	Model          string
	TimeoutSeconds int
	// HTTPClient overrides the transport used by the SDK.
	HTTPClient *http.Client
}

// GeminiResponder implements AudioResponder with a single-turn Gemini request:
// the persona as system instruction and the recording as one inline part.
type GeminiResponder struct {
	client  *genai.Client
	logger  *zap.Logger
	model   string
	timeout time.Duration
	persona entities.Persona
}

var _ repositories.AudioResponder = (*GeminiResponder)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewGeminiResponder creates the adapter. A missing API key does not fail
// construction; every request then fails with a not_configured error.
func NewGeminiResponder(ctx context.Context, config GeminiConfig, persona entities.Persona, logger *zap.Logger) (*GeminiResponder, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}
	if err := persona.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persona: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	responder := &GeminiResponder{
		logger:  logger,
		model:   model,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		persona: persona,
	}

	if config.APIKey == "" {
		logger.Warn("Gemini API key is missing, audio requests will fail until GEMINI_API_KEY is set")
		return responder, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    config.BaseURL,
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	responder.client = client

	logger.Info("Gemini API key present",
		zap.String("model", model),
		zap.String("baseURL", config.BaseURL),
		zap.String("apiVersion", apiVersion))

	return responder, nil
}

// RespondToAudio implements AudioResponder
func (g *GeminiResponder) RespondToAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	const op = "gemini.RespondToAudio"

	if g.client == nil {
		return "", domain.NewError(domain.KindNotConfigured, op, MessageMissingAPIKey)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.persona.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.persona.Temperature),
		MaxOutputTokens:   int32(g.persona.MaxOutputTokens),
	}

	started := time.Now()
	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		translated := translateError(op, err)
		g.logger.Error("Error calling Gemini API",
			zap.String("kind", string(domain.KindOf(translated))),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return "", translated
	}

	text, err := extractText(op, response)
	if err != nil {
		g.logger.Error("Unusable Gemini response", zap.Error(err))
		return "", err
	}

	g.logger.Info("Gemini response",
		zap.String("response_preview", text[:min(50, len(text))]),
		zap.Int("audioBytes", len(audio)),
		zap.String("mimeType", mimeType),
		zap.Duration("elapsed", time.Since(started)))

	return text, nil
}

// extractText takes the first part of the first candidate. A missing level of
// the structure and an empty text are reported as different failures.
func extractText(op string, response *genai.GenerateContentResponse) (string, error) {
	if response == nil ||
		len(response.Candidates) == 0 ||
		response.Candidates[0] == nil ||
		response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		return "", domain.NewError(domain.KindUpstreamMalformedResponse, op, MessageInvalidStructure)
	}

	part := response.Candidates[0].Content.Parts[0]
	if part == nil || part.Text == "" {
		return "", domain.NewError(domain.KindUpstreamMalformedResponse, op, MessageNoTextContent)
	}

	return part.Text, nil
}

// translateError classifies an SDK error by the upstream HTTP status.
func translateError(op string, err error) error {
	if code, detail, ok := upstreamStatus(err); ok {
		e := &domain.Error{Op: op, Detail: detail, Cause: err}
		switch code {
		case http.StatusTooManyRequests:
			e.Kind, e.Message = domain.KindUpstreamRateLimited, MessageRateLimited
		case http.StatusNotFound:
			e.Kind, e.Message = domain.KindUpstreamNotFound, MessageModelNotFound
		case http.StatusBadRequest:
			e.Kind, e.Message = domain.KindUpstreamBadRequest, MessageBadAudio
		default:
			e.Kind, e.Message = domain.KindUpstream, MessageUpstreamFailure
		}
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.Error{Kind: domain.KindTransport, Op: op, Message: MessageUpstreamTimeout, Cause: err}
	}

	return &domain.Error{
		Kind:    domain.KindTransport,
		Op:      op,
		Message: MessageUpstreamUnreached,
		Detail:  err.Error(),
		Cause:   err,
	}
}

func upstreamStatus(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

// NewGeminiConfigFromEnv creates a new GeminiConfig from environment variables
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		APIKey:     os.Getenv("GEMINI_API_KEY"),
		BaseURL:    os.Getenv("GEMINI_BASE_URL"),
		APIVersion: os.Getenv("GEMINI_API_VERSION"),
		Model:      os.Getenv("GEMINI_MODEL"),
	}

	if timeoutStr := os.Getenv("GEMINI_TIMEOUT_SECONDS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}

	return config
}
