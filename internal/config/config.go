// Package config builds the runtime configuration of the relay server and the
// voice client from the environment. It is constructed once in main and
// passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/satriahrh/rev-voice/adapters/llm"
	"github.com/satriahrh/rev-voice/adapters/speech"
	"github.com/satriahrh/rev-voice/domain/entities"
)

const (
	defaultPort             = "3000"
	defaultPublicDir        = "public"
	defaultUploadDir        = "uploads"
	defaultSweepMinutes     = 30
	defaultMaxAgeMinutes    = 60
	defaultMaxUploadMB      = 10
	defaultRelayURL         = "http://localhost:3000"
	defaultRelayTimeoutSecs = 30
	defaultCaptureTickMS    = 1000
	defaultSampleRate       = 16000

	// Speech engines of the voice client.
	EngineEdge       = "edge"
	EngineElevenLabs = "elevenlabs"
)

// UploadConfig controls the temporary upload directory.
type UploadConfig struct {
	Dir string
	// Retain is the number of most recent uploads kept on disk. Zero deletes
	// every upload as soon as it has been read.
	Retain        int
	SweepInterval time.Duration
	MaxAge        time.Duration
	MaxBytes      int64
}

// ServerConfig is the configuration of the relay server.
type ServerConfig struct {
	Environment string
	Port        string
	PublicDir   string
	Gemini      llm.GeminiConfig
	Persona     entities.Persona
	Uploads     UploadConfig
}

// ClientConfig is the configuration of the voice client.
type ClientConfig struct {
	Environment      string
	RelayURL         string
	RelayTimeout     time.Duration
	CaptureTick      time.Duration
	SampleRate       int
	Gender           entities.Gender
	VoiceCatalogFile string
	Speech           entities.SpeechStyle
	SpeechEngine     string
	ElevenLabs       speech.ElevenLabsConfig
}

// LoadDotEnv loads a .env file from the working directory. A missing file is
// not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// LoadServer reads the relay server configuration from the environment.
func LoadServer() (ServerConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return ServerConfig{}, err
	}

	persona := DefaultPersona()
	if path := os.Getenv("PERSONA_FILE"); path != "" {
		loaded, err := LoadPersona(path, persona)
		if err != nil {
			return ServerConfig{}, err
		}
		persona = loaded
	}
	if v, ok := envFloat("GEMINI_TEMPERATURE"); ok {
		persona.Temperature = float32(v)
	}
	if v, ok := envInt("GEMINI_MAX_OUTPUT_TOKENS"); ok {
		persona.MaxOutputTokens = v
	}

	cfg := ServerConfig{
		Environment: os.Getenv("APP_ENV"),
		Port:        envString("PORT", defaultPort),
		PublicDir:   envString("PUBLIC_DIR", defaultPublicDir),
		Gemini:      llm.NewGeminiConfigFromEnv(),
		Persona:     persona,
		Uploads: UploadConfig{
			Dir:           envString("UPLOAD_DIR", defaultUploadDir),
			Retain:        envIntDefault("UPLOAD_RETAIN", 0),
			SweepInterval: time.Duration(envIntDefault("UPLOAD_SWEEP_MINUTES", defaultSweepMinutes)) * time.Minute,
			MaxAge:        time.Duration(envIntDefault("UPLOAD_MAX_AGE_MINUTES", defaultMaxAgeMinutes)) * time.Minute,
			MaxBytes:      int64(envIntDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		},
	}

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Validate checks ranges. A missing API key is deliberately not an error: the
// server starts and every request fails until the key is provided.
func (c ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if err := c.Persona.Validate(); err != nil {
		return fmt.Errorf("invalid persona: %w", err)
	}
	if c.Gemini.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Gemini.TimeoutSeconds)
	}
	if c.Uploads.Dir == "" {
		return errors.New("upload directory is required")
	}
	if c.Uploads.Retain < 0 {
		return fmt.Errorf("upload retain count must not be negative, got %d", c.Uploads.Retain)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Uploads.MaxBytes)
	}
	return nil
}

// IsDevelopment reports whether development logging was requested.
func (c ServerConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// LoadClient reads the voice client configuration from the environment.
func LoadClient() (ClientConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return ClientConfig{}, err
	}

	style := entities.DefaultSpeechStyle()
	if v, ok := envFloat("SPEECH_RATE"); ok {
		style.Rate = v
	}
	if v, ok := envFloat("SPEECH_PITCH"); ok {
		style.Pitch = v
	}
	if v, ok := envFloat("SPEECH_VOLUME"); ok {
		style.Volume = v
	}

	cfg := ClientConfig{
		Environment:      os.Getenv("APP_ENV"),
		RelayURL:         strings.TrimRight(envString("RELAY_URL", defaultRelayURL), "/"),
		RelayTimeout:     time.Duration(envIntDefault("RELAY_TIMEOUT_SECONDS", defaultRelayTimeoutSecs)) * time.Second,
		CaptureTick:      time.Duration(envIntDefault("CAPTURE_TICK_MS", defaultCaptureTickMS)) * time.Millisecond,
		SampleRate:       envIntDefault("CAPTURE_SAMPLE_RATE", defaultSampleRate),
		Gender:           entities.ParseGender(os.Getenv("VOICE_PERSONA")),
		VoiceCatalogFile: os.Getenv("VOICE_CATALOG_FILE"),
		Speech:           style,
		SpeechEngine:     strings.ToLower(envString("SPEECH_ENGINE", EngineEdge)),
		ElevenLabs:       speech.NewElevenLabsConfigFromEnv(),
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c ClientConfig) Validate() error {
	if c.RelayURL == "" {
		return errors.New("relay URL is required")
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("relay timeout must be positive, got %s", c.RelayTimeout)
	}
	if c.CaptureTick <= 0 {
		return fmt.Errorf("capture tick must be positive, got %s", c.CaptureTick)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 1 {
		return fmt.Errorf("speech volume must be between 0 and 1, got %f", c.Speech.Volume)
	}
	switch c.SpeechEngine {
	case EngineEdge:
	case EngineElevenLabs:
		if err := speech.ValidateElevenLabsConfig(c.ElevenLabs); err != nil {
			return fmt.Errorf("invalid eleven labs configuration: %w", err)
		}
	default:
		return fmt.Errorf("unknown speech engine %q", c.SpeechEngine)
	}
	return nil
}

// IsDevelopment reports whether development logging was requested.
func (c ClientConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envIntDefault(key string, fallback int) int {
	if v, ok := envInt(key); ok {
		return v
	}
	return fallback
}

func envFloat(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
