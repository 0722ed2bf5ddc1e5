package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/usecase"
)

func TestNewElevenLabsEngine(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Setenv("ELEVEN_LABS_API_KEY", "")
	_, err := NewElevenLabsEngine(NewElevenLabsConfigFromEnv(), logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	t.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	t.Setenv("ELEVEN_LABS_STABILITY", "0.8")
	engine, err := NewElevenLabsEngine(NewElevenLabsConfigFromEnv(), logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsEngine: %v", err)
	}

	if engine.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", engine.apiKey)
	}
	if engine.DefaultVoice() != defaultElevenLabsVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultElevenLabsVoiceID, engine.DefaultVoice())
	}
	if engine.stability != 0.8 {
		t.Errorf("Expected stability 0.8, got %f", engine.stability)
	}
	if engine.clarity != defaultClarity {
		t.Errorf("Expected default clarity, got %f", engine.clarity)
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "k", Stability: 1.5}); err == nil {
		t.Error("Expected error for stability out of range")
	}
	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "k", Clarity: -0.1}); err == nil {
		t.Error("Expected error for clarity out of range")
	}
	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "k"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func newElevenLabsServer(t *testing.T) *ElevenLabsEngine {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/text-to-speech/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-api-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/text-to-speech/voice-1" {
			http.Error(w, `{"detail":"voice not found"}`, http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("output_format"); got != elevenLabsOutputFormat {
			t.Errorf("Expected output format %s, got %s", elevenLabsOutputFormat, got)
		}

		var request ElevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if request.Text != "Hello" || request.ModelID != defaultElevenLabsModelID {
			t.Errorf("Unexpected request %+v", request)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	})
	mux.HandleFunc("/voices", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"voices":[
			{"voice_id":"voice-1","name":"Rachel","labels":{"gender":"female","accent":"american"}},
			{"voice_id":"voice-2","name":"Adam","labels":{"gender":"male","language":"hi"}},
			{"voice_id":"voice-3","name":"Josh","labels":{"gender":"male"}}
		]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	engine, err := NewElevenLabsEngine(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
		VoiceID:    "voice-1",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsEngine: %v", err)
	}
	return engine
}

func TestElevenLabsEngine_Synthesize(t *testing.T) {
	engine := newElevenLabsServer(t)

	audio, err := engine.Synthesize(context.Background(), "", "Hello")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("Unexpected audio %q", audio)
	}

	if _, err := engine.Synthesize(context.Background(), "missing", "Hello"); err == nil {
		t.Error("Expected error for unknown voice")
	}

	if _, err := engine.Synthesize(context.Background(), "", "   "); err == nil {
		t.Error("Expected error for whitespace-only text")
	}
}

func TestElevenLabsEngine_Voices(t *testing.T) {
	engine := newElevenLabsServer(t)

	voices, err := engine.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}

	want := []entities.Voice{
		{ID: "voice-2", Name: "Adam, male", Lang: "hi"},
		{ID: "voice-3", Name: "Josh, male", Lang: "en"},
		{ID: "voice-1", Name: "Rachel, female", Lang: "en"},
	}
	if len(voices) != len(want) {
		t.Fatalf("Expected %d voices, got %d", len(want), len(voices))
	}
	for i := range want {
		if voices[i] != want[i] {
			t.Errorf("Voice %d: expected %+v, got %+v", i, want[i], voices[i])
		}
	}
}

func TestElevenLabsEngine_VoicesResolveBothPersonas(t *testing.T) {
	engine := newElevenLabsServer(t)

	voices, err := engine.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}

	male, ok := usecase.SelectVoice(voices, entities.LanguageEnglish, entities.GenderMale)
	if !ok || male.ID != "voice-3" {
		t.Errorf("Expected male persona to get voice-3, got %+v", male)
	}
	female, ok := usecase.SelectVoice(voices, entities.LanguageEnglish, entities.GenderFemale)
	if !ok || female.ID != "voice-1" {
		t.Errorf("Expected female persona to get voice-1, got %+v", female)
	}
}
