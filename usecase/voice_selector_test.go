package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rev-voice/domain/entities"
)

func TestSelectVoice(t *testing.T) {
	catalog := []entities.Voice{
		{ID: "en-US-GuyNeural", Name: "Microsoft David Desktop", Lang: "en-US"},
		{ID: "en-GB-Neutral", Name: "Google UK English", Lang: "en-GB"},
		{ID: "en-US-AriaNeural", Name: "Samantha", Lang: "en-US"},
		{ID: "hi-IN-MadhurNeural", Name: "Madhur", Lang: "hi-IN"},
		{ID: "hi-IN-SwaraNeural", Name: "Lekha", Lang: "hi-IN"},
	}

	tests := []struct {
		name     string
		voices   []entities.Voice
		language string
		gender   entities.Gender
		wantID   string
		wantOK   bool
	}{
		{"persona keyword wins over earlier neutral voice", catalog, "en", entities.GenderFemale, "en-US-AriaNeural", true},
		{"hindi persona keyword", catalog, "hi", entities.GenderFemale, "hi-IN-SwaraNeural", true},
		{"male persona keyword", catalog, "en", entities.GenderMale, "en-US-GuyNeural", true},
		{
			name: "second pass skips opposite persona",
			voices: []entities.Voice{
				{ID: "a", Name: "Microsoft David", Lang: "en-US"},
				{ID: "b", Name: "Neutral Voice", Lang: "en-US"},
			},
			language: "en",
			gender:   entities.GenderFemale,
			wantID:   "b",
			wantOK:   true,
		},
		{
			name: "only opposite persona voices",
			voices: []entities.Voice{
				{ID: "a", Name: "Microsoft David", Lang: "en-US"},
			},
			language: "en",
			gender:   entities.GenderFemale,
		},
		{"empty catalog", nil, "en", entities.GenderFemale, "", false},
		{"no language match", catalog, "fr", entities.GenderFemale, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voice, ok := SelectVoice(tt.voices, tt.language, tt.gender)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, voice.ID)
		})
	}
}

func TestSelectVoice_Deterministic(t *testing.T) {
	catalog := []entities.Voice{
		{ID: "1", Name: "Karen", Lang: "en-AU"},
		{ID: "2", Name: "Samantha", Lang: "en-US"},
	}

	first, _ := SelectVoice(catalog, "en", entities.GenderFemale)
	for i := 0; i < 10; i++ {
		again, _ := SelectVoice(catalog, "en", entities.GenderFemale)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "1", first.ID)
}

func TestVoiceSelector_FallsBackToLanguage(t *testing.T) {
	catalog := newStaticCatalog(entities.Voice{ID: "david", Name: "Microsoft David", Lang: "en-US"})
	selector := NewVoiceSelector(catalog, entities.GenderFemale, time.Second, zaptest.NewLogger(t))

	voice := selector.VoiceFor(context.Background(), "Hello there")
	require.NotNil(t, voice)
	assert.Equal(t, "david", voice.ID)
}

func TestVoiceSelector_DetectsHindi(t *testing.T) {
	catalog := newStaticCatalog(
		entities.Voice{ID: "en", Name: "Samantha", Lang: "en-US"},
		entities.Voice{ID: "hi", Name: "Lekha", Lang: "hi-IN"},
	)
	selector := NewVoiceSelector(catalog, entities.GenderFemale, time.Second, zaptest.NewLogger(t))

	voice := selector.VoiceFor(context.Background(), "नमस्ते, मैं Rev हूँ")
	require.NotNil(t, voice)
	assert.Equal(t, "hi", voice.ID)
}

func TestVoiceSelector_NoVoice(t *testing.T) {
	catalog := newStaticCatalog(entities.Voice{ID: "fr", Name: "Amelie", Lang: "fr-FR"})
	selector := NewVoiceSelector(catalog, entities.GenderFemale, time.Second, zaptest.NewLogger(t))

	assert.Nil(t, selector.VoiceFor(context.Background(), "Hello"))
}

func TestVoiceSelector_WaitsForCatalogOnce(t *testing.T) {
	catalog := newStaticCatalog()
	selector := NewVoiceSelector(catalog, entities.GenderFemale, 5*time.Second, zaptest.NewLogger(t))

	go func() {
		time.Sleep(20 * time.Millisecond)
		catalog.populate(entities.Voice{ID: "aria", Name: "Samantha", Lang: "en-US"})
	}()

	voice := selector.VoiceFor(context.Background(), "Hello")
	require.NotNil(t, voice)
	assert.Equal(t, "aria", voice.ID)
}

func TestVoiceSelector_DoesNotWaitTwice(t *testing.T) {
	catalog := newStaticCatalog()
	selector := NewVoiceSelector(catalog, entities.GenderFemale, 50*time.Millisecond, zaptest.NewLogger(t))

	assert.Nil(t, selector.VoiceFor(context.Background(), "Hello"))

	started := time.Now()
	assert.Nil(t, selector.VoiceFor(context.Background(), "Hello"))
	assert.Less(t, time.Since(started), 40*time.Millisecond)
}
