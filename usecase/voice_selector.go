package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

// defaultCatalogWait bounds the one wait for an empty catalog to populate.
const defaultCatalogWait = 3 * time.Second

// SelectVoice picks the first voice of the language whose name carries one of
// the persona markers. Failing that it picks the first voice of the language
// whose name carries none of the opposite persona's markers. Catalog order is
// the only ranking.
func SelectVoice(voices []entities.Voice, language string, gender entities.Gender) (entities.Voice, bool) {
	wanted := gender.Keywords()
	for _, voice := range voices {
		if voice.MatchesLanguage(language) && voice.NameContainsAny(wanted) {
			return voice, true
		}
	}

	avoided := gender.Opposite().Keywords()
	for _, voice := range voices {
		if voice.MatchesLanguage(language) && !voice.NameContainsAny(avoided) {
			return voice, true
		}
	}

	return entities.Voice{}, false
}

// FirstVoiceFor returns the first voice of the language regardless of name.
func FirstVoiceFor(voices []entities.Voice, language string) (entities.Voice, bool) {
	for _, voice := range voices {
		if voice.MatchesLanguage(language) {
			return voice, true
		}
	}
	return entities.Voice{}, false
}

// VoiceSelector chooses the synthesis voice for a reply.
type VoiceSelector struct {
	catalog repositories.VoiceCatalogSource
	gender  entities.Gender
	wait    time.Duration
	logger  *zap.Logger

	waited sync.Once
}

// NewVoiceSelector creates a selector for the persona. wait bounds the single
// wait for the catalog; zero uses the default.
func NewVoiceSelector(catalog repositories.VoiceCatalogSource, gender entities.Gender, wait time.Duration, logger *zap.Logger) *VoiceSelector {
	if wait <= 0 {
		wait = defaultCatalogWait
	}
	return &VoiceSelector{
		catalog: catalog,
		gender:  gender,
		wait:    wait,
		logger:  logger,
	}
}

// VoiceFor picks the voice for text. nil means the engine default.
func (s *VoiceSelector) VoiceFor(ctx context.Context, text string) *entities.Voice {
	voices := s.voices(ctx)
	language := entities.LanguageFor(text)

	if voice, ok := SelectVoice(voices, language, s.gender); ok {
		s.logger.Debug("Using persona voice",
			zap.String("voice", voice.Name),
			zap.String("lang", voice.Lang))
		return &voice
	}

	if voice, ok := FirstVoiceFor(voices, language); ok {
		s.logger.Warn("No specific persona voice found",
			zap.String("voice", voice.Name),
			zap.String("gender", string(s.gender)))
		return &voice
	}

	s.logger.Warn("No suitable voice found, using default", zap.String("language", language))
	return nil
}

// voices returns the catalog, waiting at most once per selector for an empty
// catalog to be reported ready.
func (s *VoiceSelector) voices(ctx context.Context) []entities.Voice {
	voices := s.catalog.Voices()
	if len(voices) > 0 {
		return voices
	}

	s.waited.Do(func() {
		timer := time.NewTimer(s.wait)
		defer timer.Stop()

		select {
		case <-s.catalog.Ready():
		case <-timer.C:
			s.logger.Warn("Voice catalog not ready", zap.Duration("waited", s.wait))
		case <-ctx.Done():
		}
	})

	return s.catalog.Voices()
}
