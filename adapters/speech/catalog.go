package speech

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

// DefaultVoices are Edge neural voices for the two supported languages. Male
// voices come first within each language: "Female" contains the male marker
// "male", so catalog order decides the male persona.
var DefaultVoices = []entities.Voice{
	{ID: "en-IN-PrabhatNeural", Name: "Microsoft Prabhat Online (Natural) - English (India), Male", Lang: "en-IN"},
	{ID: "en-IN-NeerjaNeural", Name: "Microsoft Neerja Online (Natural) - English (India), Female", Lang: "en-IN"},
	{ID: "en-US-GuyNeural", Name: "Microsoft Guy Online (Natural) - English (United States), Male", Lang: "en-US"},
	{ID: "en-US-AriaNeural", Name: "Microsoft Aria Online (Natural) - English (United States), Female", Lang: "en-US"},
	{ID: "hi-IN-MadhurNeural", Name: "Microsoft Madhur Online (Natural) - Hindi (India), Male", Lang: "hi-IN"},
	{ID: "hi-IN-SwaraNeural", Name: "Microsoft Swara Online (Natural) - Hindi (India), Female", Lang: "hi-IN"},
}

// catalogFile is the YAML layout of a voice catalog file.
type catalogFile struct {
	Voices []entities.Voice `yaml:"voices"`
}

// Catalog is a VoiceCatalogSource populated once, possibly after it is first
// queried.
type Catalog struct {
	mu     sync.RWMutex
	voices []entities.Voice
	ready  chan struct{}
	once   sync.Once
	logger *zap.Logger
}

var _ repositories.VoiceCatalogSource = (*Catalog)(nil)

// NewCatalog creates an empty catalog.
func NewCatalog(logger *zap.Logger) *Catalog {
	return &Catalog{
		ready:  make(chan struct{}),
		logger: logger,
	}
}

// Voices returns the catalog in order.
func (c *Catalog) Voices() []entities.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]entities.Voice(nil), c.voices...)
}

// Ready is closed the first time the catalog is populated.
func (c *Catalog) Ready() <-chan struct{} {
	return c.ready
}

// Populate replaces the voices. The first call fires Ready, even with an
// empty list, so waiters are released.
func (c *Catalog) Populate(voices []entities.Voice) {
	c.mu.Lock()
	c.voices = append([]entities.Voice(nil), voices...)
	c.mu.Unlock()

	c.once.Do(func() {
		close(c.ready)
		c.logger.Info("Voice catalog ready", zap.Int("voices", len(voices)))
	})
}

// LoadVoices reads a catalog file, or returns DefaultVoices when path is
// empty.
func LoadVoices(path string) ([]entities.Voice, error) {
	if path == "" {
		return DefaultVoices, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voice catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse voice catalog: %w", err)
	}

	for i, voice := range file.Voices {
		if voice.ID == "" || voice.Lang == "" {
			return nil, fmt.Errorf("voice %d: id and lang are required", i)
		}
		if voice.Name == "" {
			file.Voices[i].Name = voice.ID
		}
	}
	return file.Voices, nil
}
