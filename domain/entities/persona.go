package entities

import "errors"

// Persona is the fixed assistant identity sent upstream with every request.
type Persona struct {
	Name            string  `yaml:"name"`
	SystemPrompt    string  `yaml:"system_prompt"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// Validate validates the persona data
func (p Persona) Validate() error {
	if p.SystemPrompt == "" {
		return errors.New("system prompt is required")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if p.MaxOutputTokens <= 0 {
		return errors.New("max output tokens must be positive")
	}
	return nil
}

// SpeechStyle holds the synthesis parameters applied to every utterance.
type SpeechStyle struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// DefaultSpeechStyle is a natural pace with a slightly raised pitch.
func DefaultSpeechStyle() SpeechStyle {
	return SpeechStyle{
		Rate:   0.95,
		Pitch:  1.1,
		Volume: 1.0,
	}
}
