package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/rev-voice/domain/entities"
)

const (
	defaultTemperature     = 0.7
	defaultMaxOutputTokens = 150
)

// defaultSystemPrompt is the "Rev" persona of Revolt Motors.
const defaultSystemPrompt = `
You are "Rev", the official voice assistant for Revolt Motors, India's leading electric vehicle company.

LANGUAGE RULES:
- Detect the user's language from their audio input and respond in the same language
- If user speaks Hindi, respond in natural, conversational Hindi
- If user speaks English, respond in English
- For mixed language queries, respond in the dominant language detected

CORE RESPONSE GUIDELINES:
1. Focus exclusively on Revolt Motors products, services, initiatives, and electric vehicles
2. Be enthusiastic, helpful, and conversational
3. Keep responses concise (try to include all sentences)
4. After answering, always ask: "Would you like to know more about this?" (English) or "Kya aap is bare mein aur janna chahenge?" (Hindi)
5. Politely redirect unrelated questions back to Revolt Motors topics

EXAMPLE RESPONSES:
[For battery query]: "Revolt Motors bikes use advanced lithium-ion batteries with 150km range. Would you like details about charging options?"
[For pricing query]: "The RV400 starts at ₹1.25 lakhs ex-showroom. Should I explain the financing plans available?"
[For unrelated query]: "I specialize in Revolt Motors electric vehicles. What would you like to know about our bikes or services?"
`

// DefaultPersona returns the built-in persona.
func DefaultPersona() entities.Persona {
	return entities.Persona{
		Name:            "Rev",
		SystemPrompt:    defaultSystemPrompt,
		Temperature:     defaultTemperature,
		MaxOutputTokens: defaultMaxOutputTokens,
	}
}

// LoadPersona reads a YAML persona file. Fields left out of the file keep the
// values of base.
func LoadPersona(path string, base entities.Persona) (entities.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read persona file: %w", err)
	}

	persona := base
	if err := yaml.Unmarshal(data, &persona); err != nil {
		return base, fmt.Errorf("failed to parse persona file: %w", err)
	}

	if err := persona.Validate(); err != nil {
		return base, fmt.Errorf("invalid persona file %s: %w", path, err)
	}

	return persona, nil
}
