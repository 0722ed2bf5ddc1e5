package entities

import "strings"

// Language codes matched against voice language tags.
const (
	LanguageHindi   = "hi"
	LanguageEnglish = "en"
)

// Voice is one entry of the synthesis voice catalog.
type Voice struct {
	// ID is the engine identifier used to synthesize with this voice.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Lang string `yaml:"lang" json:"lang"`
}

// Gender is the persona the assistant voice should present.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Keywords matched case-insensitively as substrings of voice names.
var (
	FemaleVoiceKeywords = []string{
		"female", "feminine", "woman", "veena", "samantha", "karen",
		"lekha", "neelam", "google uk female", "microsoft zira",
	}

	MaleVoiceKeywords = []string{
		"male", "man", "david", "thomas", "deep", "microsoft david",
	}
)

// Keywords returns the voice name markers of the persona.
func (g Gender) Keywords() []string {
	if g == GenderMale {
		return MaleVoiceKeywords
	}
	return FemaleVoiceKeywords
}

// Opposite returns the other persona.
func (g Gender) Opposite() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// ParseGender maps free text to a persona, defaulting to female.
func ParseGender(s string) Gender {
	if strings.EqualFold(strings.TrimSpace(s), string(GenderMale)) {
		return GenderMale
	}
	return GenderFemale
}

// MatchesLanguage reports whether the voice language tag contains code.
func (v Voice) MatchesLanguage(code string) bool {
	return strings.Contains(v.Lang, code)
}

// NameContainsAny reports whether the lower-cased voice name contains any of
// the keywords.
func (v Voice) NameContainsAny(keywords []string) bool {
	name := strings.ToLower(v.Name)
	for _, keyword := range keywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// Devanagari block bounds.
const (
	devanagariFirst = '\u0900'
	devanagariLast  = '\u097F'
)

// LanguageFor picks the synthesis language for text: any rune of the
// Devanagari block selects Hindi, everything else English.
func LanguageFor(text string) string {
	for _, r := range text {
		if r >= devanagariFirst && r <= devanagariLast {
			return LanguageHindi
		}
	}
	return LanguageEnglish
}
