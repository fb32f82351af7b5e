package ingest

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LanguageProfiler counts the detected language of each phrase. The keyword
// rules are written for Persian, so a sheet dominated by another language is
// worth flagging to the user.
type LanguageProfiler interface {
	Profile(phrases []string) map[string]int
}

// UnknownLanguage is the bucket for phrases the detector cannot decide on.
const UnknownLanguage = "unknown"

// LinguaProfiler detects languages with lingua-go.
type LinguaProfiler struct {
	detector lingua.LanguageDetector
}

// NewLinguaProfiler builds a detector restricted to the given languages.
// With no languages it distinguishes Persian, Arabic and English.
func NewLinguaProfiler(languages ...lingua.Language) *LinguaProfiler {
	if len(languages) < 2 {
		languages = []lingua.Language{lingua.Persian, lingua.Arabic, lingua.English}
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &LinguaProfiler{detector: detector}
}

// Profile implements LanguageProfiler.
func (p *LinguaProfiler) Profile(phrases []string) map[string]int {
	counts := make(map[string]int)
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		lang, ok := p.detector.DetectLanguageOf(phrase)
		if !ok {
			counts[UnknownLanguage]++
			continue
		}
		counts[strings.ToLower(lang.String())]++
	}
	return counts
}

// Dominant returns the language with the highest count; ties go to the
// lexically smaller name.
func Dominant(profile map[string]int) (string, int) {
	best, bestCount := "", 0
	for lang, n := range profile {
		if n > bestCount || (n == bestCount && lang < best) {
			best, bestCount = lang, n
		}
	}
	return best, bestCount
}
