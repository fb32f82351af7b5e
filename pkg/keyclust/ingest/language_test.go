package ingest

import (
	"testing"

	"github.com/pemistahl/lingua-go"
)

func TestLinguaProfilerLatinScript(t *testing.T) {
	p := NewLinguaProfiler(lingua.English, lingua.Persian)

	profile := p.Profile([]string{"how to buy a cheap phone online", "   ", ""})
	if profile["english"] != 1 {
		t.Errorf("expected one english phrase, got %v", profile)
	}
	if len(profile) != 1 {
		t.Errorf("blank phrases should be skipped, got %v", profile)
	}
}

func TestDominant(t *testing.T) {
	lang, n := Dominant(map[string]int{"persian": 5, "english": 2, UnknownLanguage: 1})
	if lang != "persian" || n != 5 {
		t.Errorf("Dominant = %s/%d, want persian/5", lang, n)
	}

	lang, _ = Dominant(map[string]int{"persian": 2, "arabic": 2})
	if lang != "arabic" {
		t.Errorf("ties should go to the smaller name, got %s", lang)
	}

	if lang, n := Dominant(nil); lang != "" || n != 0 {
		t.Errorf("empty profile should have no dominant language, got %s/%d", lang, n)
	}
}
