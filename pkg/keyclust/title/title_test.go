package title

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSuggestTemplates(t *testing.T) {
	s := Default()

	cases := []struct {
		phrase string
		want   string
	}{
		{"طرز تهیه قورمه سبزی", "طرز تهیه قورمه سبزی در خانه"},
		{"طرز پخت برنج", "طرز تهیه طرز پخت برنج در خانه"},
		{"بهترین گوشی", "بهترین گوشی + مقایسه 1404"},
		{"خرید گوشی سامسونگ", "خرید گوشی سامسونگ با گارانتی"},
		{"قیمت خرید لپ تاپ", "خرید قیمت لپ تاپ با گارانتی"},
	}

	for _, tc := range cases {
		if got := s.Suggest(tc.phrase); got != tc.want {
			t.Errorf("Suggest(%q) = %q, want %q", tc.phrase, got, tc.want)
		}
	}
}

func TestSuggestPriority(t *testing.T) {
	s := Default()

	// "طرز" outranks "بهترین" which outranks "خرید".
	if got := s.Suggest("بهترین طرز تهیه کیک"); got != "طرز تهیه بهترین کیک در خانه" {
		t.Errorf("method-of rule should win, got %q", got)
	}
	if got := s.Suggest("خرید بهترین گوشی"); got != "خرید بهترین گوشی + مقایسه 1404" {
		t.Errorf("best rule should win over buy, got %q", got)
	}
}

func TestSuggestFallback(t *testing.T) {
	s := Default()

	if got := s.Suggest("samsung galaxy s24"); got != "Samsung Galaxy S24" {
		t.Errorf("fallback should title-case, got %q", got)
	}
	if got := s.Suggest("گوشی سامسونگ"); got != "گوشی سامسونگ" {
		t.Errorf("caseless script should pass through, got %q", got)
	}
	if got := s.Suggest(""); got != "" {
		t.Errorf("empty phrase should give empty title, got %q", got)
	}

	long := strings.Repeat("کلمه ", 30)
	got := s.Suggest(strings.TrimSpace(long))
	if utf8.RuneCountInString(got) > DefaultMaxLen {
		t.Errorf("fallback title has %d characters, want <= %d", utf8.RuneCountInString(got), DefaultMaxLen)
	}
}

func TestSuggestCustomMaxLen(t *testing.T) {
	s := NewSuggester(nil, 5)
	if got := s.Suggest("abcdefgh"); got != "Abcde" {
		t.Errorf("got %q, want Abcde", got)
	}
}

func TestSuggestTruncationTrimsDanglingSpace(t *testing.T) {
	s := NewSuggester(nil, 5)
	if got := s.Suggest("abcd efgh"); got != "Abcd" {
		t.Errorf("got %q, want Abcd", got)
	}
	if got := s.Suggest("ab cdefgh"); got != "Ab Cd" {
		t.Errorf("got %q, want Ab Cd", got)
	}
}
