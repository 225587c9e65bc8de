package services

import (
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	cases := map[string]bool{
		"buyer@example.ae": true,
		"a@b.c":            true,
		"no-at-sign.com":   false,
		"two words@x.com":  false,
		"missing@tld":      false,
		"":                 false,
	}
	for in, want := range cases {
		if got := IsValidEmail(in); got != want {
			t.Fatalf("IsValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	cases := map[string]bool{
		"+971 50-123-4567": true,
		"501234567":        true,
		"+97150123456":     false,
		"05012345678":      false,
		"+1 501234567":     false,
	}
	for in, want := range cases {
		if got := IsValidPhone(in); got != want {
			t.Fatalf("IsValidPhone(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText("  <b>Dubai</b> JavaScript:alert(1) "); got != "bDubai/b alert(1)" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
	if got := SanitizeText(strings.Repeat("ñ", 300)); len([]rune(got)) != 255 {
		t.Fatalf("expected 255 runes, got %d", len([]rune(got)))
	}
}
