package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxTextLength = 255

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	uaePhonePattern = regexp.MustCompile(`^(\+971)?[0-9]{9}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "\t", "")
	scriptScheme    = regexp.MustCompile(`(?i)javascript:`)
)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidPhone accepts UAE numbers, with or without the +971 prefix,
// ignoring spaces and dashes.
func IsValidPhone(phone string) bool {
	return uaePhonePattern.MatchString(phoneSeparators.Replace(phone))
}

// SanitizeText strips angle brackets and script URLs, trims, and caps the
// result at 255 characters.
func SanitizeText(text string) string {
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	text = scriptScheme.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxTextLength {
		text = string([]rune(text)[:maxTextLength])
	}
	return text
}
