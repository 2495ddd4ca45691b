// Package domain holds the validation rules applied to user input before it
// reaches the NLU service or the catalog.
package domain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxInputRunes bounds the length of a chat message.
const MaxInputRunes = 1000

// MaxLimit bounds result counts requested through the API.
const MaxLimit = 100

// Injection patterns. Titles may legitimately contain quotes and
// punctuation, so only unambiguous fragments are rejected.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|ALTER|TRUNCATE)\s+TABLE\b`),
	regexp.MustCompile(`(?i)\bUNION\s+(ALL\s+)?SELECT\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`\$\{.*\}`),
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`),
	regexp.MustCompile(`(?i)<\s*script\b`),
}

// ValidateUserInput trims text and checks it is a usable chat message.
func ValidateUserInput(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", NewValidationError("user_input", "", ErrInvalidEncoding)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewValidationError("user_input", text, ErrEmptyInput)
	}
	if utf8.RuneCountInString(text) > MaxInputRunes {
		return "", NewValidationError("user_input", text, ErrInputTooLong)
	}
	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return "", NewValidationError("user_input", text, ErrInputInjection)
		}
	}
	return text, nil
}

// ParseLimit reads an optional count parameter. Empty yields def.
func ParseLimit(field, raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxLimit {
		return 0, NewValidationError(field, raw, ErrLimitOutOfRange)
	}
	return n, nil
}
