package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUserInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{"plain", "recommend something like Heat", "recommend something like Heat", nil},
		{"trimmed", "  hello \n", "hello", nil},
		{"quotes in title", `details for "Ocean's Eleven"`, `details for "Ocean's Eleven"`, nil},
		{"empty", "", "", ErrEmptyInput},
		{"whitespace", " \t ", "", ErrEmptyInput},
		{"too long", strings.Repeat("a", MaxInputRunes+1), "", ErrInputTooLong},
		{"max length", strings.Repeat("é", MaxInputRunes), strings.Repeat("é", MaxInputRunes), nil},
		{"invalid utf8", "bad \xff byte", "", ErrInvalidEncoding},
		{"sql", "'; DROP TABLE movies", "", ErrInputInjection},
		{"drop table", "drop table movies", "", ErrInputInjection},
		{"union select", "x' UNION ALL SELECT title FROM users", "", ErrInputInjection},
		{"title with drop", "movies like Drop Zone from 1994", "movies like Drop Zone from 1994", nil},
		{"title with union", "tell me about The Union from 2024", "tell me about The Union from 2024", nil},
		{"title with update", "recommend movies like Update from the Set of Dreams", "recommend movies like Update from the Set of Dreams", nil},
		{"template", "${jndi:ldap://x}", "", ErrInputInjection},
		{"nosql", `{"$gt": ""}`, "", ErrInputInjection},
		{"script", "<script>alert(1)</script>", "", ErrInputInjection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateUserInput(tt.in)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Field != "user_input" {
					t.Fatalf("err %v is not a user_input ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"", 5, true},
		{"1", 1, true},
		{"100", 100, true},
		{"0", 0, false},
		{"101", 0, false},
		{"-3", 0, false},
		{"ten", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseLimit("k", tt.raw, 5)
		if tt.ok != (err == nil) {
			t.Fatalf("ParseLimit(%q) err = %v", tt.raw, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrLimitOutOfRange) {
			t.Fatalf("ParseLimit(%q) err = %v", tt.raw, err)
		}
	}
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError("k", strings.Repeat("x", 100), ErrLimitOutOfRange)
	if !strings.HasPrefix(err.Error(), "validation: limit out of range: k (value=") {
		t.Fatalf("Error() = %q", err.Error())
	}
	if len([]rune(err.Value)) != 65 {
		t.Fatalf("value not truncated: %d runes", len([]rune(err.Value)))
	}
}
