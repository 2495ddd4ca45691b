// Package nlu turns free text into an intent name and entities. Client talks
// to a Rasa server, RuleParser works offline from the catalog vocabulary, and
// CachedParser memoizes either.
package nlu

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable reports that the NLU service could not produce a parse:
// transport failure, non-200 status, undecodable body, open breaker or
// local rate limiting.
var ErrUnavailable = errors.New("nlu: service unavailable")

// Entity is one extracted entity.
type Entity struct {
	Name  string `json:"entity"`
	Value string `json:"value"`
}

// Result is a parsed utterance.
type Result struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   []Entity `json:"entities,omitempty"`
}

// EntityMap flattens the entity list. A name extracted more than once keeps
// its last value.
func (r Result) EntityMap() map[string]string {
	m := make(map[string]string, len(r.Entities))
	for _, e := range r.Entities {
		m[e.Name] = e.Value
	}
	return m
}

// Parser classifies text.
type Parser interface {
	Parse(ctx context.Context, text string) (Result, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, text string) (Result, error)

func (f ParserFunc) Parse(ctx context.Context, text string) (Result, error) { return f(ctx, text) }

func unavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
