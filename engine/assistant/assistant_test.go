package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/engine/dispatch"
	"github.com/WessleyAI/marquee/engine/domain"
	"github.com/WessleyAI/marquee/engine/nlu"
	"github.com/WessleyAI/marquee/engine/recommend"
	"github.com/WessleyAI/marquee/pkg/metrics"
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	cat, err := catalog.Load(catalog.Snapshot{Rows: []catalog.Row{
		{"title": "Dune", "genres": []any{"Science Fiction"}, "popularity": 50.0, "embedding": []any{1.0, 0.0, 0.2}},
		{"title": "Alien", "genres": []any{"Science Fiction"}, "popularity": 80.0, "embedding": []any{0.9, 0.1, 0.2}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return dispatch.New(recommend.New(cat), dispatch.Options{})
}

func fixed(res nlu.Result, err error) nlu.Parser {
	return nlu.ParserFunc(func(context.Context, string) (nlu.Result, error) { return res, err })
}

func TestAsk(t *testing.T) {
	reg := metrics.New()
	parser := fixed(nlu.Result{
		Intent: "get_recommendation",
		Entities: []nlu.Entity{
			{Name: "movie_title", Value: "Solaris"},
			{Name: "movie_title", Value: "Dune"},
		},
	}, nil)
	s := New(parser, newDispatcher(t), reg, nil)

	resp, err := s.Ask(context.Background(), "  something like dune  ")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "If you liked Dune, you might also enjoy: Alien" {
		t.Fatalf("Text = %q", resp.Text)
	}
	if got := testutil.ToFloat64(reg.AskTotal.WithLabelValues("get_recommendation", "ok")); got != 1 {
		t.Fatalf("ask_total = %v", got)
	}
}

func TestAsk_PassesTrimmedText(t *testing.T) {
	var seen string
	parser := nlu.ParserFunc(func(_ context.Context, text string) (nlu.Result, error) {
		seen = text
		return nlu.Result{Intent: "greet"}, nil
	})
	resp, err := New(parser, newDispatcher(t), nil, nil).Ask(context.Background(), "\thello\n")
	if err != nil {
		t.Fatal(err)
	}
	if seen != "hello" {
		t.Fatalf("parser saw %q", seen)
	}
	if resp.Text != "Hello! How can I assist you with movies today?" {
		t.Fatalf("Text = %q", resp.Text)
	}
}

func TestAsk_UnknownIntentFallsBack(t *testing.T) {
	s := New(fixed(nlu.Result{Intent: "nlu_fallback"}, nil), newDispatcher(t), nil, nil)
	resp, err := s.Ask(context.Background(), "qwerty")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != "unrecognized" {
		t.Fatalf("Intent = %q", resp.Intent)
	}
}

func TestAsk_InvalidInput(t *testing.T) {
	called := false
	parser := nlu.ParserFunc(func(context.Context, string) (nlu.Result, error) {
		called = true
		return nlu.Result{}, nil
	})
	reg := metrics.New()
	_, err := New(parser, newDispatcher(t), reg, nil).Ask(context.Background(), "   ")
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if called {
		t.Fatal("parser must not run on invalid input")
	}
	if got := testutil.ToFloat64(reg.AskTotal.WithLabelValues("none", "invalid")); got != 1 {
		t.Fatalf("invalid count = %v", got)
	}
}

func TestAsk_NLUUnavailable(t *testing.T) {
	reg := metrics.New()
	s := New(fixed(nlu.Result{}, errors.New("connection refused")), newDispatcher(t), reg, nil)
	_, err := s.Ask(context.Background(), "hello")
	if !errors.Is(err, nlu.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := testutil.ToFloat64(reg.NLUErrors); got != 1 {
		t.Fatalf("nlu errors = %v", got)
	}
}

func TestAsk_WithRuleParser(t *testing.T) {
	s := New(nlu.NewRuleParser([]string{"Dune", "Alien"}, []string{"Science Fiction"}), newDispatcher(t), nil, nil)
	resp, err := s.Ask(context.Background(), "any sci-fi movies?")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "Here are some Science Fiction movies: Alien, Dune" {
		t.Fatalf("Text = %q", resp.Text)
	}
}
