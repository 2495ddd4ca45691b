// Package assistant runs one chat turn end to end: validate the message,
// classify it with the NLU parser, and dispatch the resulting intent.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/WessleyAI/marquee/engine/dispatch"
	"github.com/WessleyAI/marquee/engine/domain"
	"github.com/WessleyAI/marquee/engine/nlu"
	"github.com/WessleyAI/marquee/pkg/fn"
	"github.com/WessleyAI/marquee/pkg/metrics"
)

// Outcome labels recorded on the ask counter.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeNLU     = "nlu_unavailable"
	outcomeError   = "error"
)

type turn struct {
	intent dispatch.Intent
	ents   dispatch.Entities
}

// Service answers chat messages. It is safe for concurrent use.
type Service struct {
	parser nlu.Parser
	disp   *dispatch.Dispatcher
	reg    *metrics.Registry
	log    *slog.Logger
	ask    fn.Stage[string, dispatch.Response]
}

// New creates a Service. A nil registry gets a private one; a nil logger
// uses slog.Default().
func New(parser nlu.Parser, disp *dispatch.Dispatcher, reg *metrics.Registry, log *slog.Logger) *Service {
	if reg == nil {
		reg = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{parser: parser, disp: disp, reg: reg, log: log}
	parse := fn.Traced("nlu.parse", fn.Stage[string, turn](s.parse))
	route := fn.Traced("dispatch", fn.Stage[turn, dispatch.Response](s.dispatch))
	s.ask = fn.Traced("assistant.ask", fn.Then(fn.Then(fn.Stage[string, string](validate), parse), route))
	return s
}

// Ask answers one message. Errors are *domain.ValidationError for unusable
// input, nlu.ErrUnavailable when the parser fails, or an encoder failure
// from description search. Catalog misses are ordinary responses.
func (s *Service) Ask(ctx context.Context, text string) (dispatch.Response, error) {
	resp, err := s.ask(ctx, text).Unwrap()

	var ve *domain.ValidationError
	switch {
	case err == nil:
		s.reg.AskTotal.WithLabelValues(resp.Intent, outcomeOK).Inc()
	case errors.As(err, &ve):
		s.reg.AskTotal.WithLabelValues("none", outcomeInvalid).Inc()
	case errors.Is(err, nlu.ErrUnavailable):
		s.reg.AskTotal.WithLabelValues("none", outcomeNLU).Inc()
		s.reg.NLUErrors.Inc()
		s.log.Warn("nlu unavailable", "err", err)
	default:
		s.reg.AskTotal.WithLabelValues("none", outcomeError).Inc()
		s.log.Error("ask failed", "err", err)
	}
	return resp, err
}

func validate(_ context.Context, text string) fn.Result[string] {
	return fn.FromPair(domain.ValidateUserInput(text))
}

func (s *Service) parse(ctx context.Context, text string) fn.Result[turn] {
	defer s.reg.ObserveStage("nlu", time.Now())
	res, err := s.parser.Parse(ctx, text)
	if err != nil {
		if !errors.Is(err, nlu.ErrUnavailable) {
			err = errors.Join(nlu.ErrUnavailable, err)
		}
		return fn.Err[turn](err)
	}
	s.log.Debug("parsed", "intent", res.Intent, "confidence", res.Confidence, "entities", len(res.Entities))
	return fn.Ok(turn{intent: dispatch.ParseIntent(res.Intent), ents: res.EntityMap()})
}

func (s *Service) dispatch(ctx context.Context, t turn) fn.Result[dispatch.Response] {
	defer s.reg.ObserveStage("dispatch", time.Now())
	return fn.FromPair(s.disp.Dispatch(ctx, t.intent, t.ents))
}
