// Package dispatch turns a recognized intent and its entities into a
// user-facing response by running the matching catalog query.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/marquee/engine/recommend"
)

// Engine is the set of catalog queries the dispatcher needs.
// *recommend.Engine satisfies it.
type Engine interface {
	Recommend(title string, k int) []string
	SearchByGenre(genre string, limit int) []string
	GetDetails(title string) (recommend.Details, bool)
	RecommendByText(ctx context.Context, enc recommend.Encoder, idx recommend.Index, text string, k int) ([]string, error)
}

// Options configures a Dispatcher. Zero values select the defaults.
type Options struct {
	RecommendK int
	GenreLimit int
	Format     Format
	// Encoder enables search_by_description. Nil disables it.
	Encoder recommend.Encoder
	// Index is used for description search; nil falls back to exact ranking.
	Index  recommend.Index
	Logger *slog.Logger
}

// Response is the outcome of one dispatch.
type Response struct {
	Text    string             `json:"response"`
	Intent  string             `json:"intent"`
	Movies  []string           `json:"movies,omitempty"`
	Details *recommend.Details `json:"details,omitempty"`
}

// Dispatcher routes intents to catalog queries. It holds no mutable state and
// is safe for concurrent use.
type Dispatcher struct {
	eng  Engine
	opts Options
	log  *slog.Logger
}

// New creates a Dispatcher over eng.
func New(eng Engine, opts Options) *Dispatcher {
	if opts.RecommendK <= 0 {
		opts.RecommendK = recommend.DefaultK
	}
	if opts.GenreLimit <= 0 {
		opts.GenreLimit = recommend.DefaultLimit
	}
	if opts.Format == "" {
		opts.Format = FormatHTML
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{eng: eng, opts: opts, log: log}
}

// Dispatch produces the response for intent. Catalog misses and missing
// entities are answered with an apology, never an error; an error is returned
// only when description search fails in its encoder or index.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent, ents Entities) (Response, error) {
	resp := Response{Intent: intent.String()}

	switch intent {
	case GetRecommendation:
		title := ents.Get(EntityMovieTitle)
		recs := d.eng.Recommend(title, d.opts.RecommendK)
		if len(recs) == 0 {
			resp.Text = msgNoRecommendations(title)
			break
		}
		resp.Text = msgRecommendations(title, recs)
		resp.Movies = recs

	case SearchByGenre:
		genre := ents.Get(EntityGenre)
		movies := d.eng.SearchByGenre(genre, d.opts.GenreLimit)
		if len(movies) == 0 {
			resp.Text = msgNoGenre(genre)
			break
		}
		resp.Text = msgGenre(genre, movies)
		resp.Movies = movies

	case GetMovieDetails:
		title := ents.Get(EntityMovieTitle)
		det, ok := d.eng.GetDetails(title)
		if !ok {
			resp.Text = msgNoDetails(title)
			break
		}
		resp.Text = msgDetails(title, FormatDetails(det, d.opts.Format))
		resp.Details = &det

	case SearchByDescription:
		movies, err := d.eng.RecommendByText(ctx, d.opts.Encoder, d.opts.Index, ents.Get(EntityDescription), d.opts.RecommendK)
		switch {
		case errors.Is(err, recommend.ErrNoEncoder):
			resp.Text = msgNoDescriber
		case err != nil:
			return Response{}, fmt.Errorf("dispatch: %s: %w", intent, err)
		case len(movies) == 0:
			resp.Text = msgNoDescription()
		default:
			resp.Text = msgDescription(movies)
			resp.Movies = movies
		}

	case Greet:
		resp.Text = msgGreeting

	case Goodbye:
		resp.Text = msgFarewell

	default:
		resp.Intent = Unrecognized.String()
		resp.Text = msgClarification
	}

	d.log.Debug("dispatched", "intent", resp.Intent, "results", len(resp.Movies))
	return resp, nil
}
