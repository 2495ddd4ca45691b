package main

import (
	"context"
	"embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/WessleyAI/marquee/engine/dispatch"
	"github.com/WessleyAI/marquee/engine/domain"
	"github.com/WessleyAI/marquee/engine/nlu"
	"github.com/WessleyAI/marquee/engine/recommend"
	"github.com/WessleyAI/marquee/pkg/metrics"
	"github.com/WessleyAI/marquee/pkg/mid"
)

//go:embed static/index.html
var static embed.FS

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// asker answers one chat message. *assistant.Service satisfies it.
type asker interface {
	Ask(ctx context.Context, text string) (dispatch.Response, error)
}

type serverDeps struct {
	asst    asker
	disp    *dispatch.Dispatcher
	eng     *recommend.Engine
	enc     recommend.Encoder
	idx     recommend.Index
	reg     *metrics.Registry
	log     *slog.Logger
	k       int
	limit   int
	origins []string
	rpm     int
}

type server struct {
	serverDeps
	upgrader websocket.Upgrader
}

func newServer(d serverDeps) *server {
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.reg == nil {
		d.reg = metrics.New()
	}
	if d.k <= 0 {
		d.k = recommend.DefaultK
	}
	if d.limit <= 0 {
		d.limit = recommend.DefaultLimit
	}
	if len(d.origins) == 0 {
		d.origins = []string{"*"}
	}
	s := &server{serverDeps: d}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	// CORS sits on the root mux so preflights reach it for any route.
	r.Use(
		mid.Recover(s.log),
		cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}),
	)

	// Upgraded connections outlive the request, so they skip the
	// per-request span and latency middleware.
	r.Get("/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(
			mid.OTel("marquee-api"),
			mid.Metrics(s.reg, routePattern),
			mid.Logger(s.log),
		)
		if s.rpm > 0 {
			r.Use(httprate.LimitByIP(s.rpm, time.Minute))
		}

		r.Get("/", s.handleIndex)
		r.Post("/recommend", s.handleRecommend)
		r.Handle("/metrics", s.reg.Handler())

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Post("/dispatch", s.handleDispatch)
			r.Get("/movies/{title}", s.handleDetails)
			r.Get("/movies/{title}/similar", s.handleSimilar)
			r.Get("/genres", s.handleGenres)
			r.Get("/genres/{genre}", s.handleGenre)
			r.Get("/search", s.handleSearch)
			r.Post("/similar", s.handleDescribe)
		})
	})
	return r
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// checkOrigin admits clients without an Origin header (non-browser) and
// browsers from an allowed origin.
func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	s.log.Warn("websocket origin rejected", "origin", origin)
	return false
}

// pathParam returns a decoded chi URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// askStatus maps an Ask error to an HTTP status and client message.
func askStatus(err error) (int, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, nlu.ErrUnavailable):
		return http.StatusBadGateway, "Failed to get a response from the language service"
	default:
		// Dispatch only fails in the description encoder or index.
		return http.StatusBadGateway, "upstream service error"
	}
}
