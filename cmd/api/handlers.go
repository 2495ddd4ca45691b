package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/WessleyAI/marquee/engine/dispatch"
	"github.com/WessleyAI/marquee/engine/domain"
	"github.com/WessleyAI/marquee/engine/recommend"
)

// askRequest is the body of POST /recommend and of NATS chat requests.
type askRequest struct {
	UserInput string `json:"user_input"`
}

type dispatchRequest struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities"`
}

type describeRequest struct {
	Description string `json:"description"`
	K           int    `json:"k"`
}

type moviesResponse struct {
	Query  string   `json:"query,omitempty"`
	Movies []string `json:"movies"`
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFileFS(w, r, static, "static/index.html")
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "movies": s.eng.Catalog().Len()})
}

func (s *server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserInput == "" {
		writeError(w, http.StatusBadRequest, "No input provided")
		return
	}
	resp, err := s.asst.Ask(r.Context(), req.UserInput)
	if err != nil {
		status, msg := askStatus(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.disp.Dispatch(r.Context(), dispatch.ParseIntent(req.Intent), dispatch.Entities(req.Entities))
	if err != nil {
		s.log.Error("dispatch failed", "intent", req.Intent, "err", err)
		writeError(w, http.StatusBadGateway, "upstream service error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleDetails(w http.ResponseWriter, r *http.Request) {
	title := pathParam(r, "title")
	d, ok := s.eng.GetDetails(title)
	if !ok {
		writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	title := pathParam(r, "title")
	k, err := domain.ParseLimit("k", r.URL.Query().Get("k"), s.k)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.eng.Catalog().Index(title); !ok {
		writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	writeJSON(w, http.StatusOK, moviesResponse{Query: title, Movies: s.eng.Recommend(title, k)})
}

func (s *server) handleGenres(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"genres": s.eng.Catalog().Genres()})
}

func (s *server) handleGenre(w http.ResponseWriter, r *http.Request) {
	genre := pathParam(r, "genre")
	limit, err := domain.ParseLimit("limit", r.URL.Query().Get("limit"), s.limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, moviesResponse{Query: genre, Movies: s.eng.SearchByGenre(genre, limit)})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var genres []string
	for _, g := range q["genre"] {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) == 0 {
		writeError(w, http.StatusBadRequest, "at least one genre is required")
		return
	}
	limit, err := domain.ParseLimit("limit", q.Get("limit"), s.limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, moviesResponse{Query: strings.Join(genres, ","), Movies: s.eng.SearchByGenres(genres, limit)})
}

func (s *server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text, err := domain.ValidateUserInput(req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := req.K
	if k == 0 {
		k = s.k
	}
	if k < 1 || k > domain.MaxLimit {
		writeError(w, http.StatusBadRequest, "k out of range")
		return
	}
	movies, err := s.eng.RecommendByText(r.Context(), s.enc, s.idx, text, k)
	switch {
	case errors.Is(err, recommend.ErrNoEncoder):
		writeError(w, http.StatusNotImplemented, "description search is not configured")
		return
	case err != nil:
		s.log.Error("description search failed", "err", err)
		writeError(w, http.StatusBadGateway, "upstream service error")
		return
	}
	writeJSON(w, http.StatusOK, moviesResponse{Query: text, Movies: movies})
}
