// Package recommend answers the three catalog queries: movies similar to a
// title, the most popular movies of a genre, and the detail view of a title.
// Every query is a read-only scan of an immutable catalog, so an Engine is
// safe for concurrent use without locking.
package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/pkg/fn"
)

// DefaultK is the number of recommendations returned when none is requested.
const DefaultK = 5

// ErrNoEncoder is returned by free-text queries when no Encoder is configured.
var ErrNoEncoder = errors.New("recommend: no text encoder configured")

// parallelThreshold is the catalog size above which scoring is split across cores.
const parallelThreshold = 4096

// Hit is one scored catalog entry.
type Hit struct {
	Index int     `json:"-"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Engine runs queries over a catalog.
type Engine struct {
	cat     *catalog.Catalog
	workers int
}

// New creates an Engine over cat.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat, workers: runtime.GOMAXPROCS(0)}
}

// Catalog returns the catalog the engine reads from.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Cosine returns dot(a,b)/(|a||b|). A zero-norm vector, a length mismatch or
// a non-finite result yields 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return safeDiv(dot, math.Sqrt(na)*math.Sqrt(nb))
}

func safeDiv(dot, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	s := dot / denom
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// Recommend returns up to k titles most similar to title, excluding the
// matched record itself. An unknown title yields an empty result.
func (e *Engine) Recommend(title string, k int) []string {
	i, ok := e.cat.Index(title)
	if !ok || k <= 0 {
		return []string{}
	}
	hits := e.rank(e.cat.Embedding(i), e.cat.Norm(i), k, i)
	return titles(hits)
}

// RecommendByVector ranks the catalog against an arbitrary query vector.
// exclude is a catalog index to leave out, or -1.
func (e *Engine) RecommendByVector(vec []float32, k, exclude int) ([]Hit, error) {
	if len(vec) != e.cat.Dim() {
		return nil, fmt.Errorf("recommend: query dimension %d, catalog dimension %d", len(vec), e.cat.Dim())
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	var sq float64
	for _, x := range vec {
		sq += float64(x) * float64(x)
	}
	return e.rank(vec, math.Sqrt(sq), k, exclude), nil
}

// rank scores every record against q and keeps the k best, ties broken by
// catalog order.
func (e *Engine) rank(q []float32, qNorm float64, k, exclude int) []Hit {
	n := e.cat.Len()
	parts := 1
	if n >= parallelThreshold {
		parts = e.workers
	}

	tops := fn.ParMap(fn.Spans(n, parts), parts, func(s fn.Span) []Hit {
		hits := make([]Hit, 0, s.Hi-s.Lo)
		for j := s.Lo; j < s.Hi; j++ {
			if j == exclude {
				continue
			}
			hits = append(hits, Hit{Index: j, Score: e.score(q, qNorm, j)})
		}
		return topK(hits, k)
	})

	merged := slices.Concat(tops...)
	merged = topK(merged, k)
	for h := range merged {
		merged[h].Title = e.cat.Title(merged[h].Index)
	}
	return merged
}

func (e *Engine) score(q []float32, qNorm float64, j int) float64 {
	v := e.cat.Embedding(j)
	var dot float64
	for d := range q {
		dot += float64(q[d]) * float64(v[d])
	}
	return safeDiv(dot, qNorm*e.cat.Norm(j))
}

func byScore(a, b Hit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

func topK(hits []Hit, k int) []Hit {
	slices.SortFunc(hits, byScore)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func titles(hits []Hit) []string {
	return fn.Map(hits, func(h Hit) string { return h.Title })
}

// Index finds the nearest catalog entries to a query vector. BruteForce is
// the exact in-memory implementation; engine/semantic offers an ANN one.
type Index interface {
	Nearest(ctx context.Context, vec []float32, k int) ([]Hit, error)
}

// Encoder turns free text into a vector in the catalog's embedding space.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// BruteForce is an exact Index over the engine's catalog.
type BruteForce struct{ e *Engine }

// Exact returns the exact in-memory Index over the engine's catalog.
func (e *Engine) Exact() BruteForce { return BruteForce{e: e} }

// Nearest implements Index.
func (b BruteForce) Nearest(_ context.Context, vec []float32, k int) ([]Hit, error) {
	return b.e.RecommendByVector(vec, k, -1)
}

// RecommendByText encodes a free-text description and returns the titles of
// the k nearest movies. idx may be nil, in which case the exact in-memory
// ranking is used.
func (e *Engine) RecommendByText(ctx context.Context, enc Encoder, idx Index, text string, k int) ([]string, error) {
	if enc == nil {
		return nil, ErrNoEncoder
	}
	if text == "" || k <= 0 {
		return []string{}, nil
	}
	vec, err := enc.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("recommend: encode description: %w", err)
	}
	if idx == nil {
		idx = e.Exact()
	}
	hits, err := idx.Nearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("recommend: nearest: %w", err)
	}
	return titles(hits), nil
}
