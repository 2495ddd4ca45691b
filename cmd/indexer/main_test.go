package main

import (
	"context"
	"errors"
	"testing"

	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/engine/recommend"
)

type reversedIndex struct{ eng *recommend.Engine }

// Nearest returns the worst match first.
func (r reversedIndex) Nearest(_ context.Context, vec []float32, k int) ([]recommend.Hit, error) {
	hits, err := r.eng.RecommendByVector(vec, r.eng.Catalog().Len(), -1)
	if err != nil {
		return nil, err
	}
	return []recommend.Hit{hits[len(hits)-1]}, nil
}

type brokenIndex struct{}

func (brokenIndex) Nearest(context.Context, []float32, int) ([]recommend.Hit, error) {
	return nil, errors.New("unavailable")
}

func testEngine(t *testing.T) *recommend.Engine {
	t.Helper()
	cat, err := catalog.Load(catalog.Snapshot{Rows: []catalog.Row{
		{"title": "Heat", "popularity": 1.0, "embedding": []any{1.0, 0.0}},
		{"title": "Alien", "popularity": 2.0, "embedding": []any{0.0, 1.0}},
		{"title": "Ronin", "popularity": 3.0, "embedding": []any{0.9, 0.2}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return recommend.New(cat)
}

func TestVerify(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	if n, err := verify(ctx, eng.Exact(), eng, 10); err != nil || n != 0 {
		t.Fatalf("exact index: mismatches = %d, err = %v", n, err)
	}
	if n, err := verify(ctx, reversedIndex{eng}, eng, 2); err != nil || n != 2 {
		t.Fatalf("reversed index: mismatches = %d, err = %v", n, err)
	}
	if _, err := verify(ctx, brokenIndex{}, eng, 1); err == nil {
		t.Fatal("expected index error")
	}
}
