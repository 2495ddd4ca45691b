// Package catalog holds the read-only movie catalog: every record with its
// precomputed embedding, loaded once from a snapshot at startup.
package catalog

import (
	"math"
	"slices"
)

// MovieRecord is one row of the catalog.
type MovieRecord struct {
	Title       string
	Genres      []string
	ReleaseDate string
	Overview    string
	// Popularity is NaN when the snapshot value was missing or non-numeric.
	Popularity float64
	Embedding  []float32
}

// HasPopularity reports whether the record carries a usable popularity value.
func (m MovieRecord) HasPopularity() bool {
	return !math.IsNaN(m.Popularity)
}

// HasGenre reports whether genre equals one of the record's genres, ignoring case.
func (m MovieRecord) HasGenre(genre string) bool {
	if genre == "" {
		return false
	}
	return slices.ContainsFunc(m.Genres, func(g string) bool {
		return equalFold(g, genre)
	})
}

func (m MovieRecord) clone() MovieRecord {
	m.Genres = slices.Clone(m.Genres)
	m.Embedding = slices.Clone(m.Embedding)
	return m
}
