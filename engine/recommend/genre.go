package recommend

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/WessleyAI/marquee/pkg/fn"
)

// DefaultLimit is the number of genre results returned when none is requested.
const DefaultLimit = 5

// SearchByGenre returns up to limit titles whose genre list contains genre
// (case-insensitive, whole label), most popular first. Records without a
// popularity value come after all others; ties keep catalog order.
func (e *Engine) SearchByGenre(genre string, limit int) []string {
	return e.SearchByGenres([]string{genre}, limit)
}

// SearchByGenres is SearchByGenre for records carrying every listed genre.
func (e *Engine) SearchByGenres(genres []string, limit int) []string {
	genres = fn.Filter(genres, func(g string) bool { return strings.TrimSpace(g) != "" })
	if len(genres) == 0 || limit <= 0 {
		return []string{}
	}

	idx := make([]int, e.cat.Len())
	for i := range idx {
		idx[i] = i
	}
	matches := fn.Filter(idx, func(i int) bool {
		for _, g := range genres {
			if !e.cat.HasGenre(i, g) {
				return false
			}
		}
		return true
	})

	slices.SortFunc(matches, e.byPopularity)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return fn.Map(matches, e.cat.Title)
}

// byPopularity orders descending by popularity, missing values last, then by
// catalog position.
func (e *Engine) byPopularity(a, b int) int {
	pa, pb := e.cat.Popularity(a), e.cat.Popularity(b)
	na, nb := math.IsNaN(pa), math.IsNaN(pb)
	switch {
	case na && !nb:
		return 1
	case !na && nb:
		return -1
	case !na && !nb:
		if c := cmp.Compare(pb, pa); c != 0 {
			return c
		}
	}
	return cmp.Compare(a, b)
}
