package recommend

// Details is the fixed field subset shown for a single movie.
type Details struct {
	Title       string   `json:"title"`
	Genres      []string `json:"genres"`
	ReleaseDate string   `json:"release_date"`
	Overview    string   `json:"overview"`
	// Popularity is nil when the catalog has no usable value.
	Popularity *float64 `json:"popularity"`
}

// GetDetails resolves title case-insensitively. ok is false on a miss.
func (e *Engine) GetDetails(title string) (d Details, ok bool) {
	rec, found := e.cat.FindByTitle(title)
	if !found {
		return Details{}, false
	}
	d = Details{
		Title:       rec.Title,
		Genres:      rec.Genres,
		ReleaseDate: rec.ReleaseDate,
		Overview:    rec.Overview,
	}
	if d.Genres == nil {
		d.Genres = []string{}
	}
	if rec.HasPopularity() {
		p := rec.Popularity
		d.Popularity = &p
	}
	return d, true
}
