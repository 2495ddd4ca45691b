package dispatch

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/WessleyAI/marquee/engine/recommend"
)

// Format selects how movie details are rendered into the response text.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat returns the named format, or FormatHTML for an unknown name.
func ParseFormat(name string) Format {
	switch f := Format(strings.ToLower(name)); f {
	case FormatMarkdown, FormatText:
		return f
	default:
		return FormatHTML
	}
}

// FormatDetails renders genres, release date, overview and popularity, in
// that order.
func FormatDetails(d recommend.Details, f Format) string {
	genres := strings.Join(d.Genres, ", ")
	pop := "unknown"
	if d.Popularity != nil {
		pop = strconv.FormatFloat(*d.Popularity, 'f', -1, 64)
	}

	switch f {
	case FormatMarkdown:
		return fmt.Sprintf("\n\n- **Genres:** %s\n- **Release Date:** %s\n- **Overview:** %s\n- **Popularity:** %s",
			genres, d.ReleaseDate, d.Overview, pop)
	case FormatText:
		return fmt.Sprintf("Genres: %s; Release Date: %s; Overview: %s; Popularity: %s",
			genres, d.ReleaseDate, d.Overview, pop)
	default:
		return fmt.Sprintf("<br><b>Genres:</b> %s<br><b>Release Date:</b> %s<br><b>Overview:</b> %s<br><b>Popularity:</b> %s",
			html.EscapeString(genres), html.EscapeString(d.ReleaseDate), html.EscapeString(d.Overview), pop)
	}
}
