package nlu

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/WessleyAI/marquee/engine/dispatch"
)

// FallbackIntent is reported when no rule matches.
const FallbackIntent = "nlu_fallback"

// maxTitleWords bounds the n-gram length tried when spotting titles.
const maxTitleWords = 10

// genreAliases maps common spellings to catalog genre labels. An alias is
// only active when its target exists in the vocabulary.
var genreAliases = map[string]string{
	"sci fi":      "science fiction",
	"scifi":       "science fiction",
	"animated":    "animation",
	"cartoon":     "animation",
	"documentary": "documentary",
	"docs":        "documentary",
	"romantic":    "romance",
	"scary":       "horror",
	"funny":       "comedy",
	"comedies":    "comedy",
	"thrillers":   "thriller",
	"westerns":    "western",
	"musicals":    "music",
}

var (
	goodbyeRe   = regexp.MustCompile(`(?i)\b(bye|goodbye|farewell|see you|quit|exit)\b`)
	greetRe     = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|howdy|greetings|good (morning|afternoon|evening))\b`)
	detailsRe   = regexp.MustCompile(`(?i)\b(details?|tell me about|info(rmation)?|overview|plot|what is|when was|release date)\b`)
	recommendRe = regexp.MustCompile(`(?i)\b(recommend\w*|similar|suggest\w*|like)\b`)
	aboutRe     = regexp.MustCompile(`(?i)\b(about|featuring|involving|where)\b\s+(.+)$`)
	// cueRe marks where a title usually starts, so "movies like heat" is
	// searched from "heat" onward.
	cueRe = regexp.MustCompile(`(?i)\b(like|about|for|of|on|to|than|as)\b`)
)

// RuleParser is an offline Parser driven by keyword rules and the catalog's
// titles and genres.
type RuleParser struct {
	titles map[string]string // normalized -> catalog title
	genres map[string]string // normalized -> catalog genre
}

// NewRuleParser builds a parser over the given vocabulary. The first of
// several titles normalizing to the same key wins.
func NewRuleParser(titles, genres []string) *RuleParser {
	p := &RuleParser{
		titles: make(map[string]string, len(titles)),
		genres: make(map[string]string, len(genres)+len(genreAliases)),
	}
	for _, t := range titles {
		if k := normalize(t); k != "" {
			if _, dup := p.titles[k]; !dup {
				p.titles[k] = t
			}
		}
	}
	for _, g := range genres {
		if k := normalize(g); k != "" {
			if _, dup := p.genres[k]; !dup {
				p.genres[k] = g
			}
		}
	}
	for alias, target := range genreAliases {
		if g, ok := p.genres[target]; ok {
			if _, dup := p.genres[alias]; !dup {
				p.genres[alias] = g
			}
		}
	}
	return p
}

// Parse implements Parser. It never fails.
func (p *RuleParser) Parse(_ context.Context, text string) (Result, error) {
	if goodbyeRe.MatchString(text) {
		return matched(dispatch.Goodbye), nil
	}

	title := p.findTitle(text)
	genre := spot(p.genres, words(text))

	switch {
	case title != "" && detailsRe.MatchString(text):
		return matched(dispatch.GetMovieDetails, Entity{dispatch.EntityMovieTitle, title}), nil
	case title != "" && recommendRe.MatchString(text):
		return matched(dispatch.GetRecommendation, Entity{dispatch.EntityMovieTitle, title}), nil
	case genre != "":
		return matched(dispatch.SearchByGenre, Entity{dispatch.EntityGenre, genre}), nil
	case recommendRe.MatchString(text):
		return matched(dispatch.GetRecommendation), nil
	}

	if m := aboutRe.FindStringSubmatch(text); m != nil && title == "" {
		if desc := strings.TrimSpace(strings.TrimRight(m[2], "?.! ")); desc != "" {
			return matched(dispatch.SearchByDescription, Entity{dispatch.EntityDescription, desc}), nil
		}
	}
	if greetRe.MatchString(text) {
		return matched(dispatch.Greet), nil
	}
	if title != "" {
		return matched(dispatch.GetMovieDetails, Entity{dispatch.EntityMovieTitle, title}), nil
	}
	return Result{Intent: FallbackIntent}, nil
}

func matched(intent dispatch.Intent, ents ...Entity) Result {
	return Result{Intent: intent.String(), Confidence: 1, Entities: ents}
}

// findTitle looks for a catalog title after the first cue word, falling back
// to the whole text.
func (p *RuleParser) findTitle(text string) string {
	if loc := cueRe.FindStringIndex(text); loc != nil {
		if t := spot(p.titles, words(text[loc[1]:])); t != "" {
			return t
		}
	}
	return spot(p.titles, words(text))
}

// spot returns the vocabulary entry for the longest, then leftmost, run of
// words found in vocab.
func spot(vocab map[string]string, ws []string) string {
	for n := min(maxTitleWords, len(ws)); n > 0; n-- {
		for i := 0; i+n <= len(ws); i++ {
			if v, ok := vocab[strings.Join(ws[i:i+n], " ")]; ok {
				return v
			}
		}
	}
	return ""
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(s string) string { return strings.Join(words(s), " ") }
