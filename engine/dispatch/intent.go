package dispatch

// Intent is the closed set of user goals the dispatcher can act on. A new
// intent needs a constant here, a name in intentNames and a case in Dispatch.
type Intent int

const (
	Unrecognized Intent = iota
	GetRecommendation
	SearchByGenre
	GetMovieDetails
	Greet
	Goodbye
	SearchByDescription
)

var intentNames = map[Intent]string{
	Unrecognized:        "unrecognized",
	GetRecommendation:   "get_recommendation",
	SearchByGenre:       "search_by_genre",
	GetMovieDetails:     "get_movie_details",
	Greet:               "greet",
	Goodbye:             "goodbye",
	SearchByDescription: "search_by_description",
}

var intentsByName = func() map[string]Intent {
	m := make(map[string]Intent, len(intentNames))
	for i, n := range intentNames {
		m[n] = i
	}
	return m
}()

// ParseIntent maps an NLU intent name to an Intent. Unknown names, including
// "unrecognized" itself and the empty string, map to Unrecognized.
func ParseIntent(name string) Intent {
	return intentsByName[name]
}

func (i Intent) String() string {
	if n, ok := intentNames[i]; ok {
		return n
	}
	return intentNames[Unrecognized]
}

// Entity names produced by the NLU model.
const (
	EntityMovieTitle  = "movie_title"
	EntityGenre       = "genre"
	EntityDescription = "description"
)

// Entities maps entity names to their extracted values.
type Entities map[string]string

// Get returns the value of name, or "" when the entity was not extracted.
func (e Entities) Get(name string) string {
	return e[name]
}
