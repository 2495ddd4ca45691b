package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Required snapshot fields.
const (
	FieldTitle       = "title"
	FieldGenres      = "genres"
	FieldReleaseDate = "release_date"
	FieldOverview    = "overview"
	FieldPopularity  = "popularity"
	FieldEmbedding   = "embedding"
)

// Row is one undecoded snapshot entry keyed by field name. Values are what a
// JSON decoder (with UseNumber), a SQL scan or a Neo4j node property map
// produce; Load coerces them into a MovieRecord.
type Row map[string]any

// Snapshot is a pre-built catalog as read from static storage.
type Snapshot struct {
	Rows []Row
}

// Catalog is the immutable, ordered movie collection. It is safe for
// concurrent use because nothing mutates it after Load returns.
type Catalog struct {
	records []MovieRecord
	norms   []float64
	byTitle map[string]int
	genres  []string
	dim     int
}

// Load validates a snapshot and builds a Catalog. Any malformed row fails the
// whole load with a *LoadError.
func Load(snap Snapshot) (*Catalog, error) {
	if len(snap.Rows) == 0 {
		return nil, docError("snapshot has no records", nil)
	}

	c := &Catalog{
		records: make([]MovieRecord, 0, len(snap.Rows)),
		norms:   make([]float64, 0, len(snap.Rows)),
		byTitle: make(map[string]int, len(snap.Rows)),
	}
	seenGenre := make(map[string]bool)

	for i, row := range snap.Rows {
		rec, err := decodeRow(i, row)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			c.dim = len(rec.Embedding)
		} else if len(rec.Embedding) != c.dim {
			return nil, fieldError(i, FieldEmbedding,
				fmt.Sprintf("dimension %d, want %d", len(rec.Embedding), c.dim))
		}

		key := titleKey(rec.Title)
		if _, dup := c.byTitle[key]; !dup {
			c.byTitle[key] = i
		}
		for _, g := range rec.Genres {
			gk := strings.ToLower(g)
			if !seenGenre[gk] {
				seenGenre[gk] = true
				c.genres = append(c.genres, g)
			}
		}
		c.records = append(c.records, rec)
		c.norms = append(c.norms, norm(rec.Embedding))
	}
	return c, nil
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// Dim returns the embedding dimensionality shared by every record.
func (c *Catalog) Dim() int { return c.dim }

// Record returns a copy of the i-th record.
func (c *Catalog) Record(i int) MovieRecord { return c.records[i].clone() }

// Title returns the title of the i-th record.
func (c *Catalog) Title(i int) string { return c.records[i].Title }

// Embedding returns the i-th embedding. The slice is shared with the catalog
// and must not be modified.
func (c *Catalog) Embedding(i int) []float32 { return c.records[i].Embedding }

// Norm returns the precomputed L2 norm of the i-th embedding.
func (c *Catalog) Norm(i int) float64 { return c.norms[i] }

// Popularity returns the i-th popularity, NaN when missing.
func (c *Catalog) Popularity(i int) float64 { return c.records[i].Popularity }

// HasGenre reports whether the i-th record lists genre (case-insensitive).
func (c *Catalog) HasGenre(i int, genre string) bool { return c.records[i].HasGenre(genre) }

// Index resolves a title to its first position in catalog order. The match is
// case-insensitive over the whole string; there is no partial matching.
func (c *Catalog) Index(title string) (int, bool) {
	if title == "" {
		return -1, false
	}
	i, ok := c.byTitle[titleKey(title)]
	if !ok {
		return -1, false
	}
	return i, true
}

// FindByTitle returns the first record whose title equals title ignoring case.
func (c *Catalog) FindByTitle(title string) (MovieRecord, bool) {
	i, ok := c.Index(title)
	if !ok {
		return MovieRecord{}, false
	}
	return c.Record(i), true
}

// Genres lists distinct genre labels in first-seen order.
func (c *Catalog) Genres() []string {
	out := make([]string, len(c.genres))
	copy(out, c.genres)
	return out
}

func titleKey(title string) string { return strings.ToLower(title) }

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func decodeRow(i int, row Row) (MovieRecord, error) {
	var rec MovieRecord

	title, ok := row[FieldTitle]
	if !ok {
		return rec, fieldError(i, FieldTitle, "missing")
	}
	s, ok := title.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return rec, fieldError(i, FieldTitle, "must be a non-empty string")
	}
	rec.Title = s

	genres, err := toGenres(row[FieldGenres])
	if err != nil {
		return rec, &LoadError{Index: i, Field: FieldGenres, Reason: "malformed", Err: err}
	}
	rec.Genres = genres
	rec.ReleaseDate = toText(row[FieldReleaseDate])
	rec.Overview = toText(row[FieldOverview])

	pop, ok := row[FieldPopularity]
	if !ok {
		return rec, fieldError(i, FieldPopularity, "missing")
	}
	rec.Popularity = toPopularity(pop)

	emb, ok := row[FieldEmbedding]
	if !ok {
		return rec, fieldError(i, FieldEmbedding, "missing")
	}
	vec, err := toVector(emb)
	if err != nil {
		return rec, &LoadError{Index: i, Field: FieldEmbedding, Reason: "malformed", Err: err}
	}
	if len(vec) == 0 {
		return rec, fieldError(i, FieldEmbedding, "empty")
	}
	rec.Embedding = vec
	return rec, nil
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// toPopularity coerces non-numeric and non-finite values to NaN.
func toPopularity(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		p, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return math.NaN()
		}
		f = p
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return math.NaN()
		}
		f = p
	default:
		return math.NaN()
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

func toGenres(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return t, nil
	case string:
		// SQL sources store the list as JSON text; raw TMDB dumps use
		// Python literal syntax.
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		var decoded any
		if err := unmarshalNumber([]byte(t), &decoded); err != nil {
			list, perr := parsePyList(t)
			if perr != nil {
				return nil, err
			}
			return toGenres(list)
		}
		if _, nested := decoded.(string); nested {
			return nil, fmt.Errorf("expected a list, got a string")
		}
		return toGenres(decoded)
	case []any:
		out := make([]string, 0, len(t))
		for j, g := range t {
			switch gv := g.(type) {
			case string:
				out = append(out, gv)
			case map[string]any:
				name, ok := gv["name"].(string)
				if !ok {
					return nil, fmt.Errorf("genre %d has no name", j)
				}
				out = append(out, name)
			default:
				return nil, fmt.Errorf("genre %d has type %T", j, g)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toVector(v any) ([]float32, error) {
	switch t := v.(type) {
	case []float32:
		if err := checkFinite(t); err != nil {
			return nil, err
		}
		return t, nil
	case []float64:
		out := make([]float32, len(t))
		for j, x := range t {
			out[j] = float32(x)
		}
		return out, checkFinite(out)
	case []byte:
		return decodeBlob(t)
	case string:
		var decoded []any
		if err := unmarshalNumber([]byte(t), &decoded); err != nil {
			return nil, err
		}
		return toVector(decoded)
	case []any:
		out := make([]float32, len(t))
		for j, x := range t {
			f, ok := toFloat(x)
			if !ok {
				return nil, fmt.Errorf("component %d has type %T", j, x)
			}
			out[j] = float32(f)
		}
		return out, checkFinite(out)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func checkFinite(v []float32) error {
	for j, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("component %d is not finite", j)
		}
	}
	return nil
}
