package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleJSON = `[
  {"title": "Dune", "genres": ["Science Fiction", "Action"], "release_date": "2021-09-15",
   "overview": "Spice.", "popularity": 50, "embedding": [1, 0, 0.2]},
  {"title": "Alien", "genres": [{"id": 878, "name": "Science Fiction"}], "release_date": "1979-05-25",
   "overview": "In space.", "popularity": "80.5", "embedding": [0.9, 0.1, 0.2]}
]`

func TestDecodeJSON_Array(t *testing.T) {
	snap, err := DecodeJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	c, err := Load(snap)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 || c.Dim() != 3 {
		t.Fatalf("Len=%d Dim=%d", c.Len(), c.Dim())
	}
	if got := c.Popularity(1); got != 80.5 {
		t.Errorf("popularity = %v, want 80.5", got)
	}
	if got := c.Record(1).Genres; len(got) != 1 || got[0] != "Science Fiction" {
		t.Errorf("genres = %v", got)
	}
}

func TestDecodeJSON_Object(t *testing.T) {
	snap, err := DecodeJSON(strings.NewReader(`{"model": "bert-base-uncased", "movies": ` + sampleJSON + `}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(snap.Rows))
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	for _, doc := range []string{"", "   ", "42", `{"films": []}`, `[{"title": }]`} {
		_, err := DecodeJSON(strings.NewReader(doc))
		if !errors.Is(err, ErrCatalogLoad) {
			t.Errorf("DecodeJSON(%q) err = %v, want ErrCatalogLoad", doc, err)
		}
	}
}

func TestDecodeJSONL(t *testing.T) {
	in := `{"title": "A", "popularity": 1, "embedding": [1, 0]}

{"title": "B", "popularity": null, "embedding": [0, 1]}
`
	snap, err := DecodeJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeJSONL: %v", err)
	}
	c, err := Load(snap)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d", c.Len())
	}
	if !math.IsNaN(c.Popularity(1)) {
		t.Errorf("null popularity should be missing, got %v", c.Popularity(1))
	}

	if _, err := DecodeJSONL(strings.NewReader("{bad\n")); !errors.Is(err, ErrCatalogLoad) {
		t.Errorf("malformed line err = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, ok := c.FindByTitle("ALIEN"); !ok {
		t.Error("expected to find ALIEN")
	}

	if _, err := LoadFile(context.Background(), filepath.Join(dir, "missing.json")); !errors.Is(err, ErrCatalogLoad) {
		t.Errorf("missing file err = %v", err)
	}
	if _, err := LoadFile(context.Background(), filepath.Join(dir, "movies.pkl")); !errors.Is(err, ErrCatalogLoad) {
		t.Errorf("unsupported extension err = %v", err)
	}
}

func TestDecodeBlob(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-2))
	v, err := decodeBlob(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 2 || v[0] != 1.5 || v[1] != -2 {
		t.Fatalf("decodeBlob = %v", v)
	}
	if _, err := decodeBlob(buf[:5]); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestReadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`CREATE TABLE movies (
		title TEXT, genres TEXT, release_date TEXT, overview TEXT, popularity, embedding)`)
	if err != nil {
		t.Fatal(err)
	}

	blob := make([]byte, 8)
	binary.LittleEndian.PutUint32(blob, math.Float32bits(0))
	binary.LittleEndian.PutUint32(blob[4:], math.Float32bits(1))

	inserts := []struct {
		title, genres string
		pop           any
		emb           any
	}{
		{"Heat", `["Crime", "Thriller"]`, 17.9, `[1, 0]`},
		{"Ronin", `[{"id": 28, "name": "Action"}]`, "unknown", blob},
	}
	for _, in := range inserts {
		_, err := db.Exec(`INSERT INTO movies VALUES (?, ?, '1995-12-15', '', ?, ?)`,
			in.title, in.genres, in.pop, in.emb)
		if err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	c, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Len() != 2 || c.Dim() != 2 {
		t.Fatalf("Len=%d Dim=%d", c.Len(), c.Dim())
	}
	heat, _ := c.FindByTitle("heat")
	if heat.Popularity != 17.9 || len(heat.Genres) != 2 {
		t.Errorf("heat = %+v", heat)
	}
	ronin, _ := c.FindByTitle("ronin")
	if ronin.HasPopularity() {
		t.Errorf("ronin popularity should be missing, got %v", ronin.Popularity)
	}
	if ronin.Embedding[1] != 1 {
		t.Errorf("ronin embedding = %v", ronin.Embedding)
	}
}
