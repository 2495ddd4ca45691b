package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type fakeResult struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func (f *fakeResult) Next(context.Context) bool {
	if f.pos >= len(f.records) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeResult) Record() *neo4j.Record { return f.records[f.pos-1] }
func (f *fakeResult) Err() error            { return f.err }

type fakeRunner struct {
	cypher string
	params map[string]any
	res    *fakeResult
	err    error
	closed bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	f.cypher, f.params = cypher, params
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeRunner) Close(context.Context) error { f.closed = true; return nil }

func rec(name string) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"name"}, Values: []any{name}}
}

func nameOf(r *neo4j.Record) (string, error) {
	v, _ := r.Get("name")
	s, ok := v.(string)
	if !ok {
		return "", errors.New("name is not a string")
	}
	return s, nil
}

func newTestRepo(t *testing.T, fr *fakeRunner, opts ...Neo4jOption[string, string]) *Neo4jRepo[string, string] {
	t.Helper()
	r, err := NewNeo4jRepo[string, string](nil, "Movie", nameOf, opts...)
	if err != nil {
		t.Fatal(err)
	}
	r.newSession = func(context.Context) runner { return fr }
	return r
}

func TestNewNeo4jRepo_Defaults(t *testing.T) {
	r, err := NewNeo4jRepo[string, string](nil, "Movie", nameOf)
	if err != nil {
		t.Fatal(err)
	}
	if r.idKey != "id" || r.orderKey != "id" {
		t.Fatalf("idKey=%s orderKey=%s", r.idKey, r.orderKey)
	}
	r, _ = NewNeo4jRepo[string, string](nil, "Movie", nameOf, WithIDKey[string, string]("title"))
	if r.orderKey != "title" {
		t.Fatalf("order key should follow id key, got %s", r.orderKey)
	}
}

func TestNewNeo4jRepo_RejectsBadIdentifiers(t *testing.T) {
	for _, label := range []string{"", "Movie) DETACH DELETE (m", "9lives"} {
		if _, err := NewNeo4jRepo[string, string](nil, label, nameOf); err == nil {
			t.Errorf("label %q accepted", label)
		}
	}
}

func TestGet(t *testing.T) {
	fr := &fakeRunner{res: &fakeResult{records: []*neo4j.Record{rec("Heat")}}}
	r := newTestRepo(t, fr, WithIDKey[string, string]("title"))

	got, err := r.Get(context.Background(), "Heat")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Heat" {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(fr.cypher, "MATCH (n:Movie {title: $id})") || fr.params["id"] != "Heat" {
		t.Fatalf("cypher = %q params = %v", fr.cypher, fr.params)
	}
	if !strings.Contains(fr.cypher, "ORDER BY elementId(n) LIMIT 1") {
		t.Fatalf("duplicate keys must resolve deterministically, cypher = %q", fr.cypher)
	}
	if !fr.closed {
		t.Fatal("session not closed")
	}
}

func TestGet_NotFound(t *testing.T) {
	r := newTestRepo(t, &fakeRunner{res: &fakeResult{}})
	if _, err := r.Get(context.Background(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_RunError(t *testing.T) {
	r := newTestRepo(t, &fakeRunner{err: errors.New("conn refused")})
	if _, err := r.Get(context.Background(), "x"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestList(t *testing.T) {
	fr := &fakeRunner{res: &fakeResult{records: []*neo4j.Record{rec("Alien"), rec("Dune")}}}
	r := newTestRepo(t, fr, WithOrderKey[string, string]("title"))

	got, err := r.List(context.Background(), ListOpts{Offset: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "Alien" {
		t.Fatalf("got %v", got)
	}
	if fr.params["limit"] != DefaultLimit || fr.params["offset"] != 10 {
		t.Fatalf("params = %v", fr.params)
	}
	if !strings.Contains(fr.cypher, "ORDER BY n.title, elementId(n) SKIP $offset") {
		t.Fatalf("list order must end on a unique key, cypher = %q", fr.cypher)
	}
}

func TestList_Errors(t *testing.T) {
	bad := &fakeRunner{res: &fakeResult{records: []*neo4j.Record{{Keys: []string{"name"}, Values: []any{42}}}}}
	if _, err := newTestRepo(t, bad).List(context.Background(), ListOpts{}); err == nil {
		t.Fatal("expected decode error")
	}
	streamErr := &fakeRunner{res: &fakeResult{err: errors.New("stream reset")}}
	if _, err := newTestRepo(t, streamErr).List(context.Background(), ListOpts{}); err == nil {
		t.Fatal("expected stream error")
	}
}

type fakeDriver struct {
	neo4j.DriverWithContext
	cfg neo4j.SessionConfig
}

type fakeSession struct {
	neo4j.SessionWithContext
}

func (d *fakeDriver) NewSession(_ context.Context, cfg neo4j.SessionConfig) neo4j.SessionWithContext {
	d.cfg = cfg
	return &fakeSession{}
}

func TestSession_UsesReadMode(t *testing.T) {
	fd := &fakeDriver{}
	r, _ := NewNeo4jRepo[string, string](fd, "Movie", nameOf, WithDatabase[string, string]("movies"))
	if _, ok := r.session(context.Background()).(*neo4jSessionAdapter); !ok {
		t.Fatal("expected neo4jSessionAdapter")
	}
	if fd.cfg.AccessMode != neo4j.AccessModeRead || fd.cfg.DatabaseName != "movies" {
		t.Fatalf("session config = %+v", fd.cfg)
	}
}
