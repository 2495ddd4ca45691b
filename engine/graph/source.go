// Package graph reads a movie catalog snapshot out of Neo4j.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/pkg/repo"
)

// Label is the node label movies are stored under.
const Label = "Movie"

// DefaultPage is the number of nodes fetched per List call.
const DefaultPage = 500

// Lister is the read side of repo.Neo4jRepo that MovieSource needs.
type Lister interface {
	List(ctx context.Context, opts repo.ListOpts) ([]catalog.Row, error)
}

// MovieSource pages (:Movie) nodes into a catalog snapshot.
type MovieSource struct {
	nodes Lister
	page  int
	log   *slog.Logger
}

// Opts configures NewMovieSource.
type Opts struct {
	Database string
	// OrderKey fixes catalog order across loads. Defaults to "title".
	OrderKey string
	Page     int
	Logger   *slog.Logger
}

// NewMovieSource builds a MovieSource over driver.
func NewMovieSource(driver neo4j.DriverWithContext, opts Opts) (*MovieSource, error) {
	if opts.OrderKey == "" {
		opts.OrderKey = "title"
	}
	r, err := repo.NewNeo4jRepo[catalog.Row, string](driver, Label, FromRecord,
		repo.WithIDKey[catalog.Row, string]("title"),
		repo.WithOrderKey[catalog.Row, string](opts.OrderKey),
		repo.WithDatabase[catalog.Row, string](opts.Database),
	)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return NewFromLister(r, opts.Page, opts.Logger), nil
}

// NewFromLister builds a MovieSource over any Lister.
func NewFromLister(l Lister, page int, logger *slog.Logger) *MovieSource {
	if page <= 0 {
		page = DefaultPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MovieSource{nodes: l, page: page, log: logger}
}

// Snapshot reads every movie node. It stops at the first short page.
func (s *MovieSource) Snapshot(ctx context.Context) (catalog.Snapshot, error) {
	var snap catalog.Snapshot
	for offset := 0; ; offset += s.page {
		rows, err := s.nodes.List(ctx, repo.ListOpts{Offset: offset, Limit: s.page})
		if err != nil {
			return catalog.Snapshot{}, fmt.Errorf("graph: snapshot at offset %d: %w", offset, err)
		}
		snap.Rows = append(snap.Rows, rows...)
		if len(rows) < s.page {
			break
		}
	}
	s.log.Info("graph snapshot read", "movies", len(snap.Rows))
	return snap, nil
}

// Load reads a snapshot and builds the catalog from it.
func (s *MovieSource) Load(ctx context.Context) (*catalog.Catalog, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Load(snap)
}

// FromRecord converts a record binding a movie node as "n" into a Row.
// Node properties are copied as-is; catalog.Load decides what is required.
func FromRecord(rec *neo4j.Record) (catalog.Row, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return nil, fmt.Errorf("graph: record: %w", err)
	}
	row := make(catalog.Row, len(node.Props))
	for k, v := range node.Props {
		row[k] = v
	}
	return row, nil
}
