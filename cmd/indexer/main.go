// Command indexer loads the movie catalog and syncs its embeddings into a
// Qdrant collection so the API can answer similarity queries from the index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/engine/graph"
	"github.com/WessleyAI/marquee/engine/recommend"
	"github.com/WessleyAI/marquee/engine/semantic"
	"github.com/WessleyAI/marquee/pkg/config"
)

func main() {
	recreate := flag.Bool("recreate", false, "drop the collection before syncing")
	batch := flag.Int("batch", semantic.DefaultBatch, "points per upsert")
	probes := flag.Int("verify", 10, "records to spot-check against exact ranking (0 disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *recreate, *batch, *probes); err != nil {
		logger.Error("indexer failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, recreate bool, batch, probes int) error {
	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded", "movies", cat.Len(), "dim", cat.Dim())

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if recreate {
		if err := store.DeleteCollection(ctx); err != nil {
			logger.Warn("delete collection", "err", err)
		}
	}

	start := time.Now()
	n, err := store.SyncCatalog(ctx, cat, batch)
	if err != nil {
		return fmt.Errorf("sync (%d written): %w", n, err)
	}
	logger.Info("catalog synced", "points", n, "collection", cfg.Qdrant.Collection, "took", time.Since(start))

	if probes > 0 {
		mismatches, err := verify(ctx, store, recommend.New(cat), probes)
		if err != nil {
			return err
		}
		logger.Info("verification done", "probes", min(probes, cat.Len()), "mismatches", mismatches)
	}
	return nil
}

// verify compares the index's top hit with the exact ranking for the first
// probes records and returns how many disagree.
func verify(ctx context.Context, idx recommend.Index, eng *recommend.Engine, probes int) (int, error) {
	cat := eng.Catalog()
	mismatches := 0
	for i := range min(probes, cat.Len()) {
		vec := cat.Embedding(i)
		exact, err := eng.RecommendByVector(vec, 1, -1)
		if err != nil {
			return 0, err
		}
		hits, err := idx.Nearest(ctx, vec, 1)
		if err != nil {
			return 0, fmt.Errorf("verify %q: %w", cat.Title(i), err)
		}
		if len(hits) == 0 || len(exact) == 0 || hits[0].Title != exact[0].Title {
			mismatches++
			slog.Debug("index disagrees with exact ranking", "title", cat.Title(i))
		}
	}
	return mismatches, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	if cfg.Catalog.Source != "neo4j" {
		return catalog.LoadFile(ctx, cfg.Catalog.Path)
	}
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URL, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	src, err := graph.NewMovieSource(driver, graph.Opts{Database: cfg.Neo4j.Database, Page: cfg.Neo4j.Page, Logger: logger})
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}
