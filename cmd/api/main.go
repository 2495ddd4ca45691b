// Package main implements the Marquee API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/WessleyAI/marquee/engine/assistant"
	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/engine/dispatch"
	"github.com/WessleyAI/marquee/engine/graph"
	"github.com/WessleyAI/marquee/engine/nlu"
	"github.com/WessleyAI/marquee/engine/recommend"
	"github.com/WessleyAI/marquee/engine/semantic"
	"github.com/WessleyAI/marquee/pkg/config"
	"github.com/WessleyAI/marquee/pkg/metrics"
	"github.com/WessleyAI/marquee/pkg/ollama"
	"github.com/WessleyAI/marquee/pkg/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := metrics.New()

	// The process never serves without a valid catalog.
	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	reg.CatalogSize.Set(float64(cat.Len()))
	logger.Info("catalog loaded", "movies", cat.Len(), "dim", cat.Dim(), "source", cfg.Catalog.Source)
	eng := recommend.New(cat)

	var enc recommend.Encoder
	if cfg.Encoder.Enabled {
		enc = ollama.NewEmbedClient(cfg.Encoder.URL, cfg.Encoder.Model)
	}

	var idx recommend.Index
	if cfg.Qdrant.Enabled {
		vs, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vs.Close()
		idx = vs
	}

	parser, closeParser, err := buildParser(cfg.NLU, cat, logger)
	if err != nil {
		return err
	}
	defer closeParser()

	disp := dispatch.New(eng, dispatch.Options{
		RecommendK: cfg.Dispatch.K,
		GenreLimit: cfg.Dispatch.GenreLimit,
		Format:     dispatch.ParseFormat(cfg.Dispatch.Format),
		Encoder:    enc,
		Index:      idx,
		Logger:     logger,
	})
	asst := assistant.New(parser, disp, reg, logger)

	srv := newServer(serverDeps{
		asst:    asst,
		disp:    disp,
		eng:     eng,
		enc:     enc,
		idx:     idx,
		reg:     reg,
		log:     logger,
		k:       cfg.Dispatch.K,
		limit:   cfg.Dispatch.GenreLimit,
		origins: cfg.Server.CORSOrigins,
		rpm:     cfg.Server.RequestsPerMinute,
	})

	sup := suture.New("marquee-api", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: logger}).MustHook(),
		Timeout:   cfg.Server.ShutdownTimeout,
	})
	sup.Add(newHTTPService(&http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}, cfg.Server.ShutdownTimeout, logger))

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("marquee-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		sup.Add(&busService{nc: nc, subject: cfg.NATS.Subject, queue: cfg.NATS.Queue, asst: asst, reg: reg, log: logger})
	}

	err = sup.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown complete")
		return nil
	}
	return err
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

	src, err := graph.NewMovieSource(driver, graph.Opts{
		Database: cfg.Neo4j.Database,
		Page:     cfg.Neo4j.Page,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

// buildParser selects the NLU backend and puts the parse cache in front of
// it. The returned func releases the cache.
func buildParser(cfg config.NLUConfig, cat *catalog.Catalog, logger *slog.Logger) (nlu.Parser, func(), error) {
	var next nlu.Parser
	switch cfg.Mode {
	case "rasa":
		next = nlu.NewClient(nlu.ClientOpts{
			URL:     cfg.URL,
			Timeout: cfg.Timeout,
			Breaker: resilience.BreakerOpts{
				FailThreshold: cfg.BreakerFailures,
				Timeout:       cfg.BreakerTimeout,
				HalfOpenMax:   1,
			},
			Limiter: resilience.LimiterOpts{Rate: cfg.Rate, Burst: cfg.Burst},
			Logger:  logger,
		})
	default:
		titles := make([]string, cat.Len())
		for i := range titles {
			titles[i] = cat.Title(i)
		}
		next = nlu.NewRuleParser(titles, cat.Genres())
	}
	logger.Info("nlu configured", "mode", cfg.Mode)

	cached, err := nlu.NewCachedParser(next, cfg.CacheTTL, logger)
	if err != nil {
		return nil, nil, err
	}
	return cached, func() { cached.Close() }, nil
}
