package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/marquee/engine/dispatch"
	"github.com/WessleyAI/marquee/pkg/metrics"
	"github.com/WessleyAI/marquee/pkg/natsutil"
)

// httpServer is the part of *http.Server the service drives.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// httpService runs an HTTP server under the supervisor.
type httpService struct {
	srv             httpServer
	shutdownTimeout time.Duration
	log             *slog.Logger
}

func newHTTPService(srv httpServer, shutdownTimeout time.Duration, log *slog.Logger) *httpService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &httpService{srv: srv, shutdownTimeout: shutdownTimeout, log: log}
}

func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	h.log.Info("http server started")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *httpService) String() string { return "http-server" }

// busService answers chat requests arriving over NATS.
type busService struct {
	nc      *nats.Conn
	subject string
	queue   string
	asst    asker
	reg     *metrics.Registry
	log     *slog.Logger
}

func (b *busService) Serve(ctx context.Context) error {
	sub, err := natsutil.Respond(b.nc, b.subject, b.queue, b.ask)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", b.subject, err)
	}
	b.log.Info("nats responder started", "subject", b.subject, "queue", b.queue)
	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		b.log.Warn("nats unsubscribe", "err", err)
	}
	return ctx.Err()
}

func (b *busService) ask(ctx context.Context, req askRequest) (dispatch.Response, error) {
	resp, err := b.asst.Ask(ctx, req.UserInput)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	b.reg.BusRequests.WithLabelValues(b.subject, outcome).Inc()
	return resp, err
}

func (b *busService) String() string { return "nats-responder" }
