package nlu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/WessleyAI/marquee/pkg/fn"
	"github.com/WessleyAI/marquee/pkg/resilience"
)

// ClientOpts configures a Rasa Client.
type ClientOpts struct {
	// URL is the Rasa server root, e.g. http://localhost:5005.
	URL     string
	Timeout time.Duration
	Breaker resilience.BreakerOpts
	Limiter resilience.LimiterOpts
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls a Rasa server's /model/parse endpoint.
type Client struct {
	url     string
	hc      *http.Client
	breaker *resilience.Breaker
	limiter *resilience.Limiter
	log     *slog.Logger
}

// NewClient creates a Rasa client.
func NewClient(opts ClientOpts) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = "nlu"
	}
	if opts.Breaker.Logger == nil {
		opts.Breaker.Logger = log
	}
	return &Client{
		url:     strings.TrimRight(opts.URL, "/") + "/model/parse",
		hc:      hc,
		breaker: resilience.NewBreaker(opts.Breaker),
		limiter: resilience.NewLimiter(opts.Limiter),
		log:     log,
	}
}

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Intent struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"intent"`
	Entities []struct {
		Entity string `json:"entity"`
		Value  any    `json:"value"`
	} `json:"entities"`
}

// Parse implements Parser. Every failure wraps ErrUnavailable.
func (c *Client) Parse(ctx context.Context, text string) (Result, error) {
	if !c.limiter.Allow() {
		return Result{}, unavailable(resilience.ErrRateLimited)
	}
	res := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[Result] {
		return fn.FromPair(c.parse(ctx, text))
	})
	out, err := res.Unwrap()
	if err != nil {
		c.log.Warn("nlu parse failed", "err", err)
		return Result{}, unavailable(err)
	}
	return out, nil
}

func (c *Client) parse(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("nlu: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("nlu: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("nlu: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("nlu: status %d", resp.StatusCode)
	}

	var pr parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Result{}, fmt.Errorf("nlu: decode response: %w", err)
	}

	out := Result{Intent: pr.Intent.Name, Confidence: pr.Intent.Confidence}
	for _, e := range pr.Entities {
		out.Entities = append(out.Entities, Entity{Name: e.Entity, Value: entityValue(e.Value)})
	}
	return out, nil
}

func entityValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
