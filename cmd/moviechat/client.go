package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/WessleyAI/marquee/engine/dispatch"
)

// client talks to the API server's chat endpoint.
type client struct {
	base string
	hc   *http.Client
}

func newClient(base string) *client {
	return &client{base: strings.TrimRight(base, "/"), hc: &http.Client{Timeout: 30 * time.Second}}
}

// ask sends one message. Non-200 replies become errors carrying the
// server's error text.
func (c *client) ask(ctx context.Context, text string) (dispatch.Response, error) {
	body, err := json.Marshal(map[string]string{"user_input": text})
	if err != nil {
		return dispatch.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/recommend", bytes.NewReader(body))
	if err != nil {
		return dispatch.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return dispatch.Response{}, fmt.Errorf("moviechat: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return dispatch.Response{}, fmt.Errorf("moviechat: read reply: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return dispatch.Response{}, fmt.Errorf("%s (%d)", e.Error, resp.StatusCode)
		}
		return dispatch.Response{}, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var out dispatch.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return dispatch.Response{}, fmt.Errorf("moviechat: decode reply: %w", err)
	}
	return out, nil
}

// markdown renders a reply for the terminal. Details are rebuilt from the
// structured fields since the server's text may carry HTML.
func markdown(r dispatch.Response) string {
	if r.Details == nil {
		return r.Text
	}
	return fmt.Sprintf("### %s%s", r.Details.Title, dispatch.FormatDetails(*r.Details, dispatch.FormatMarkdown))
}
