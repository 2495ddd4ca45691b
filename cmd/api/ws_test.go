package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func dialWS(t *testing.T, ts *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
}

func TestWebSocketChat(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	conn, _, err := dialWS(t, ts, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	turns := []struct {
		input     string
		wantText  string
		wantError bool
	}{
		{"hello", "Hello! How can I assist you with movies today?", false},
		{"", "", true},
		{"something like heat", "If you liked Heat, you might also enjoy: Ronin, The Thing, Alien", false},
		{"bye", "Goodbye! Have a great day!", false},
	}
	for _, tt := range turns {
		if err := conn.WriteJSON(askRequest{UserInput: tt.input}); err != nil {
			t.Fatal(err)
		}
		var reply wsReply
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatal(err)
		}
		if tt.wantError {
			if reply.Error == "" {
				t.Fatalf("%q: expected error reply, got %+v", tt.input, reply)
			}
			continue
		}
		if reply.Text != tt.wantText {
			t.Fatalf("%q: reply = %q, want %q", tt.input, reply.Text, tt.wantText)
		}
	}

	if got := testutil.ToFloat64(s.reg.WSConnections); got != 1 {
		t.Fatalf("ws connections = %v, want 1", got)
	}
}

func TestWebSocketOrigin(t *testing.T) {
	s := newTestServer(t, nil)
	s.origins = []string{"https://app.example"}
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	_, resp, err := dialWS(t, ts, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %v", resp)
	}

	conn, _, err := dialWS(t, ts, http.Header{"Origin": {"https://app.example"}})
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	conn.Close()
}
