package natsutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) (*natsserver.Server, *nats.Conn) {
	t.Helper()
	opts := &natsserver.Options{Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return srv, nc
}

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestNatsHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}

	carrier.Set("traceparent", "00-abc-def-01")
	carrier.Set("traceparent", "00-abc-def-02")
	if got := carrier.Get("traceparent"); got != "00-abc-def-02" {
		t.Fatalf("expected overwritten traceparent, got %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestPublishSubscribe(t *testing.T) {
	_, nc := startTestNATS(t)

	got := make(chan payload, 1)
	sub, err := Subscribe(nc, "test.pub", func(_ context.Context, p payload) { got <- p })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := nc.Publish("test.pub", []byte("{invalid")); err != nil {
		t.Fatal(err)
	}
	if err := Publish(context.Background(), nc, "test.pub", payload{Name: "heat", Value: 1}); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-got:
		if p.Name != "heat" || p.Value != 1 {
			t.Fatalf("unexpected: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishMarshalError(t *testing.T) {
	_, nc := startTestNATS(t)
	if err := Publish(context.Background(), nc, "test.err", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestRequestRespond(t *testing.T) {
	_, nc := startTestNATS(t)

	sub, err := Respond(nc, "test.req", "workers", func(_ context.Context, p payload) (payload, error) {
		if p.Value < 0 {
			return payload{}, errors.New("negative value")
		}
		return payload{Name: p.Name + "-resp", Value: p.Value * 2}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	resp, err := Request[payload, payload](context.Background(), nc, "test.req", payload{Name: "test", Value: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Name != "test-resp" || resp.Value != 10 {
		t.Fatalf("unexpected resp: %+v", resp)
	}

	_, err = Request[payload, payload](context.Background(), nc, "test.req", payload{Value: -1})
	var re *RemoteError
	if !errors.As(err, &re) || re.Message != "negative value" {
		t.Fatalf("err = %v, want RemoteError(negative value)", err)
	}
}

func TestRespondMalformedRequest(t *testing.T) {
	_, nc := startTestNATS(t)
	sub, err := Respond(nc, "test.bad", "", func(_ context.Context, p payload) (payload, error) {
		return p, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	reply, err := nc.Request("test.bad", []byte("{invalid"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Header.Get(ErrorHeader) == "" {
		t.Fatal("expected error header on malformed request")
	}
}

func TestRequestTimeout(t *testing.T) {
	_, nc := startTestNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := Request[payload, payload](ctx, nc, "test.noreply", payload{Name: "x"}); err == nil {
		t.Fatal("expected error without a responder")
	}
}

func TestRequestUnmarshalError(t *testing.T) {
	_, nc := startTestNATS(t)
	sub, err := nc.Subscribe("test.badjson", func(msg *nats.Msg) {
		msg.Respond([]byte("{invalid"))
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if _, err := Request[payload, payload](context.Background(), nc, "test.badjson", payload{}); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestPayloadIgnoresUnknownFields(t *testing.T) {
	var p payload
	if err := json.Unmarshal([]byte(`{"name":"a","value":1,"extra":true}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "a" || p.Value != 1 {
		t.Fatalf("unexpected: %+v", p)
	}
}
