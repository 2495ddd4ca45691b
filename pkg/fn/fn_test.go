package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("expected ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("got %d, %v", v, err)
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("expected err")
	}
	if e.UnwrapOr(7) != 7 {
		t.Fatal("UnwrapOr should return fallback")
	}
}

func TestErrfAndFromPair(t *testing.T) {
	_, err := Errf[string]("bad %d", 3).Unwrap()
	if err == nil || err.Error() != "bad 3" {
		t.Fatalf("Errf error = %v", err)
	}
	if !FromPair(1, nil).IsOk() {
		t.Fatal("FromPair(nil err) should be ok")
	}
	if FromPair(1, errors.New("x")).IsOk() {
		t.Fatal("FromPair(err) should fail")
	}
}

func TestMapFilter(t *testing.T) {
	got := Map([]int{1, 2, 3}, strconv.Itoa)
	if len(got) != 3 || got[2] != "3" {
		t.Fatalf("Map = %v", got)
	}
	even := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if len(even) != 2 || even[0] != 2 || even[1] != 4 {
		t.Fatalf("Filter = %v", even)
	}
	if Filter([]int{1}, func(int) bool { return false }) != nil {
		t.Fatal("Filter with no matches should be nil")
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 || chunks[2][0] != 5 {
		t.Fatalf("Chunk = %v", chunks)
	}
	if Chunk([]int{1}, 0) != nil {
		t.Fatal("Chunk(n=0) should be nil")
	}
	if got := Chunk([]int{}, 3); len(got) != 0 {
		t.Fatalf("Chunk(empty) = %v", got)
	}
}

func TestSpans(t *testing.T) {
	tests := []struct {
		n, parts int
		want     []Span
	}{
		{0, 4, nil},
		{5, 2, []Span{{0, 3}, {3, 5}}},
		{3, 8, []Span{{0, 1}, {1, 2}, {2, 3}}},
		{4, 0, []Span{{0, 1}, {1, 2}, {2, 3}, {3, 4}}},
	}
	for _, tt := range tests {
		got := Spans(tt.n, tt.parts)
		if len(got) != len(tt.want) {
			t.Fatalf("Spans(%d,%d) = %v, want %v", tt.n, tt.parts, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("Spans(%d,%d) = %v, want %v", tt.n, tt.parts, got, tt.want)
			}
		}
	}
}

func TestParMap(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	for _, workers := range []int{-1, 0, 1, 3, 100} {
		got := ParMap(items, workers, func(n int) int { return n * n })
		for i, n := range items {
			if got[i] != n*n {
				t.Fatalf("workers=%d: ParMap[%d] = %d", workers, i, got[i])
			}
		}
	}
	if got := ParMap([]int{}, 4, func(n int) int { return n }); len(got) != 0 {
		t.Fatalf("ParMap(empty) = %v", got)
	}
}

func TestThen(t *testing.T) {
	double := Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n * 2) })
	str := Stage[int, string](func(_ context.Context, n int) Result[string] { return Ok(strconv.Itoa(n)) })
	v, err := Then(double, str)(context.Background(), 21).Unwrap()
	if err != nil || v != "42" {
		t.Fatalf("Then = %q, %v", v, err)
	}

	called := false
	fail := Stage[int, int](func(context.Context, int) Result[int] { return Errf[int]("boom") })
	never := Stage[int, string](func(context.Context, int) Result[string] { called = true; return Ok("") })
	if Then(fail, never)(context.Background(), 1).IsOk() {
		t.Fatal("expected error")
	}
	if called {
		t.Fatal("second stage must not run after a failure")
	}
}

func TestTraced(t *testing.T) {
	ok := Traced("ok", Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n + 1) }))
	if v, _ := ok(context.Background(), 1).Unwrap(); v != 2 {
		t.Fatalf("Traced ok = %d", v)
	}
	bad := Traced("bad", Stage[int, int](func(context.Context, int) Result[int] { return Errf[int]("x") }))
	if bad(context.Background(), 1).IsOk() {
		t.Fatal("Traced should pass the error through")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Errf[string]("transient")
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" {
		t.Fatalf("Retry = %q, %v", v, err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	opts := RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		return Err[int](permanent)
	})
	if r.IsOk() || attempts != 1 {
		t.Fatalf("attempts = %d, ok = %v", attempts, r.IsOk())
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 3, InitialWait: time.Second}, func(context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
