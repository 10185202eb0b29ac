package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/querywire/querywire-go/transport"
	"github.com/querywire/querywire-go/transport/mock"
)

func TestQueryHonorsContextTimeout(t *testing.T) {
	mt := mock.NewMockTransport().
		WithResponse([]byte(`{"result": []}`)).
		WithDelay(500 * time.Millisecond)
	c := newConnectedClient(t, mt, "http://localhost:9000")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Query(ctx, "SELECT 1")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded in chain, got: %v", err)
	}

	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if trErr.Code != "E_TRANSPORT_FAILURE" {
		t.Errorf("expected code=E_TRANSPORT_FAILURE, got %s", trErr.Code)
	}

	if elapsed > 400*time.Millisecond {
		t.Errorf("query did not return promptly after timeout: %v", elapsed)
	}
}

func TestQueryPreCancelledContext(t *testing.T) {
	mt := mock.NewMockTransport().
		WithResponse([]byte(`{"result": []}`)).
		WithDelay(10 * time.Millisecond)
	c := newConnectedClient(t, mt, "http://localhost:9000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Query(ctx, "SELECT 1")
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected Canceled in chain, got: %v", err)
	}
}

func TestConnectPassesContextToTransportFactory(t *testing.T) {
	factory := func(ctx context.Context) (transport.Transport, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return mock.NewMockTransport(), nil
	}
	c := NewClient(&ClientOptions{
		LogLevel:         "ERROR",
		TransportFactory: factory,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Connect(ctx, "http://localhost:9000")
	if err == nil {
		t.Fatal("expected factory error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected Canceled in chain, got: %v", err)
	}
	if c.GetState() != DISCONNECTED {
		t.Errorf("expected DISCONNECTED after failed connect, got %s", c.GetState())
	}
}

func TestTraceIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "trace-42")

	if got := TraceIDFromContext(ctx); got != "trace-42" {
		t.Errorf("TraceIDFromContext = %q, want trace-42", got)
	}

	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty trace ID on bare context, got %q", got)
	}
}

// traceCapturingTransport records the trace ID carried by each request
// context.
type traceCapturingTransport struct {
	traceIDs []string
}

func (tc *traceCapturingTransport) RoundTrip(ctx context.Context, req transport.Request, sink transport.Sink) (int, error) {
	tc.traceIDs = append(tc.traceIDs, TraceIDFromContext(ctx))
	return 200, sink([]byte(`{"result": []}`))
}

func (tc *traceCapturingTransport) Close() error {
	return nil
}

func (tc *traceCapturingTransport) IsHealthy() bool {
	return true
}

func (tc *traceCapturingTransport) GetMetrics() transport.TransportMetrics {
	return transport.TransportMetrics{}
}

func TestEachQueryCarriesFreshTraceID(t *testing.T) {
	tc := &traceCapturingTransport{}
	c := NewClient(&ClientOptions{
		LogLevel: "ERROR",
		TransportFactory: func(ctx context.Context) (transport.Transport, error) {
			return tc, nil
		},
	})
	if err := c.Connect(context.Background(), "http://localhost:9000"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Query(context.Background(), "SELECT 1"); err != nil {
			t.Fatalf("Query %d failed: %v", i, err)
		}
	}

	if len(tc.traceIDs) != 3 {
		t.Fatalf("expected 3 recorded trace IDs, got %d", len(tc.traceIDs))
	}
	seen := make(map[string]bool)
	for i, id := range tc.traceIDs {
		if id == "" {
			t.Errorf("request %d carried no trace ID", i)
		}
		if seen[id] {
			t.Errorf("trace ID %q reused across requests", id)
		}
		seen[id] = true
	}
}
