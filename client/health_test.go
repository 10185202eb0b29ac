package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/querywire/querywire-go/protocol"
	"github.com/querywire/querywire-go/transport"
	"github.com/querywire/querywire-go/transport/mock"
)

// flakyTransport fails its first round trip and succeeds afterwards.
type flakyTransport struct {
	calls atomic.Int32
}

func (f *flakyTransport) RoundTrip(ctx context.Context, req transport.Request, sink transport.Sink) (int, error) {
	if f.calls.Add(1) == 1 {
		return 0, protocol.RequestTimeoutError("request timed out", nil)
	}
	if err := sink([]byte(`{"result": [[1]]}`)); err != nil {
		return 0, err
	}
	return 200, nil
}

func (f *flakyTransport) Close() error    { return nil }
func (f *flakyTransport) IsHealthy() bool { return true }
func (f *flakyTransport) GetMetrics() transport.TransportMetrics {
	return transport.TransportMetrics{}
}

// reconnectingClient builds a connected client whose first transport fails
// every round trip with failErr and whose replacement transports succeed.
// The returned counter tracks factory invocations, so a reconnect shows up
// as a second call.
func reconnectingClient(t *testing.T, failErr error) (*Client, *atomic.Int32) {
	t.Helper()

	var factoryCalls atomic.Int32
	opts := DefaultOptions()
	opts.LogLevel = "ERROR"
	opts.TransportFactory = func(ctx context.Context) (transport.Transport, error) {
		if factoryCalls.Add(1) == 1 {
			return mock.NewMockTransport().WithError(failErr), nil
		}
		return mock.NewMockTransport().WithResponse([]byte(`{"result": [[1]]}`)), nil
	}

	c := NewClient(&opts)
	if err := c.Connect(context.Background(), "http://localhost:9000"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return c, &factoryCalls
}

// waitForReconnect polls until the factory has been re-invoked and the
// handle settled back into CONNECTED, or the deadline passes.
func waitForReconnect(c *Client, factoryCalls *atomic.Int32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if factoryCalls.Load() >= 2 && c.GetState() == CONNECTED {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestHealthMonitorReconnectsAfterThreshold(t *testing.T) {
	c, factoryCalls := reconnectingClient(t, protocol.RequestTimeoutError("request timed out", nil))
	defer c.Close()

	monitor := NewHealthMonitor(c, 10*time.Millisecond, 2)
	monitor.Start()

	ok := waitForReconnect(c, factoryCalls, 2*time.Second)
	monitor.Stop()

	if !ok {
		t.Fatalf("no reconnect: factory calls = %d, state = %s",
			factoryCalls.Load(), c.GetState())
	}

	// The replacement transport answers queries again.
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping after reconnect failed: %v", err)
	}
}

func TestHealthMonitorDropBypassesThreshold(t *testing.T) {
	c, factoryCalls := reconnectingClient(t, protocol.ConnectionRefusedError("connection refused", nil))
	defer c.Close()

	// A threshold this high cannot be reached within the wait below, so a
	// reconnect proves the drop fast path fired.
	monitor := NewHealthMonitor(c, 10*time.Millisecond, 1000)
	monitor.Start()

	ok := waitForReconnect(c, factoryCalls, 2*time.Second)
	monitor.Stop()

	if !ok {
		t.Fatalf("connection drop did not trigger an immediate reconnect: factory calls = %d, state = %s",
			factoryCalls.Load(), c.GetState())
	}
}

func TestHealthMonitorRecoveryResetsFailures(t *testing.T) {
	var factoryCalls atomic.Int32
	ft := &flakyTransport{}

	opts := DefaultOptions()
	opts.LogLevel = "ERROR"
	opts.TransportFactory = func(ctx context.Context) (transport.Transport, error) {
		factoryCalls.Add(1)
		return ft, nil
	}

	c := NewClient(&opts)
	if err := c.Connect(context.Background(), "http://localhost:9000"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	monitor := NewHealthMonitor(c, 10*time.Millisecond, 3)
	monitor.Start()

	// One failed ping, then successes. Wait for a couple of clean checks.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && ft.calls.Load() < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	monitor.Stop()

	if got := ft.calls.Load(); got < 3 {
		t.Fatalf("monitor performed %d checks, want at least 3", got)
	}
	if got := monitor.failureCount.Load(); got != 0 {
		t.Errorf("failureCount after recovery = %d, want 0", got)
	}
	if got := factoryCalls.Load(); got != 1 {
		t.Errorf("factory called %d times, want 1 (no reconnect under threshold)", got)
	}
	if state := c.GetState(); state != CONNECTED {
		t.Errorf("state = %s, want CONNECTED", state)
	}
}

func TestHealthMonitorSkipsWhileDisconnected(t *testing.T) {
	mt := mock.NewMockTransport().WithResponse([]byte(`{"result": [[1]]}`))
	c := newTestClient(mt)

	monitor := NewHealthMonitor(c, 5*time.Millisecond, 1)
	monitor.Start()
	time.Sleep(50 * time.Millisecond)
	monitor.Stop()

	if got := mt.GetRoundTripCallCount(); got != 0 {
		t.Errorf("monitor pinged a disconnected handle %d times", got)
	}
}

func TestDetectConnectionDrop(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"econnreset", syscall.ECONNRESET, true},
		{"wrapped epipe", fmt.Errorf("write failed: %w", syscall.EPIPE), true},
		{"net op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("use of closed network connection")}, true},
		{"reset by peer text", errors.New("read tcp 127.0.0.1:9000: connection reset by peer"), true},
		{"refused text", errors.New("dial tcp 127.0.0.1:9000: connection refused"), true},
		{"server error text", errors.New("syntax error at or near SELECT"), false},
		{"timeout", protocol.RequestTimeoutError("request timed out", nil), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectConnectionDrop(tc.err); got != tc.want {
				t.Errorf("detectConnectionDrop(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
