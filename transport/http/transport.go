package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/querywire/querywire-go/protocol"
	"github.com/querywire/querywire-go/transport"
)

// HTTPTransportOptions configures the HTTP transport
type HTTPTransportOptions struct {
	// Timeout for a full round trip. Zero means no client-imposed
	// timeout; the transport's own defaults apply.
	Timeout time.Duration

	// TLS configuration for https base URLs
	TLSConfig *tls.Config

	// Connection reuse configuration
	MaxIdleConns      int
	IdleConnTimeout   time.Duration
	DisableKeepAlives bool

	// UserAgent is sent when the request carries no User-Agent header
	UserAgent string

	// ReadBufferSize is the chunk size used when streaming response bodies
	ReadBufferSize int
}

// The process shares a single base http.Transport so the connection
// pool, DNS state and TLS session cache are initialized exactly once,
// no matter how many client handles come and go.
var (
	sharedOnce sync.Once
	sharedBase *http.Transport
)

func sharedTransport() *http.Transport {
	sharedOnce.Do(func() {
		sharedBase = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	})
	return sharedBase
}

// HTTPTransport implements transport.Transport over net/http
type HTTPTransport struct {
	opts    HTTPTransportOptions
	client  *http.Client
	metrics transportMetrics
	closed  atomic.Bool
}

// transportMetrics tracks transport performance
type transportMetrics struct {
	totalRequests      atomic.Int64
	totalErrors        atomic.Int64
	bytesSent          atomic.Int64
	bytesReceived      atomic.Int64
	healthChecksPassed atomic.Int64
	healthChecksFailed atomic.Int64
	lastError          error
	lastErrorTime      time.Time
	latencySum         atomic.Int64 // nanoseconds, successful round trips only
	latencyCount       atomic.Int64
	mu                 sync.RWMutex
}

// NewHTTPTransport creates a new HTTP transport. Handles with no custom
// connection settings share the process-wide base transport; handles
// that need their own TLS or idle-connection tuning get a derived copy.
func NewHTTPTransport(opts HTTPTransportOptions) (transport.Transport, error) {
	if opts.ReadBufferSize == 0 {
		opts.ReadBufferSize = 4096
	}

	base := sharedTransport()
	if opts.TLSConfig != nil || opts.MaxIdleConns > 0 || opts.IdleConnTimeout > 0 || opts.DisableKeepAlives {
		derived := base.Clone()
		if opts.TLSConfig != nil {
			derived.TLSClientConfig = opts.TLSConfig
		}
		if opts.MaxIdleConns > 0 {
			derived.MaxIdleConns = opts.MaxIdleConns
		}
		if opts.IdleConnTimeout > 0 {
			derived.IdleConnTimeout = opts.IdleConnTimeout
		}
		derived.DisableKeepAlives = opts.DisableKeepAlives
		base = derived
	}

	return &HTTPTransport{
		opts: opts,
		client: &http.Client{
			Transport: base,
			Timeout:   opts.Timeout,
		},
	}, nil
}

// RoundTrip implements transport.Transport. The HTTP status code is
// returned as observed; it is never turned into an error here.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req transport.Request, sink transport.Sink) (int, error) {
	if t.closed.Load() {
		return 0, protocol.ClientClosedError()
	}

	start := time.Now()
	t.metrics.totalRequests.Add(1)

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		werr := protocol.NewTransportError(protocol.ErrorCodeBadRequest,
			fmt.Sprintf("invalid request: %v", err),
			map[string]interface{}{"url": req.URL})
		t.recordError(werr)
		return 0, werr
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if t.opts.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.opts.UserAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		werr := classifyError(req.URL, err)
		t.recordError(werr)
		return 0, werr
	}
	defer resp.Body.Close()

	t.metrics.bytesSent.Add(int64(len(req.Body)))

	// Stream the body through the sink in arrival-sized chunks
	buf := make([]byte, t.opts.ReadBufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			t.metrics.bytesReceived.Add(int64(n))
			if serr := sink(buf[:n]); serr != nil {
				t.recordError(serr)
				return resp.StatusCode, serr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			werr := classifyError(req.URL, rerr)
			t.recordError(werr)
			return resp.StatusCode, werr
		}
	}

	t.recordLatency(time.Since(start))
	return resp.StatusCode, nil
}

// Close implements transport.Transport. It marks this handle closed and
// releases its idle connections. The process-shared base transport
// stays up for other handles.
func (t *HTTPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if tr, ok := t.client.Transport.(*http.Transport); ok && tr != sharedBase {
		tr.CloseIdleConnections()
	}
	return nil
}

// IsHealthy implements transport.Transport
func (t *HTTPTransport) IsHealthy() bool {
	return !t.closed.Load()
}

// RecordHealthCheck implements transport.HealthRecorder
func (t *HTTPTransport) RecordHealthCheck(passed bool) {
	if passed {
		t.metrics.healthChecksPassed.Add(1)
	} else {
		t.metrics.healthChecksFailed.Add(1)
	}
}

// GetMetrics implements transport.Transport
func (t *HTTPTransport) GetMetrics() transport.TransportMetrics {
	t.metrics.mu.RLock()
	lastErr := t.metrics.lastError
	lastErrTime := t.metrics.lastErrorTime
	t.metrics.mu.RUnlock()

	avgLatency := time.Duration(0)
	if n := t.metrics.latencyCount.Load(); n > 0 {
		avgLatency = time.Duration(t.metrics.latencySum.Load() / n)
	}

	return transport.TransportMetrics{
		TotalRequests:      t.metrics.totalRequests.Load(),
		TotalErrors:        t.metrics.totalErrors.Load(),
		AverageLatency:     avgLatency,
		LastError:          lastErr,
		LastErrorTime:      lastErrTime,
		BytesSent:          t.metrics.bytesSent.Load(),
		BytesReceived:      t.metrics.bytesReceived.Load(),
		HealthChecksPassed: t.metrics.healthChecksPassed.Load(),
		HealthChecksFailed: t.metrics.healthChecksFailed.Load(),
	}
}

func (t *HTTPTransport) recordError(err error) {
	t.metrics.totalErrors.Add(1)
	t.metrics.mu.Lock()
	t.metrics.lastError = err
	t.metrics.lastErrorTime = time.Now()
	t.metrics.mu.Unlock()
}

func (t *HTTPTransport) recordLatency(d time.Duration) {
	t.metrics.latencySum.Add(int64(d))
	t.metrics.latencyCount.Add(1)
}

// classifyError maps a net/http failure onto the wire error taxonomy
func classifyError(rawURL string, err error) *protocol.TransportError {
	details := map[string]interface{}{
		"url":   rawURL,
		"error": err.Error(),
	}

	if errors.Is(err, context.Canceled) {
		return protocol.RequestCancelledError("request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.RequestTimeoutError("request deadline exceeded", details)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return protocol.DNSFailureError(dnsErr.Name)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return protocol.RequestTimeoutError("request timed out", details)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return protocol.ConnectionRefusedError("connection refused", details)
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) || strings.Contains(err.Error(), "tls:") ||
		strings.Contains(err.Error(), "x509:") {
		return protocol.TLSHandshakeError(tlsFailureMessage(err.Error()), details)
	}

	return protocol.NewTransportError(protocol.ErrorCodeInternal, "request failed", details)
}

// tlsFailureMessage maps common certificate problems to messages that
// tell the operator what to fix.
func tlsFailureMessage(errStr string) string {
	switch {
	case strings.Contains(errStr, "certificate has expired"):
		return "server certificate has expired"
	case strings.Contains(errStr, "certificate is not trusted"):
		return "server certificate is not trusted (set a custom CA, or TLSInsecureSkipVerify for testing)"
	case strings.Contains(errStr, "doesn't match"):
		return "server certificate hostname doesn't match the base URL"
	case strings.Contains(errStr, "unknown authority"):
		return "server certificate signed by unknown authority (set a custom CA)"
	default:
		return "TLS handshake failed"
	}
}
