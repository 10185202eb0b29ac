// Package transport defines the transport layer abstraction for the
// query forwarder
package transport

import (
	"context"
	"time"
)

// Request describes a single HTTP exchange with the translator.
type Request struct {
	// Method is the HTTP method, normally POST
	Method string

	// URL is the fully joined endpoint URL
	URL string

	// Headers are sent verbatim with the request
	Headers map[string]string

	// Body is the serialized request payload
	Body []byte
}

// Sink receives response body chunks in arrival order. Returning an
// error aborts the read and fails the round trip.
type Sink func(chunk []byte) error

// Transport defines the interface for exchanging requests with the server
type Transport interface {
	// RoundTrip sends the request and streams the response body into
	// sink. The HTTP status code is returned for observability; callers
	// decide what, if anything, it means. A non-nil error indicates the
	// exchange itself failed and the sink may have seen partial data.
	RoundTrip(ctx context.Context, req Request, sink Sink) (status int, err error)

	// Close releases resources held by this transport handle
	Close() error

	// IsHealthy returns whether the transport is healthy
	IsHealthy() bool

	// GetMetrics returns transport performance metrics
	GetMetrics() TransportMetrics
}

// TransportMetrics contains performance and health metrics
type TransportMetrics struct {
	// TotalRequests is the total number of requests sent
	TotalRequests int64

	// TotalErrors is the total number of errors encountered
	TotalErrors int64

	// AverageLatency is the average round-trip latency
	AverageLatency time.Duration

	// LastError is the most recent error encountered
	LastError error

	// LastErrorTime is when the last error occurred
	LastErrorTime time.Time

	// BytesSent is the total bytes sent
	BytesSent int64

	// BytesReceived is the total bytes received
	BytesReceived int64

	// HealthChecksPassed is the number of successful health checks
	HealthChecksPassed int64

	// HealthChecksFailed is the number of failed health checks
	HealthChecksFailed int64
}

// HealthRecorder is implemented by transports that fold health probe
// outcomes into their metrics.
type HealthRecorder interface {
	RecordHealthCheck(passed bool)
}

// Factory creates new transport instances
type Factory func(ctx context.Context) (Transport, error)

