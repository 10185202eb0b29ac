package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/querywire/querywire-go/transport"
)

// MockTransport implements transport.Transport for testing
type MockTransport struct {
	// Behavior configuration
	roundTripErr error
	status       int
	chunks       [][]byte
	healthy      bool
	delay        time.Duration

	// Call tracking
	roundTripCalls atomic.Int32
	closeCalls     atomic.Int32

	// Metrics
	metrics mockMetrics
	mu      sync.RWMutex
	closed  bool
	history []transport.Request
}

type mockMetrics struct {
	totalRequests      atomic.Int64
	totalErrors        atomic.Int64
	bytesSent          atomic.Int64
	bytesReceived      atomic.Int64
	healthChecksPassed atomic.Int64
	healthChecksFailed atomic.Int64
	latencySum         atomic.Int64
}

// NewMockTransport creates a new mock transport. By default it answers
// every round trip with status 200 and an empty body.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		healthy: true,
		status:  200,
		history: make([]transport.Request, 0),
	}
}

// WithError configures the transport to fail every round trip
func (m *MockTransport) WithError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundTripErr = err
	return m
}

// WithStatus configures the HTTP status code to report
func (m *MockTransport) WithStatus(status int) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	return m
}

// WithResponse configures the response body, delivered as a single chunk
func (m *MockTransport) WithResponse(body []byte) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = [][]byte{body}
	return m
}

// WithResponseChunks configures the response body to be delivered to
// the sink one chunk at a time, in order
func (m *MockTransport) WithResponseChunks(chunks [][]byte) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = chunks
	return m
}

// WithHealthy configures the health status
func (m *MockTransport) WithHealthy(healthy bool) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// WithDelay adds a delay to every round trip
func (m *MockTransport) WithDelay(delay time.Duration) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
	return m
}

// RoundTrip implements transport.Transport
func (m *MockTransport) RoundTrip(ctx context.Context, req transport.Request, sink transport.Sink) (int, error) {
	m.roundTripCalls.Add(1)
	m.metrics.totalRequests.Add(1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, fmt.Errorf("transport is closed")
	}

	delay := m.delay
	rtErr := m.roundTripErr
	status := m.status
	chunks := m.chunks
	m.history = append(m.history, req)
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			m.metrics.totalErrors.Add(1)
			return 0, ctx.Err()
		case <-time.After(delay):
		}
	}

	if rtErr != nil {
		m.metrics.totalErrors.Add(1)
		return 0, rtErr
	}

	m.metrics.bytesSent.Add(int64(len(req.Body)))

	for _, chunk := range chunks {
		m.metrics.bytesReceived.Add(int64(len(chunk)))
		if err := sink(chunk); err != nil {
			m.metrics.totalErrors.Add(1)
			return status, err
		}
	}

	return status, nil
}

// Close implements transport.Transport
func (m *MockTransport) Close() error {
	m.closeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsHealthy implements transport.Transport
func (m *MockTransport) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// RecordHealthCheck implements transport.HealthRecorder
func (m *MockTransport) RecordHealthCheck(passed bool) {
	if passed {
		m.metrics.healthChecksPassed.Add(1)
	} else {
		m.metrics.healthChecksFailed.Add(1)
	}
}

// GetMetrics implements transport.Transport
func (m *MockTransport) GetMetrics() transport.TransportMetrics {
	totalReqs := m.metrics.totalRequests.Load()
	avgLatency := time.Duration(0)
	if totalReqs > 0 {
		avgLatency = time.Duration(m.metrics.latencySum.Load() / totalReqs)
	}

	return transport.TransportMetrics{
		TotalRequests:      totalReqs,
		TotalErrors:        m.metrics.totalErrors.Load(),
		AverageLatency:     avgLatency,
		BytesSent:          m.metrics.bytesSent.Load(),
		BytesReceived:      m.metrics.bytesReceived.Load(),
		HealthChecksPassed: m.metrics.healthChecksPassed.Load(),
		HealthChecksFailed: m.metrics.healthChecksFailed.Load(),
	}
}

// GetRoundTripCallCount returns the number of times RoundTrip was called
func (m *MockTransport) GetRoundTripCallCount() int {
	return int(m.roundTripCalls.Load())
}

// GetCloseCallCount returns the number of times Close was called
func (m *MockTransport) GetCloseCallCount() int {
	return int(m.closeCalls.Load())
}

// GetRequestHistory returns a copy of every request seen by this transport
func (m *MockTransport) GetRequestHistory() []transport.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]transport.Request, len(m.history))
	copy(history, m.history)
	return history
}

// LastRequest returns the most recent request, or nil if none were made
func (m *MockTransport) LastRequest() *transport.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return nil
	}
	req := m.history[len(m.history)-1]
	return &req
}

// IsClosed returns whether Close has been called
func (m *MockTransport) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Reset clears all configuration and recorded state
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roundTripErr = nil
	m.status = 200
	m.chunks = nil
	m.healthy = true
	m.delay = 0
	m.closed = false
	m.history = make([]transport.Request, 0)

	m.roundTripCalls.Store(0)
	m.closeCalls.Store(0)
	m.metrics.totalRequests.Store(0)
	m.metrics.totalErrors.Store(0)
	m.metrics.bytesSent.Store(0)
	m.metrics.bytesReceived.Store(0)
	m.metrics.healthChecksPassed.Store(0)
	m.metrics.healthChecksFailed.Store(0)
	m.metrics.latencySum.Store(0)
}
