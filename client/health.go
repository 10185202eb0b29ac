package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// HealthMonitor periodically pings the translator and triggers an
// automatic reconnect after consecutive failures. The monitor issues real
// requests through the handle, so callers that serialize access to the
// handle themselves should not run a monitor alongside it.
type HealthMonitor struct {
	client           *Client
	interval         time.Duration
	failureThreshold int
	failureCount     atomic.Int32
	stopCh           chan struct{}
	wg               sync.WaitGroup
	logger           Logger
}

// NewHealthMonitor creates a health monitor for the client. The monitor
// does nothing until Start is called.
func NewHealthMonitor(client *Client, interval time.Duration, threshold int) *HealthMonitor {
	if threshold < 1 {
		threshold = 1
	}
	return &HealthMonitor{
		client:           client,
		interval:         interval,
		failureThreshold: threshold,
		stopCh:           make(chan struct{}),
		logger:           client.logger.WithFields(String("component", "health_monitor")),
	}
}

// Start begins health check monitoring in a background goroutine.
func (h *HealthMonitor) Start() {
	h.wg.Add(1)
	go h.monitorLoop()
	h.logger.Info("health monitor started", Duration("interval", h.interval))
}

// Stop stops the health monitor and waits for the loop to exit.
func (h *HealthMonitor) Stop() {
	close(h.stopCh)
	h.wg.Wait()
	h.logger.Info("health monitor stopped")
}

func (h *HealthMonitor) monitorLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return

		case <-ticker.C:
			if h.client.GetState() != CONNECTED {
				continue
			}

			if err := h.performHealthCheck(); err != nil {
				h.logger.Warn("health check failed",
					Error("error", err),
					Int("failureCount", int(h.failureCount.Add(1))))

				// An unambiguous drop (reset, EOF, refused) skips the
				// threshold; only timeouts and transient errors accumulate.
				if detectConnectionDrop(err) || int(h.failureCount.Load()) >= h.failureThreshold {
					h.logger.Error("health check failure threshold exceeded, triggering reconnection")
					go h.client.attemptReconnect(context.Background())
					h.failureCount.Store(0)
				}
			} else {
				if prev := h.failureCount.Swap(0); prev > 0 {
					h.logger.Info("health check recovered", Int("previousFailures", int(prev)))
				}
			}
		}
	}
}

// performHealthCheck sends a trivial query. Any complete HTTP exchange
// counts as healthy; only transport failures count against the threshold.
func (h *HealthMonitor) performHealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return h.client.Ping(ctx)
}

// detectConnectionDrop reports whether an error indicates the server went
// away mid-connection rather than rejecting the request.
func detectConnectionDrop(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	errStr := err.Error()
	dropPatterns := []string{
		"connection reset",
		"broken pipe",
		"connection refused",
		"connection closed",
		"EOF",
	}

	for _, pattern := range dropPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// attemptReconnect rebuilds the handle's transport with exponential
// backoff, doubling the delay between attempts up to a one minute cap.
func (c *Client) attemptReconnect(ctx context.Context) error {
	c.logger.Warn("attempting automatic reconnection")

	if err := c.stateMgr.TransitionTo(CONNECTING, nil, map[string]interface{}{
		"reason": "reconnect",
	}); err != nil {
		return err
	}

	factory := c.transportFactory
	if factory == nil {
		factory = c.defaultTransportFactory()
	}

	backoff := 100 * time.Millisecond
	maxBackoff := 60 * time.Second

	for attempt := 1; attempt <= c.opts.MaxReconnectAttempts; attempt++ {
		c.logger.Info("reconnection attempt",
			Int("attempt", attempt),
			Int("maxAttempts", c.opts.MaxReconnectAttempts),
			Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			c.stateMgr.TransitionTo(DISCONNECTED, ctx.Err(), map[string]interface{}{
				"reason": "context_cancelled",
			})
			return ctx.Err()
		default:
		}

		tr, err := factory(ctx)
		if err == nil {
			if c.transport != nil {
				c.transport.Close()
			}
			c.transport = tr
			c.logger.Info("reconnection successful", Int("attempt", attempt))
			c.stateMgr.TransitionTo(CONNECTED, nil, map[string]interface{}{
				"reason":  "reconnect",
				"attempt": attempt,
			})
			return nil
		}

		if attempt < c.opts.MaxReconnectAttempts {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	c.logger.Error("reconnection failed after all attempts",
		Int("maxAttempts", c.opts.MaxReconnectAttempts))
	c.stateMgr.TransitionTo(DISCONNECTED, errors.New("reconnection failed"), map[string]interface{}{
		"reason":   "reconnect_failed",
		"attempts": c.opts.MaxReconnectAttempts,
	})

	return errors.New("reconnection failed after maximum attempts")
}
