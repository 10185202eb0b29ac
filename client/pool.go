package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// poolCounters are the live atomic counters behind PoolStats.
type poolCounters struct {
	ActiveClients atomic.Int32
	IdleClients   atomic.Int32
	TotalClients  atomic.Int32
	WaitCount     atomic.Int64
	WaitDuration  atomic.Int64 // nanoseconds
	Hits          atomic.Int64
	Misses        atomic.Int64
	Timeouts      atomic.Int64
	Errors        atomic.Int64
}

// PoolStats is a point-in-time snapshot of the pool counters.
type PoolStats struct {
	ActiveClients int32
	IdleClients   int32
	TotalClients  int32
	WaitCount     int64
	WaitDuration  time.Duration // cumulative time callers spent waiting in Get
	Hits          int64
	Misses        int64
	Timeouts      int64
	Errors        int64
}

// pooledClient pairs a handle with the time it was last returned so the
// cleanup worker can retire handles that sat idle too long.
type pooledClient struct {
	client   *Client
	lastUsed time.Time
}

// ClientPool maintains a set of connected Client handles for concurrent use.
//
// A single Client is not safe for concurrent calls, so programs that issue
// queries from many goroutines either dedicate a handle per goroutine or
// borrow from a pool:
//
//	cl, err := pool.Get(ctx)
//	if err != nil { ... }
//	defer pool.Put(cl)
//	data, err := cl.Query(ctx, "SELECT * FROM users")
//
// Handles are revalidated on checkout and retired when idle longer than the
// configured idle timeout. The pool keeps at least the minimum idle count
// warm and never opens more than the maximum.
type ClientPool struct {
	clients             chan *pooledClient
	factory             func(ctx context.Context) (*Client, error)
	minIdle             int
	maxOpen             int
	idleTimeout         time.Duration
	healthCheckInterval time.Duration
	stats               poolCounters
	stopCh              chan struct{}
	wg                  sync.WaitGroup
	mu                  sync.RWMutex
	closed              bool
}

// NewClientPool creates a pool whose handles connect to baseURL with the
// given options. Sizing comes from PoolMinSize, PoolMaxSize, PoolIdleTimeout
// and HealthCheckInterval on the options; nil options use DefaultOptions.
// Call Initialize before the first Get.
func NewClientPool(baseURL string, opts *ClientOptions) *ClientPool {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}

	factory := func(ctx context.Context) (*Client, error) {
		cl := NewClient(opts)
		if err := cl.Connect(ctx, baseURL); err != nil {
			return nil, err
		}
		return cl, nil
	}

	return newClientPool(factory, opts.PoolMinSize, opts.PoolMaxSize,
		opts.PoolIdleTimeout, opts.HealthCheckInterval)
}

// newClientPool wires a pool around an arbitrary handle factory. Tests use
// this to pool handles backed by mock transports.
func newClientPool(
	factory func(ctx context.Context) (*Client, error),
	minIdle, maxOpen int,
	idleTimeout, healthCheckInterval time.Duration,
) *ClientPool {
	if minIdle < 0 {
		minIdle = 0
	}
	if maxOpen < 1 {
		maxOpen = 1
	}
	if minIdle > maxOpen {
		minIdle = maxOpen
	}
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}

	return &ClientPool{
		clients:             make(chan *pooledClient, maxOpen),
		factory:             factory,
		minIdle:             minIdle,
		maxOpen:             maxOpen,
		idleTimeout:         idleTimeout,
		healthCheckInterval: healthCheckInterval,
		stopCh:              make(chan struct{}),
	}
}

// Initialize pre-warms the pool with the minimum idle handle count and
// starts the cleanup and health check workers.
func (p *ClientPool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed()
	}

	for i := 0; i < p.minIdle; i++ {
		cl, err := p.factory(ctx)
		if err != nil {
			p.stats.Errors.Add(1)
			p.closeAllIdle()
			return err
		}

		p.clients <- &pooledClient{client: cl, lastUsed: time.Now()}
		p.stats.TotalClients.Add(1)
		p.stats.IdleClients.Add(1)
	}

	p.wg.Add(1)
	go p.cleanupWorker()

	if p.healthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthCheckWorker()
	}

	return nil
}

// Get borrows a connected handle, creating one when the pool is empty and
// under its maximum. Blocks until a handle frees up or ctx is done. The
// caller must return the handle with Put.
func (p *ClientPool) Get(ctx context.Context) (*Client, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed()
	}
	p.mu.RUnlock()

	startWait := time.Now()
	p.stats.WaitCount.Add(1)

	select {
	case <-ctx.Done():
		p.stats.Timeouts.Add(1)
		return nil, ctx.Err()

	case pc := <-p.clients:
		p.stats.WaitDuration.Add(time.Since(startWait).Nanoseconds())
		p.stats.Hits.Add(1)
		p.stats.IdleClients.Add(-1)
		p.stats.ActiveClients.Add(1)

		// A handle that dropped its connection while idle is retired
		// and the checkout retried.
		if pc.client.GetState() != CONNECTED {
			p.stats.TotalClients.Add(-1)
			p.stats.ActiveClients.Add(-1)
			pc.client.Close()
			return p.Get(ctx)
		}

		return pc.client, nil

	default:
		// No idle handle. Open a new one if under the cap.
		if p.stats.TotalClients.Load() < int32(p.maxOpen) {
			cl, err := p.factory(ctx)
			if err != nil {
				p.stats.Errors.Add(1)
				return nil, err
			}

			p.stats.WaitDuration.Add(time.Since(startWait).Nanoseconds())
			p.stats.Misses.Add(1)
			p.stats.TotalClients.Add(1)
			p.stats.ActiveClients.Add(1)

			return cl, nil
		}

		// At capacity. Wait for a handle to come back.
		select {
		case <-ctx.Done():
			p.stats.Timeouts.Add(1)
			return nil, ctx.Err()

		case pc := <-p.clients:
			p.stats.WaitDuration.Add(time.Since(startWait).Nanoseconds())
			p.stats.Hits.Add(1)
			p.stats.IdleClients.Add(-1)
			p.stats.ActiveClients.Add(1)

			if pc.client.GetState() != CONNECTED {
				p.stats.TotalClients.Add(-1)
				p.stats.ActiveClients.Add(-1)
				pc.client.Close()
				return p.Get(ctx)
			}

			return pc.client, nil
		}
	}
}

// Put returns a handle to the pool. Handles that are dead, or returned to a
// closed or full pool, are closed instead of re-queued.
func (p *ClientPool) Put(cl *Client) {
	if cl == nil {
		return
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		cl.Close()
		return
	}

	p.stats.ActiveClients.Add(-1)

	if cl.GetState() != CONNECTED {
		p.stats.TotalClients.Add(-1)
		cl.Close()
		return
	}

	select {
	case p.clients <- &pooledClient{client: cl, lastUsed: time.Now()}:
		p.stats.IdleClients.Add(1)
	default:
		// Pool buffer is full. Shed the surplus handle.
		p.stats.TotalClients.Add(-1)
		cl.Close()
	}
}

// Stats returns a point-in-time copy of the pool counters.
func (p *ClientPool) Stats() PoolStats {
	return PoolStats{
		ActiveClients: p.stats.ActiveClients.Load(),
		IdleClients:   p.stats.IdleClients.Load(),
		TotalClients:  p.stats.TotalClients.Load(),
		WaitCount:     p.stats.WaitCount.Load(),
		WaitDuration:  time.Duration(p.stats.WaitDuration.Load()),
		Hits:          p.stats.Hits.Load(),
		Misses:        p.stats.Misses.Load(),
		Timeouts:      p.stats.Timeouts.Load(),
		Errors:        p.stats.Errors.Load(),
	}
}

// Close stops the workers and closes every idle handle. Handles still
// checked out are the caller's to close. Close waits for the workers to
// exit or ctx to expire.
func (p *ClientPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.closeAllIdle()
	return nil
}

// cleanupWorker periodically retires handles idle past the idle timeout.
func (p *ClientPool) cleanupWorker() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.idleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return

		case <-ticker.C:
			p.cleanupIdleClients()
		}
	}
}

// cleanupIdleClients retires stale idle handles while holding minIdle warm.
func (p *ClientPool) cleanupIdleClients() {
	now := time.Now()
	currentIdle := int(p.stats.IdleClients.Load())

	for currentIdle > p.minIdle {
		select {
		case pc := <-p.clients:
			if now.Sub(pc.lastUsed) > p.idleTimeout {
				p.stats.IdleClients.Add(-1)
				p.stats.TotalClients.Add(-1)
				pc.client.Close()
				currentIdle--
			} else {
				// Still fresh. The queue is FIFO, so everything
				// behind it is fresher still.
				p.clients <- pc
				return
			}

		default:
			return
		}
	}
}

// healthCheckWorker periodically pings idle handles.
func (p *ClientPool) healthCheckWorker() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return

		case <-ticker.C:
			p.healthCheckIdleClients()
		}
	}
}

// healthCheckIdleClients pings idle handles and retires the ones that fail.
func (p *ClientPool) healthCheckIdleClients() {
	idleCount := int(p.stats.IdleClients.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < idleCount; i++ {
		select {
		case pc := <-p.clients:
			if err := pc.client.Ping(ctx); err != nil || pc.client.GetState() != CONNECTED {
				p.stats.IdleClients.Add(-1)
				p.stats.TotalClients.Add(-1)
				p.stats.Errors.Add(1)
				pc.client.Close()
			} else {
				p.clients <- pc
			}

		default:
			return
		}
	}
}

// closeAllIdle drains the queue and closes every idle handle.
func (p *ClientPool) closeAllIdle() {
	for {
		select {
		case pc := <-p.clients:
			p.stats.IdleClients.Add(-1)
			p.stats.TotalClients.Add(-1)
			pc.client.Close()
		default:
			return
		}
	}
}
