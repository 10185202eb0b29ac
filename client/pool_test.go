package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/querywire/querywire-go/transport"
	"github.com/querywire/querywire-go/transport/mock"
)

// poolHandleFactory builds connected mock-backed handles for pool tests.
func poolHandleFactory() func(ctx context.Context) (*Client, error) {
	return func(ctx context.Context) (*Client, error) {
		opts := DefaultOptions()
		opts.LogLevel = "ERROR"
		opts.TransportFactory = func(ctx context.Context) (transport.Transport, error) {
			return mock.NewMockTransport().WithResponse([]byte(`{"result": [[1]]}`)), nil
		}
		c := NewClient(&opts)
		if err := c.Connect(ctx, "http://localhost:9000"); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func TestPoolInitialization(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 2, 5, 30*time.Second, 0)

	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	stats := pool.Stats()
	if stats.IdleClients != 2 {
		t.Errorf("IdleClients after Initialize = %d, want 2", stats.IdleClients)
	}
	if stats.TotalClients != 2 {
		t.Errorf("TotalClients after Initialize = %d, want 2", stats.TotalClients)
	}
}

func TestPoolGetPut(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 1, 3, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	cl, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cl == nil {
		t.Fatal("Get returned nil handle")
	}
	if cl.GetState() != CONNECTED {
		t.Errorf("pooled handle state = %s, want CONNECTED", cl.GetState())
	}

	// The handle works like any directly connected client.
	data, err := cl.Query(ctx, "SELECT 1")
	if err != nil {
		t.Fatalf("Query on pooled handle failed: %v", err)
	}
	if string(data) != `{"result": [[1]]}` {
		t.Errorf("Query returned %q", data)
	}

	stats := pool.Stats()
	if stats.ActiveClients != 1 {
		t.Errorf("ActiveClients = %d, want 1", stats.ActiveClients)
	}

	pool.Put(cl)

	stats = pool.Stats()
	if stats.ActiveClients != 0 {
		t.Errorf("ActiveClients after Put = %d, want 0", stats.ActiveClients)
	}
	if stats.IdleClients != 1 {
		t.Errorf("IdleClients after Put = %d, want 1", stats.IdleClients)
	}
}

func TestPoolGrowsToMax(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 1, 3, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	handles := make([]*Client, 3)
	for i := range handles {
		cl, err := pool.Get(ctx)
		if err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
		handles[i] = cl
	}

	stats := pool.Stats()
	if stats.TotalClients != 3 {
		t.Errorf("TotalClients = %d, want 3", stats.TotalClients)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1 (the pre-warmed handle)", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("Misses = %d, want 2 (grown handles)", stats.Misses)
	}

	for _, cl := range handles {
		pool.Put(cl)
	}
}

func TestPoolBlocksAtCapacity(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 1, 2, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	cl1, _ := pool.Get(ctx)
	cl2, _ := pool.Get(ctx)

	// Pool is exhausted; a bounded Get must time out.
	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err := pool.Get(timeoutCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get at capacity = %v, want context.DeadlineExceeded", err)
	}
	if pool.Stats().Timeouts == 0 {
		t.Error("timeout not recorded in stats")
	}

	// A released handle unblocks the next waiter.
	done := make(chan *Client, 1)
	go func() {
		cl, err := pool.Get(ctx)
		if err != nil {
			done <- nil
			return
		}
		done <- cl
	}()

	time.Sleep(20 * time.Millisecond)
	pool.Put(cl1)

	select {
	case cl := <-done:
		if cl == nil {
			t.Fatal("waiting Get failed after Put")
		}
		pool.Put(cl)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Get never completed after Put")
	}

	pool.Put(cl2)
}

func TestPoolRetiresDeadHandles(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 1, 2, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	cl, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	pool.Put(cl)

	// Kill the queued handle behind the pool's back. The next Get must
	// notice, retire it and hand out a fresh one.
	if err := cl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	replacement, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get after handle death failed: %v", err)
	}
	if replacement.GetState() != CONNECTED {
		t.Errorf("replacement handle state = %s, want CONNECTED", replacement.GetState())
	}
	if replacement == cl {
		t.Error("pool handed out the dead handle")
	}
	pool.Put(replacement)
}

func TestPoolPutDeadHandleDropsIt(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 0, 2, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	cl, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	cl.Close()
	pool.Put(cl)

	stats := pool.Stats()
	if stats.IdleClients != 0 {
		t.Errorf("dead handle requeued: IdleClients = %d, want 0", stats.IdleClients)
	}
	if stats.TotalClients != 0 {
		t.Errorf("TotalClients = %d, want 0", stats.TotalClients)
	}
}

func TestPoolConcurrentAccess(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 2, 10, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	const numGoroutines = 20
	var wg sync.WaitGroup
	successCount := atomic.Int32{}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			cl, err := pool.Get(ctx)
			if err != nil {
				return
			}
			if _, err := cl.Query(ctx, "SELECT 1"); err != nil {
				pool.Put(cl)
				return
			}
			pool.Put(cl)
			successCount.Add(1)
		}()
	}

	wg.Wait()

	if successCount.Load() != numGoroutines {
		t.Errorf("%d of %d concurrent operations succeeded", successCount.Load(), numGoroutines)
	}
	if active := pool.Stats().ActiveClients; active != 0 {
		t.Errorf("ActiveClients after all Puts = %d, want 0 (leak)", active)
	}
}

func TestPoolClose(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 2, 5, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := pool.Close(ctx); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	_, err := pool.Get(ctx)
	var preErr *PreconditionError
	if !errors.As(err, &preErr) || preErr.Code != "E_POOL_CLOSED" {
		t.Errorf("Get after Close = %v, want E_POOL_CLOSED precondition", err)
	}
}

func TestPoolPutAfterCloseClosesHandle(t *testing.T) {
	pool := newClientPool(poolHandleFactory(), 0, 2, 30*time.Second, 0)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	cl, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	pool.Put(cl)
	if cl.GetState() != DISCONNECTED {
		t.Errorf("handle returned to closed pool has state %s, want DISCONNECTED", cl.GetState())
	}
}

func TestNewClientPoolUsesOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.LogLevel = "ERROR"
	opts.PoolMinSize = 2
	opts.PoolMaxSize = 4
	opts.HealthCheckInterval = 0 // no background pings during the test
	opts.TransportFactory = func(ctx context.Context) (transport.Transport, error) {
		return mock.NewMockTransport().WithResponse([]byte(`{"result": []}`)), nil
	}

	pool := NewClientPool("http://localhost:9000", &opts)
	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer pool.Close(ctx)

	stats := pool.Stats()
	if stats.TotalClients != 2 {
		t.Errorf("TotalClients = %d, want PoolMinSize", stats.TotalClients)
	}

	cl, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cl.BaseURL() != "http://localhost:9000" {
		t.Errorf("pooled handle BaseURL = %q", cl.BaseURL())
	}
	pool.Put(cl)
}
