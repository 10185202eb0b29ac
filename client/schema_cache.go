package client

import (
	"context"
	"sync"
	"time"

	"github.com/querywire/querywire-go/schema"
)

// SchemaCache holds the latest introspected schema for a handle so
// repeated lookups stay off the wire. A successful DDL statement
// through Exec invalidates it.
type SchemaCache struct {
	mu        sync.RWMutex
	schema    *schema.SchemaDefinition
	fetchedAt time.Time
	ttl       time.Duration
}

// NewSchemaCache creates a cache with the given TTL. A zero TTL
// disables caching: every lookup refetches.
func NewSchemaCache(ttl time.Duration) *SchemaCache {
	return &SchemaCache{ttl: ttl}
}

// Get returns the cached schema if present and fresh.
func (sc *SchemaCache) Get() (*schema.SchemaDefinition, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.schema == nil || time.Since(sc.fetchedAt) > sc.ttl {
		return nil, false
	}
	return sc.schema, true
}

// Put stores a freshly introspected schema.
func (sc *SchemaCache) Put(s *schema.SchemaDefinition) {
	sc.mu.Lock()
	sc.schema = s
	sc.fetchedAt = time.Now()
	sc.mu.Unlock()
}

// Invalidate forces the next lookup to refetch.
func (sc *SchemaCache) Invalidate() {
	sc.mu.Lock()
	sc.schema = nil
	sc.mu.Unlock()
}

// Databases lists the databases visible through the translator.
func (c *Client) Databases(ctx context.Context) ([]string, error) {
	return schema.NewIntrospector(c).Databases(ctx)
}

// Tables lists the tables in the translator's default schema.
func (c *Client) Tables(ctx context.Context) ([]string, error) {
	return schema.NewIntrospector(c).Tables(ctx)
}

// DescribeTable returns the column structure of one table.
func (c *Client) DescribeTable(ctx context.Context, tableName string) (*schema.TableDefinition, error) {
	return schema.NewIntrospector(c).DescribeTable(ctx, tableName)
}

// SchemaSnapshot introspects the full server schema, serving from the
// handle's cache while it is fresh.
func (c *Client) SchemaSnapshot(ctx context.Context) (*schema.SchemaDefinition, error) {
	if cached, ok := c.schemaCache.Get(); ok {
		return cached, nil
	}

	snapshot, err := schema.NewIntrospector(c).Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	c.schemaCache.Put(snapshot)
	return snapshot, nil
}
