// Package querywire is a Go client for HTTP query translator services:
// servers that accept a SQL statement as JSON over POST, execute or
// translate it, and answer with a JSON document. The package wraps
// that wire in a connection-shaped API with typed errors, health
// monitoring, pooling, dialect conversion, schema introspection, and
// migrations.
//
// Most programs only need Open:
//
//	c, err := querywire.Open(ctx, "http://localhost:8080", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	data, err := c.Query(ctx, "SELECT * FROM users;")
//
// The subpackages carry the full surface: client for the core client,
// mapper for decoding result envelopes, schema for introspection and
// diffing, migration for migrations, codegen for type generation.
package querywire

import (
	"context"

	"github.com/querywire/querywire-go/client"
)

// Client is the translator client. See the client package for the
// full API.
type Client = client.Client

// Options configures a Client. See client.ClientOptions.
type Options = client.ClientOptions

// Open creates a client and connects it to the translator at baseURL.
// A nil opts uses client.DefaultOptions.
func Open(ctx context.Context, baseURL string, opts *Options) (*Client, error) {
	if opts == nil {
		defaults := client.DefaultOptions()
		opts = &defaults
	}

	c := client.NewClient(opts)
	if err := c.Connect(ctx, baseURL); err != nil {
		return nil, err
	}
	return c, nil
}
