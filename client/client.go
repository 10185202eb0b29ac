package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/querywire/querywire-go/protocol"
	"github.com/querywire/querywire-go/transport"
	httptransport "github.com/querywire/querywire-go/transport/http"
)

// Client is an explicit handle to a query translator server. Each handle
// owns its own base URL, transport and connection state; there is no
// package-level connection. Methods on a handle are not safe for
// concurrent use. Callers that need concurrency use one handle per
// goroutine or a ClientPool.
type Client struct {
	baseURL          string
	transport        transport.Transport
	transportFactory transport.Factory
	codec            *protocol.WireCodec
	opts             ClientOptions
	stateMgr         *StateManager
	logger           Logger
	debugMode        atomic.Bool
	schemaCache      *SchemaCache
	convCache        *ConversionCache

	hooksMu sync.RWMutex
	hooks   []Hook // Registered hooks in execution order
}

// NewClient creates a new client handle with the given options.
// If opts is nil, default options are used. The handle starts
// disconnected; call Connect before issuing queries.
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}

	options := *opts
	if options.UserAgent == "" {
		options.UserAgent = "querywire-go/" + Version
	}
	if options.LogLevel == "" {
		options.LogLevel = "INFO"
	}

	// Initialize logger
	logger := options.Logger
	if logger == nil {
		logger = NewLogger(options.LogLevel, os.Stdout)
	}

	client := &Client{
		transportFactory: options.TransportFactory,
		codec:            protocol.NewWireCodec(),
		opts:             options,
		stateMgr:         NewStateManager(),
		logger:           logger,
		schemaCache:      NewSchemaCache(options.SchemaCacheTTL),
	}
	if options.ConversionCacheSize > 0 {
		client.convCache = NewConversionCache(options.ConversionCacheSize)
	}

	client.debugMode.Store(options.DebugMode)

	// Wire up lifecycle callbacks if provided
	if options.OnConnected != nil || options.OnDisconnected != nil || options.OnReconnecting != nil {
		client.stateMgr.OnStateChange(func(transition StateTransition) {
			switch transition.To {
			case CONNECTED:
				if client.opts.OnConnected != nil {
					client.opts.OnConnected(transition)
				}
			case DISCONNECTED:
				if transition.From != DISCONNECTED && client.opts.OnDisconnected != nil {
					client.opts.OnDisconnected(transition)
				}
			case CONNECTING:
				// Only automatic reconnects re-enter CONNECTING from
				// CONNECTED; the initial Connect comes from DISCONNECTED.
				if transition.From == CONNECTED && client.opts.OnReconnecting != nil {
					client.opts.OnReconnecting(transition)
				}
			}
		})
	}

	return client
}

// Connect binds the handle to a translator base URL, for example
// "http://localhost:9000". The URL is validated and stored but no
// request is sent; the translator is only contacted by Query, Exec and
// the other wire operations. Connecting an already-connected handle is
// an error.
func (c *Client) Connect(ctx context.Context, baseURL string) error {
	// CONNECTED permits a transition to CONNECTING for the reconnect
	// path, so the already-connected case needs an explicit guard here.
	if state := c.stateMgr.GetState(); state != DISCONNECTED {
		return ErrInvalidState("Connect", DISCONNECTED, state)
	}

	c.logger.Info("connecting to translator", String("baseURL", redactURL(baseURL)))

	err := c.stateMgr.TransitionTo(CONNECTING, nil, map[string]interface{}{
		"reason":  "user_initiated",
		"baseURL": baseURL,
	})
	if err != nil {
		return err
	}

	if err := validateBaseURL(baseURL); err != nil {
		c.stateMgr.TransitionTo(DISCONNECTED, nil, map[string]interface{}{
			"reason": "error",
		})
		return err
	}

	c.baseURL = baseURL

	factory := c.transportFactory
	if factory == nil {
		factory = c.defaultTransportFactory()
	}

	tr, err := factory(ctx)
	if err != nil {
		c.baseURL = ""
		c.stateMgr.TransitionTo(DISCONNECTED, nil, map[string]interface{}{
			"reason": "error",
		})
		return &ConnectionError{
			Code:    "TRANSPORT_INIT_FAILED",
			Type:    "CONNECTION_ERROR",
			Message: "failed to initialize transport",
			Details: map[string]interface{}{
				"baseURL": baseURL,
			},
			Cause:       err,
			Timestamp:   time.Now(),
			StackTrace:  captureStackTrace(),
			GoroutineID: getGoroutineID(),
		}
	}
	c.transport = tr

	if err := c.stateMgr.TransitionTo(CONNECTED, nil, map[string]interface{}{
		"reason":  "user_initiated",
		"baseURL": baseURL,
	}); err != nil {
		tr.Close()
		c.transport = nil
		c.baseURL = ""
		return err
	}

	c.logger.Info("client connected",
		String("baseURL", redactURL(baseURL)),
		String("userAgent", c.opts.UserAgent))
	return nil
}

// Query sends a statement to the translator and returns the response
// body exactly as received. The body comes back verbatim for every HTTP
// status; translator-reported failures travel inside the body as an
// error envelope and are not turned into Go errors here. A non-nil
// error means the request never completed and no body exists.
func (c *Client) Query(ctx context.Context, query string) ([]byte, error) {
	return c.roundTrip(ctx, "Query", query)
}

// Exec sends a DDL or DML statement. On the wire it behaves exactly
// like Query; additionally a successful CREATE, ALTER, DROP or TRUNCATE
// invalidates the handle's schema cache.
func (c *Client) Exec(ctx context.Context, command string) ([]byte, error) {
	data, err := c.roundTrip(ctx, "Exec", command)
	if err == nil && isDDL(command) {
		c.schemaCache.Invalidate()
	}
	return data, err
}

// roundTrip is the single request path shared by Query and Exec. It
// guards preconditions before touching the transport, so a disconnected
// handle or a blank statement never produces network traffic.
func (c *Client) roundTrip(ctx context.Context, operation, query string) ([]byte, error) {
	if state := c.stateMgr.GetState(); state != CONNECTED {
		return nil, ErrNotConnected(operation, state)
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery(operation)
	}

	body, err := c.codec.EncodeQuery(query)
	if err != nil {
		return nil, ErrRequestEncoding(operation, err)
	}

	traceID := uuid.New().String()
	ctx = ContextWithTraceID(ctx, traceID)
	endpoint := c.baseURL + protocol.EndpointExecuteQuery

	hookCtx := &HookContext{
		Operation: operation,
		Query:     query,
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
		TraceID:   traceID,
	}
	if err := c.executeBeforeHooks(ctx, hookCtx); err != nil {
		return nil, err
	}

	if c.opts.DefaultTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.opts.DefaultTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	fingerprint := QueryFingerprint(query)
	c.logger.Debug("sending query",
		String("trace_id", traceID),
		String("endpoint", endpoint),
		String("query", query))

	start := time.Now()
	var buf bytes.Buffer
	status, rtErr := c.transport.RoundTrip(ctx, transport.Request{
		Method:  "POST",
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": protocol.ContentTypeJSON},
		Body:    body,
	}, func(chunk []byte) error {
		_, werr := buf.Write(chunk)
		return werr
	})
	duration := time.Since(start)

	hookCtx.Duration = duration
	hookCtx.Status = status

	if rtErr != nil {
		terr := ErrTransportFailure(endpoint, traceID, rtErr)
		hookCtx.Error = terr
		c.executeAfterHooks(ctx, hookCtx)
		c.logger.Error("query failed in transport",
			String("trace_id", traceID),
			String("fingerprint", fingerprint),
			Duration("duration", duration),
			Error("error", rtErr))
		return nil, terr
	}

	data := buf.Bytes()
	if data == nil {
		data = []byte{}
	}

	hookCtx.Result = data
	if err := c.executeAfterHooks(ctx, hookCtx); err != nil {
		return nil, err
	}

	c.logger.Info("query completed",
		String("trace_id", traceID),
		String("fingerprint", fingerprint),
		Int("status", status),
		Int("bytes", len(data)),
		Duration("duration", duration))

	if c.debugMode.Load() {
		c.logger.Debug("raw response",
			String("trace_id", traceID),
			String("body", previewBody(data)))
	}

	return data, nil
}

// Close releases the handle locally. No request is sent. Closing an
// already-closed handle is a no-op, and a closed handle behaves exactly
// like one that was never connected.
func (c *Client) Close() error {
	state := c.stateMgr.GetState()
	if state == DISCONNECTED {
		return nil
	}
	if state != CONNECTED {
		return ErrInvalidState("Close", CONNECTED, state)
	}

	if err := c.stateMgr.TransitionTo(DISCONNECTING, nil, map[string]interface{}{
		"reason": "user_initiated",
	}); err != nil {
		return err
	}

	var closeErr error
	if c.transport != nil {
		closeErr = c.transport.Close()
	}
	c.transport = nil
	c.baseURL = ""
	c.schemaCache.Invalidate()

	c.stateMgr.TransitionTo(DISCONNECTED, nil, map[string]interface{}{
		"reason": "user_initiated",
	})

	if closeErr != nil {
		c.logger.Warn("transport close reported an error", Error("error", closeErr))
	}
	c.logger.Info("client closed")
	return nil
}

// CloseSession asks the translator to release server-side resources by
// posting to its close endpoint, then returns the translator's
// acknowledgement message. The local handle stays connected; call Close
// to release it.
func (c *Client) CloseSession(ctx context.Context) (string, error) {
	if state := c.stateMgr.GetState(); state != CONNECTED {
		return "", ErrNotConnected("CloseSession", state)
	}

	traceID := uuid.New().String()
	ctx = ContextWithTraceID(ctx, traceID)
	endpoint := c.baseURL + protocol.EndpointClose

	var buf bytes.Buffer
	_, rtErr := c.transport.RoundTrip(ctx, transport.Request{
		Method:  "POST",
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": protocol.ContentTypeJSON},
		Body:    c.codec.EncodeEmpty(),
	}, func(chunk []byte) error {
		_, werr := buf.Write(chunk)
		return werr
	})
	if rtErr != nil {
		return "", ErrTransportFailure(endpoint, traceID, rtErr)
	}

	env, err := c.codec.DecodeEnvelope(buf.Bytes())
	if err != nil {
		return "", err
	}

	c.logger.Info("session closed",
		String("trace_id", traceID),
		String("message", env.Message))
	return env.Message, nil
}

// Ping checks that the translator is reachable by sending a trivial
// query. Any complete HTTP exchange counts as reachable regardless of
// status; only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	if state := c.stateMgr.GetState(); state != CONNECTED {
		return ErrNotConnected("Ping", state)
	}

	body, err := c.codec.EncodeQuery("SELECT 1")
	if err != nil {
		return ErrRequestEncoding("Ping", err)
	}

	traceID := uuid.New().String()
	endpoint := c.baseURL + protocol.EndpointExecuteQuery
	_, rtErr := c.transport.RoundTrip(ContextWithTraceID(ctx, traceID), transport.Request{
		Method:  "POST",
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": protocol.ContentTypeJSON},
		Body:    body,
	}, func([]byte) error { return nil })
	if rtErr != nil {
		return ErrTransportFailure(endpoint, traceID, rtErr)
	}
	return nil
}

// GetState returns the handle's connection state.
func (c *Client) GetState() ConnectionState {
	return c.stateMgr.GetState()
}

// BaseURL returns the base URL the handle is bound to, or "" when
// disconnected.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetMetrics returns transport counters for the handle. A disconnected
// handle reports zeroes.
func (c *Client) GetMetrics() transport.TransportMetrics {
	if c.transport == nil {
		return transport.TransportMetrics{}
	}
	return c.transport.GetMetrics()
}

// SetLogLevel replaces the handle's logger with a default logger at the
// given level. Invalid levels are rejected.
func (c *Client) SetLogLevel(level string) error {
	switch strings.ToUpper(level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	c.logger = NewLogger(level, os.Stdout)
	return nil
}

// OnStateChange registers a handler for connection state transitions.
func (c *Client) OnStateChange(handler StateChangeHandler) {
	c.stateMgr.OnStateChange(handler)
}

func (c *Client) defaultTransportFactory() transport.Factory {
	return func(ctx context.Context) (transport.Transport, error) {
		var tlsConfig *tls.Config
		if strings.HasPrefix(c.baseURL, "https://") {
			cfg, err := buildTLSConfig(&c.opts)
			if err != nil {
				return nil, err
			}
			tlsConfig = cfg
		}
		return httptransport.NewHTTPTransport(httptransport.HTTPTransportOptions{
			TLSConfig:         tlsConfig,
			MaxIdleConns:      c.opts.MaxIdleConns,
			IdleConnTimeout:   c.opts.IdleConnTimeout,
			DisableKeepAlives: c.opts.DisableKeepAlives,
			UserAgent:         c.opts.UserAgent,
		})
	}
}

// validateBaseURL rejects URLs the transport could not reach. The URL
// is otherwise stored as given; endpoint paths are appended to it
// verbatim.
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return ErrInvalidBaseURL(baseURL, fmt.Errorf("base URL is empty"))
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ErrInvalidBaseURL(baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidBaseURL(baseURL, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return ErrInvalidBaseURL(baseURL, fmt.Errorf("base URL has no host"))
	}
	return nil
}

// redactURL masks credentials embedded in a base URL before it reaches
// the logs.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.User != nil {
		return u.Redacted()
	}
	return rawURL
}

func isDDL(command string) bool {
	head := strings.ToUpper(strings.TrimSpace(command))
	for _, prefix := range []string{"CREATE ", "ALTER ", "DROP ", "TRUNCATE "} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}
