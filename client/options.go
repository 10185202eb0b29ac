package client

import (
	"crypto/tls"
	"time"

	"github.com/querywire/querywire-go/transport"
)

// ClientOptions configures the querywire client behavior.
type ClientOptions struct {
	// DefaultTimeoutMs is the default timeout in milliseconds for wire
	// operations. Zero means no client-imposed timeout: the transport's
	// own defaults apply.
	// Default: 0
	DefaultTimeoutMs int

	// DebugMode enables verbose error serialization with full cause chains
	// and raw wire logging.
	// When true, errors include complete stack of wrapped errors.
	// When false, errors are flattened to single message.
	// Default: false
	DebugMode bool

	// UserAgent is sent with every request.
	// Default: "querywire-go/" + Version
	UserAgent string

	// MaxIdleConns caps idle keep-alive connections held by the transport.
	// Zero leaves the transport default in place.
	// Default: 0
	MaxIdleConns int

	// IdleConnTimeout closes idle connections after this duration.
	// Zero leaves the transport default in place.
	// Default: 0
	IdleConnTimeout time.Duration

	// DisableKeepAlives turns off connection reuse.
	// Default: false
	DisableKeepAlives bool

	// HealthCheckInterval is how often the health monitor probes the server.
	// Default: 30s
	HealthCheckInterval time.Duration

	// MaxReconnectAttempts is the maximum number of automatic reconnection attempts.
	// Default: 10
	MaxReconnectAttempts int

	// TLSConfig provides custom TLS configuration for https base URLs.
	// If nil, a configuration is built from the TLS* fields below.
	TLSConfig *tls.Config

	// TLSInsecureSkipVerify skips certificate validation (for development only).
	// Default: false
	TLSInsecureSkipVerify bool

	// TLSCAFile is the path to a custom CA certificate file.
	TLSCAFile string

	// TLSCertFile is the path to the client certificate file.
	TLSCertFile string

	// TLSKeyFile is the path to the client private key file.
	TLSKeyFile string

	// TransportFactory builds the transport used after Connect. If nil,
	// an HTTP transport is built from the options above. Tests inject
	// mock transports through this field.
	TransportFactory transport.Factory

	// Logger is the logger implementation to use.
	// If nil, a default logger is used.
	Logger Logger

	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Default: "INFO"
	LogLevel string

	// OnConnected is called when the client becomes connected.
	OnConnected func(StateTransition)

	// OnDisconnected is called when the client is closed.
	OnDisconnected func(StateTransition)

	// OnReconnecting is called when automatic reconnection is attempted.
	OnReconnecting func(StateTransition)

	// SchemaCacheTTL is the duration for which introspected schema is cached.
	// After this period, schema is refreshed from the server on next use.
	// Default: 5 minutes
	SchemaCacheTTL time.Duration

	// PoolMinSize is the minimum number of client handles a ClientPool keeps.
	// Default: 1
	PoolMinSize int

	// PoolMaxSize is the maximum number of client handles a ClientPool opens.
	// Default: 1
	PoolMaxSize int

	// PoolIdleTimeout is how long a pooled handle may sit idle before the
	// pool closes it (down to PoolMinSize).
	// Default: 5 minutes
	PoolIdleTimeout time.Duration

	// ConversionCacheSize is the number of dialect conversion results
	// memoized per handle. Zero disables the cache and every Convert
	// call reaches the translator.
	// Default: 0 (disabled)
	ConversionCacheSize int
}

// DefaultOptions returns ClientOptions with default values.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		DefaultTimeoutMs:      0,
		DebugMode:             false,
		UserAgent:             "querywire-go/" + Version,
		HealthCheckInterval:   30 * time.Second,
		MaxReconnectAttempts:  10,
		TLSInsecureSkipVerify: false,
		LogLevel:              "INFO",
		SchemaCacheTTL:        5 * time.Minute,
		PoolMinSize:           1,
		PoolMaxSize:           1,
		PoolIdleTimeout:       5 * time.Minute,
	}
}
