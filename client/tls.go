package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// buildTLSConfig creates a TLS configuration from ClientOptions. It
// returns (nil, nil) when nothing is configured, leaving the transport
// on its platform defaults for https URLs.
func buildTLSConfig(opts *ClientOptions) (*tls.Config, error) {
	if opts.TLSConfig != nil {
		return opts.TLSConfig, nil
	}

	if !opts.TLSInsecureSkipVerify && opts.TLSCAFile == "" && opts.TLSCertFile == "" && opts.TLSKeyFile == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: opts.TLSInsecureSkipVerify,
	}

	// Load custom CA certificate if provided
	if opts.TLSCAFile != "" {
		caCert, err := os.ReadFile(opts.TLSCAFile)
		if err != nil {
			return nil, &ConnectionError{
				Code:    "TLS_CA_LOAD_FAILED",
				Type:    "CONNECTION_ERROR",
				Message: fmt.Sprintf("failed to load CA certificate from %s", opts.TLSCAFile),
				Details: map[string]interface{}{
					"caFile": opts.TLSCAFile,
				},
				Cause: err,
			}
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, &ConnectionError{
				Code:    "TLS_CA_INVALID",
				Type:    "CONNECTION_ERROR",
				Message: "failed to parse CA certificate",
				Details: map[string]interface{}{
					"caFile": opts.TLSCAFile,
				},
			}
		}

		tlsConfig.RootCAs = caCertPool
	}

	// Load client certificate and key if provided
	if opts.TLSCertFile != "" && opts.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.TLSCertFile, opts.TLSKeyFile)
		if err != nil {
			return nil, &ConnectionError{
				Code:    "TLS_CLIENT_CERT_FAILED",
				Type:    "CONNECTION_ERROR",
				Message: "failed to load client certificate and key",
				Details: map[string]interface{}{
					"certFile": opts.TLSCertFile,
					"keyFile":  opts.TLSKeyFile,
				},
				Cause: err,
			}
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
