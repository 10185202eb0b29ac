// Package protocol provides wire types and error codes for the query
// translator protocol
package protocol

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents standardized error codes across transport layers
type ErrorCode int

const (
	// Connection errors (1000-1099)
	ErrorCodeConnectionRefused ErrorCode = 1001
	ErrorCodeTimeout           ErrorCode = 1002
	ErrorCodeDNSFailure        ErrorCode = 1003
	ErrorCodeTLSHandshake      ErrorCode = 1004
	ErrorCodeRequestCancelled  ErrorCode = 1010

	// Protocol errors (2000-2099)
	ErrorCodeBadEnvelope ErrorCode = 2001
	ErrorCodeBadRequest  ErrorCode = 2002

	// Query errors (3000-3099)
	ErrorCodeQueryFailed ErrorCode = 3001

	// Client errors (9000-9999)
	ErrorCodeClientClosed ErrorCode = 9001
	ErrorCodeInternal     ErrorCode = 9999
)

// TransportError represents an error with structured error code
type TransportError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	IsRetryable bool                   `json:"isRetryable"`
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if len(e.Details) > 0 {
		detailsJSON, _ := json.Marshal(e.Details)
		return fmt.Sprintf("[%d] %s (details: %s)", e.Code, e.Message, string(detailsJSON))
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// NewTransportError creates a new transport error
func NewTransportError(code ErrorCode, message string, details map[string]interface{}) *TransportError {
	return &TransportError{
		Code:        code,
		Message:     message,
		Details:     details,
		IsRetryable: isRetryable(code),
	}
}

// isRetryable determines if an error code represents a retryable error
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrorCodeTimeout,
		ErrorCodeConnectionRefused,
		ErrorCodeDNSFailure:
		return true
	default:
		return false
	}
}

// ConnectionRefusedError creates a connection-related transport error
func ConnectionRefusedError(message string, details map[string]interface{}) *TransportError {
	return NewTransportError(ErrorCodeConnectionRefused, message, details)
}

// RequestTimeoutError creates a timeout transport error
func RequestTimeoutError(message string, details map[string]interface{}) *TransportError {
	return NewTransportError(ErrorCodeTimeout, message, details)
}

// DNSFailureError creates a name resolution transport error
func DNSFailureError(host string) *TransportError {
	return NewTransportError(ErrorCodeDNSFailure, "failed to resolve host", map[string]interface{}{
		"host": host,
	})
}

// TLSHandshakeError creates a TLS handshake transport error
func TLSHandshakeError(message string, details map[string]interface{}) *TransportError {
	return NewTransportError(ErrorCodeTLSHandshake, message, details)
}

// RequestCancelledError creates an error for a context-cancelled request
func RequestCancelledError(message string) *TransportError {
	return NewTransportError(ErrorCodeRequestCancelled, message, nil)
}

// EnvelopeError creates an error for a response that is not a valid envelope
func EnvelopeError(message string) *TransportError {
	return NewTransportError(ErrorCodeBadEnvelope, message, nil)
}

// QueryFailedError creates an error for a server-reported query failure
func QueryFailedError(message string) *TransportError {
	return NewTransportError(ErrorCodeQueryFailed, message, nil)
}

// ClientClosedError creates an error for operations on a closed client
func ClientClosedError() *TransportError {
	return NewTransportError(ErrorCodeClientClosed, "client is closed", nil)
}

// ToJSON serializes the error to JSON for cross-language transmission
func (e *TransportError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes a transport error from JSON
func FromJSON(data []byte) (*TransportError, error) {
	var err TransportError
	if unmarshalErr := json.Unmarshal(data, &err); unmarshalErr != nil {
		return nil, unmarshalErr
	}
	return &err, nil
}
