package client

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"
)

// ConnectionError represents connection setup failures.
type ConnectionError struct {
	Code        string                 `json:"code"`
	Type        string                 `json:"type"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details"`
	Cause       error                  `json:"cause,omitempty"`
	StackTrace  []string               `json:"stack_trace,omitempty"`
	Timestamp   time.Time              `json:"timestamp,omitempty"`
	GoroutineID int                    `json:"goroutine_id,omitempty"`
}

// Error implements the error interface.
// Returns JSON format for machine consumption.
// Use FormatError() for flexible formatting based on debug mode.
func (e *ConnectionError) Error() string {
	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		if cerr, ok := e.Cause.(*ConnectionError); ok {
			errorData["cause"] = map[string]interface{}{
				"code":    cerr.Code,
				"type":    cerr.Type,
				"message": cerr.Message,
			}
		} else {
			errorData["cause"] = map[string]interface{}{
				"message": e.Cause.Error(),
			}
		}
	}

	b, _ := json.Marshal(errorData)
	return string(b)
}

// FormatError formats the error based on debug mode setting.
// When debugMode=false: returns simple "CODE: message" format.
// When debugMode=true: returns full JSON with stack trace, timestamp, goroutine ID.
func (e *ConnectionError) FormatError(debugMode bool) string {
	if !debugMode {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	if e.GoroutineID > 0 {
		errorData["goroutine_id"] = e.GoroutineID
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error for errors.Is and errors.As compatibility.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// PreconditionError reports an operation attempted without its
// preconditions met: querying before Connect, after Close, or with an
// empty query string. The transport is never invoked for these.
type PreconditionError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	b, _ := json.Marshal(errorData)
	return string(b)
}

// FormatError formats the error based on debug mode.
func (e *PreconditionError) FormatError(debugMode bool) string {
	if !debugMode {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"details": e.Details,
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// TransportError represents a failed exchange with the server: the
// request never completed and no response body is available. HTTP
// status codes are not transport errors; a 500 with a body is a
// successful exchange from the transport's point of view.
type TransportError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	URL        string                 `json:"url,omitempty"`
	TraceID    string                 `json:"trace_id,omitempty"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return e.formatJSON(false)
}

// FormatError formats the error based on debug mode.
func (e *TransportError) FormatError(debugMode bool) string {
	if !debugMode {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.formatJSON(true)
}

func (e *TransportError) formatJSON(full bool) string {
	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if e.URL != "" {
		errorData["url"] = e.URL
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	if !full {
		b, _ := json.Marshal(errorData)
		return string(b)
	}

	if e.TraceID != "" {
		errorData["trace_id"] = e.TraceID
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// EncodingError represents a failure to serialize a request body. The
// transport is never invoked when encoding fails.
type EncodingError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	b, _ := json.Marshal(errorData)
	return string(b)
}

// FormatError formats the error based on debug mode.
func (e *EncodingError) FormatError(debugMode bool) string {
	if !debugMode {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"details": e.Details,
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error.
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// StateError represents illegal state transitions.
type StateError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	StackTrace []string               `json:"stack_trace,omitempty"`
}

// Error implements the error interface.
func (e *StateError) Error() string {
	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	b, _ := json.Marshal(errorData)
	return string(b)
}

// FormatError formats the error based on debug mode.
func (e *StateError) FormatError(debugMode bool) string {
	if !debugMode {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"details": e.Details,
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// QueryError represents a server-reported query failure, surfaced when
// a caller asks for a decoded result and the envelope carries an error.
type QueryError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Query      string                 `json:"query,omitempty"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *QueryError) FormatError(debugMode bool) string {
	if !debugMode {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if e.Query != "" {
		errorData["query"] = e.Query
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// BatchError aggregates per-query failures from a batch execution.
// Individual failures live in the BatchResult entries; this error
// exists so callers can detect partial failure with a single check.
type BatchError struct {
	Code         string    `json:"code"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	FailedCount  int       `json:"failed_count"`
	TotalCount   int       `json:"total_count"`
	FirstFailure int       `json:"first_failure_index"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	errorData := map[string]interface{}{
		"code":                e.Code,
		"type":                e.Type,
		"message":             e.Message,
		"failed_count":        e.FailedCount,
		"total_count":         e.TotalCount,
		"first_failure_index": e.FirstFailure,
	}

	b, _ := json.Marshal(errorData)
	return string(b)
}

// FormatError formats the error based on debug mode.
func (e *BatchError) FormatError(debugMode bool) string {
	if !debugMode {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Error()
}

// Error constructors

// ErrInvalidState creates a StateError for operations attempted in wrong state.
func ErrInvalidState(operation string, required, actual ConnectionState) error {
	return &StateError{
		Code:    "INVALID_STATE",
		Type:    "STATE_ERROR",
		Message: fmt.Sprintf("%s requires %s state, currently %s", operation, required, actual),
		Details: map[string]interface{}{
			"operation":     operation,
			"requiredState": required.String(),
			"currentState":  actual.String(),
		},
		StackTrace: captureStackTrace(),
	}
}

// ErrNotConnected creates a PreconditionError for operations before
// Connect or after Close.
func ErrNotConnected(operation string, actual ConnectionState) *PreconditionError {
	return &PreconditionError{
		Code:    "E_NOT_CONNECTED",
		Type:    "PRECONDITION_ERROR",
		Message: fmt.Sprintf("%s requires a connected client, currently %s", operation, actual),
		Details: map[string]interface{}{
			"operation":    operation,
			"currentState": actual.String(),
		},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrEmptyQuery creates a PreconditionError for an empty query string.
func ErrEmptyQuery(operation string) *PreconditionError {
	return &PreconditionError{
		Code:    "E_EMPTY_QUERY",
		Type:    "PRECONDITION_ERROR",
		Message: "query must not be empty",
		Details: map[string]interface{}{
			"operation": operation,
		},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrEmptyBatch creates a PreconditionError for executing a batch with
// no queries.
func ErrEmptyBatch() *PreconditionError {
	return &PreconditionError{
		Code:       "E_EMPTY_BATCH",
		Type:       "PRECONDITION_ERROR",
		Message:    "batch contains no queries",
		Details:    map[string]interface{}{},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrInvalidBaseURL creates a ConnectionError for an unusable base URL.
func ErrInvalidBaseURL(rawURL string, cause error) *ConnectionError {
	details := map[string]interface{}{
		"url": rawURL,
	}
	return &ConnectionError{
		Code:        "E_INVALID_URL",
		Type:        "CONNECTION_ERROR",
		Message:     "base URL is not usable",
		Details:     details,
		Cause:       cause,
		StackTrace:  captureStackTrace(),
		Timestamp:   time.Now(),
		GoroutineID: getGoroutineID(),
	}
}

// ErrRequestEncoding creates an EncodingError for a request body that
// could not be serialized.
func ErrRequestEncoding(operation string, cause error) *EncodingError {
	return &EncodingError{
		Code:    "E_REQUEST_ENCODING",
		Type:    "ENCODING_ERROR",
		Message: "failed to serialize request body",
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrTransportFailure creates a TransportError for a request that never
// produced a response.
func ErrTransportFailure(url, traceID string, cause error) *TransportError {
	return &TransportError{
		Code:       "E_TRANSPORT_FAILURE",
		Type:       "TRANSPORT_ERROR",
		Message:    "request to server failed",
		Details:    map[string]interface{}{},
		URL:        url,
		TraceID:    traceID,
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrServerReported creates a QueryError from an error envelope.
func ErrServerReported(query, message string) *QueryError {
	return &QueryError{
		Code:       "E_QUERY_FAILED",
		Type:       "QUERY_ERROR",
		Message:    message,
		Details:    map[string]interface{}{},
		Query:      query,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrBatchPartialFailure creates a BatchError summarizing a batch run.
func ErrBatchPartialFailure(failed, total, firstFailure int) *BatchError {
	return &BatchError{
		Code:         "E_BATCH_PARTIAL_FAILURE",
		Type:         "BATCH_ERROR",
		Message:      fmt.Sprintf("%d of %d batch queries failed", failed, total),
		FailedCount:  failed,
		TotalCount:   total,
		FirstFailure: firstFailure,
		Timestamp:    time.Now(),
	}
}

// ErrPoolClosed creates a PreconditionError for pool use after Close.
func ErrPoolClosed() *PreconditionError {
	return &PreconditionError{
		Code:       "E_POOL_CLOSED",
		Type:       "PRECONDITION_ERROR",
		Message:    "client pool is closed",
		Details:    map[string]interface{}{},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// Helper functions

// captureStackTrace captures the current stack trace for error reporting.
func captureStackTrace() []string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(3, pcs) // Skip captureStackTrace, the error constructor, and runtime.Callers

	frames := make([]string, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := callersFrames.Next()

		// Format: function (file:line)
		frames = append(frames, fmt.Sprintf("%s (%s:%d)",
			frame.Function,
			frame.File,
			frame.Line,
		))

		if !more {
			break
		}
	}

	return frames
}

// getGoroutineID extracts the goroutine ID for debugging.
// Note: This uses runtime stack parsing and is intended for debug purposes only.
func getGoroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Stack trace format: "goroutine <id> [<status>]:"
	var id int
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}

// FormatError is a helper to format any error with debug mode support.
func FormatError(err error, debugMode bool) string {
	if err == nil {
		return ""
	}

	// Check if error implements our custom format interface
	type debugFormatter interface {
		FormatError(bool) string
	}

	if formatter, ok := err.(debugFormatter); ok {
		return formatter.FormatError(debugMode)
	}

	// Fallback to standard error string
	return err.Error()
}
