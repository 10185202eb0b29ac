package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{
		Code:    "CONNECTION_FAILED",
		Type:    "CONNECTION_ERROR",
		Message: "failed to connect",
		Details: map[string]interface{}{
			"baseURL": "http://localhost:9000",
		},
	}

	errStr := err.Error()

	// Should be valid JSON
	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(errStr), &parsed); jsonErr != nil {
		t.Fatalf("error should be valid JSON: %v", jsonErr)
	}

	if parsed["code"] != "CONNECTION_FAILED" {
		t.Errorf("expected code=CONNECTION_FAILED, got %v", parsed["code"])
	}

	if parsed["type"] != "CONNECTION_ERROR" {
		t.Errorf("expected type=CONNECTION_ERROR, got %v", parsed["type"])
	}

	if parsed["message"] != "failed to connect" {
		t.Errorf("expected message='failed to connect', got %v", parsed["message"])
	}
}

func TestConnectionErrorWithCause(t *testing.T) {
	cause := &ConnectionError{
		Code:    "NETWORK_ERROR",
		Type:    "CONNECTION_ERROR",
		Message: "connection refused",
		Details: map[string]interface{}{},
	}

	err := &ConnectionError{
		Code:    "CONNECTION_FAILED",
		Type:    "CONNECTION_ERROR",
		Message: "failed to connect",
		Details: map[string]interface{}{},
		Cause:   cause,
	}

	errStr := err.Error()

	// Should contain cause
	if !strings.Contains(errStr, "cause") {
		t.Errorf("error should contain cause, got: %s", errStr)
	}

	var parsed map[string]interface{}
	json.Unmarshal([]byte(errStr), &parsed)

	if parsed["cause"] == nil {
		t.Error("expected cause field in JSON")
	}
}

func TestConnectionErrorUnwrap(t *testing.T) {
	cause := &ConnectionError{
		Code:    "NETWORK_ERROR",
		Type:    "CONNECTION_ERROR",
		Message: "connection refused",
		Details: map[string]interface{}{},
	}

	err := &ConnectionError{
		Code:    "CONNECTION_FAILED",
		Type:    "CONNECTION_ERROR",
		Message: "failed to connect",
		Details: map[string]interface{}{},
		Cause:   cause,
	}

	unwrapped := err.Unwrap()

	if unwrapped != cause {
		t.Errorf("expected unwrapped to be cause, got %v", unwrapped)
	}
}

func TestStateError(t *testing.T) {
	err := &StateError{
		Code:    "INVALID_STATE",
		Type:    "STATE_ERROR",
		Message: "invalid state",
		Details: map[string]interface{}{
			"operation":     "Query",
			"requiredState": "CONNECTED",
			"currentState":  "DISCONNECTED",
		},
	}

	errStr := err.Error()

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(errStr), &parsed); jsonErr != nil {
		t.Fatalf("error should be valid JSON: %v", jsonErr)
	}

	details := parsed["details"].(map[string]interface{})
	if details["operation"] != "Query" {
		t.Errorf("expected operation=Query, got %v", details["operation"])
	}
}

func TestErrInvalidState(t *testing.T) {
	err := ErrInvalidState("Query", CONNECTED, DISCONNECTED)

	if err == nil {
		t.Fatal("expected error, got nil")
	}

	stateErr, ok := err.(*StateError)
	if !ok {
		t.Fatalf("expected *StateError, got %T", err)
	}

	if stateErr.Code != "INVALID_STATE" {
		t.Errorf("expected code=INVALID_STATE, got %s", stateErr.Code)
	}

	details := stateErr.Details
	if details["operation"] != "Query" {
		t.Errorf("expected operation=Query, got %v", details["operation"])
	}

	if details["requiredState"] != "CONNECTED" {
		t.Errorf("expected requiredState=CONNECTED, got %v", details["requiredState"])
	}

	if details["currentState"] != "DISCONNECTED" {
		t.Errorf("expected currentState=DISCONNECTED, got %v", details["currentState"])
	}
}

func TestErrNotConnected(t *testing.T) {
	err := ErrNotConnected("Query", DISCONNECTED)

	if err.Code != "E_NOT_CONNECTED" {
		t.Errorf("expected code=E_NOT_CONNECTED, got %s", err.Code)
	}
	if err.Details["operation"] != "Query" {
		t.Errorf("expected operation=Query, got %v", err.Details["operation"])
	}
	if !strings.Contains(err.Error(), "DISCONNECTED") {
		t.Errorf("error text should name the current state: %s", err.Error())
	}
}

func TestErrEmptyQuery(t *testing.T) {
	err := ErrEmptyQuery("Exec")

	if err.Code != "E_EMPTY_QUERY" {
		t.Errorf("expected code=E_EMPTY_QUERY, got %s", err.Code)
	}
	if err.Details["operation"] != "Exec" {
		t.Errorf("expected operation=Exec, got %v", err.Details["operation"])
	}
}

func TestErrInvalidBaseURL(t *testing.T) {
	cause := fmt.Errorf("unsupported scheme %q", "ftp")
	err := ErrInvalidBaseURL("ftp://localhost", cause)

	if err.Code != "E_INVALID_URL" {
		t.Errorf("expected code=E_INVALID_URL, got %s", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive errors.Is")
	}
	if err.Details["url"] != "ftp://localhost" {
		t.Errorf("expected url detail, got %v", err.Details["url"])
	}
}

func TestErrTransportFailureWrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrTransportFailure("http://localhost:9000/execute_query", "trace-1", cause)

	if err.Code != "E_TRANSPORT_FAILURE" {
		t.Errorf("expected code=E_TRANSPORT_FAILURE, got %s", err.Code)
	}
	if err.URL != "http://localhost:9000/execute_query" {
		t.Errorf("expected URL on error, got %q", err.URL)
	}
	if err.TraceID != "trace-1" {
		t.Errorf("expected trace ID on error, got %q", err.TraceID)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive errors.Is")
	}
}

func TestErrBatchPartialFailure(t *testing.T) {
	err := ErrBatchPartialFailure(2, 5, 1)

	if err.FailedCount != 2 || err.TotalCount != 5 {
		t.Errorf("counts = %d/%d, want 2/5", err.FailedCount, err.TotalCount)
	}
	if err.FirstFailure != 1 {
		t.Errorf("FirstFailure = %d, want 1", err.FirstFailure)
	}
	if !strings.Contains(err.Error(), "2 of 5") {
		t.Errorf("error text should summarize counts: %s", err.Error())
	}
}

func TestErrPoolClosed(t *testing.T) {
	err := ErrPoolClosed()

	if err.Code != "E_POOL_CLOSED" {
		t.Errorf("expected code=E_POOL_CLOSED, got %s", err.Code)
	}
}

func TestPreconditionErrorAsTarget(t *testing.T) {
	// Callers match on the concrete type through errors.As after the
	// error has crossed wrapped returns.
	var err error = fmt.Errorf("query failed: %w", ErrEmptyQuery("Query"))

	var preErr *PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatal("errors.As failed to find *PreconditionError in chain")
	}
	if preErr.Code != "E_EMPTY_QUERY" {
		t.Errorf("expected code=E_EMPTY_QUERY, got %s", preErr.Code)
	}
}
