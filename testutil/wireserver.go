package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/querywire/querywire-go/client"
	"github.com/querywire/querywire-go/protocol"
)

// WireServer is an in-process stand-in for a query translator. It
// serves the translator's HTTP surface from an httptest.Server and
// provides a fluent API for setting up expectations and verifying
// calls, so tests exercise the full client/transport/codec path
// without a real backend.
//
// Example usage:
//
//	ws := testutil.NewWireServer(t)
//	ws.ExpectQuery("SELECT * FROM users").
//	    WillReturnRows([]interface{}{1, "Alice"})
//
//	c, cleanup := ws.Client(t)
//	defer cleanup()
//	data, err := c.Query(ctx, "SELECT * FROM users")
//	ws.VerifyExpectations(t)
type WireServer struct {
	server *httptest.Server

	mu           sync.Mutex
	expectations []*QueryExpectation
	requests     []RecordedRequest
	unexpected   []string
	closeCalls   int
	strict       bool
	convertFn    func(sourceDialect, targetDialect, query string) (string, error)
}

// QueryExpectation represents an expected statement and the response
// the server will serve for it.
type QueryExpectation struct {
	query       string
	status      int
	body        []byte
	times       int // expected number of calls (-1 = any)
	actualCalls int
}

// RecordedRequest is one request the server received.
type RecordedRequest struct {
	Path  string
	Body  []byte
	Query string // statement extracted from the body, when present
}

// NewWireServer starts a wire server. It is shut down automatically
// when the test finishes.
func NewWireServer(t testing.TB) *WireServer {
	t.Helper()

	ws := &WireServer{
		expectations: make([]*QueryExpectation, 0),
		requests:     make([]RecordedRequest, 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(protocol.EndpointExecuteQuery, ws.handleExecuteQuery)
	mux.HandleFunc(protocol.EndpointClose, ws.handleClose)
	mux.HandleFunc(protocol.EndpointConvertSQLGlot, ws.handleConvert)
	mux.HandleFunc(protocol.EndpointConvertGenAI, ws.handleConvert)

	ws.server = httptest.NewServer(mux)
	t.Cleanup(ws.server.Close)

	return ws
}

// URL returns the server's base URL, suitable for Client.Connect.
func (ws *WireServer) URL() string {
	return ws.server.URL
}

// Client creates a client connected to this server and a cleanup
// function that closes it.
func (ws *WireServer) Client(t testing.TB) (*client.Client, func()) {
	t.Helper()

	opts := client.DefaultOptions()
	opts.LogLevel = "ERROR"
	opts.DebugMode = testing.Verbose()

	c := client.NewClient(&opts)
	if err := c.Connect(context.Background(), ws.server.URL); err != nil {
		t.Fatalf("failed to connect to wire server: %v", err)
	}

	return c, func() {
		if err := c.Close(); err != nil {
			t.Logf("warning: failed to close: %v", err)
		}
	}
}

// Strict makes unmatched statements fail the test at verification time.
// Without it, unmatched statements get an empty result set.
func (ws *WireServer) Strict() *WireServer {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.strict = true
	return ws
}

// ExpectQuery sets up an expectation for a statement. Matching is by
// exact statement text. Returns the expectation for chaining.
func (ws *WireServer) ExpectQuery(query string) *QueryExpectation {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	exp := &QueryExpectation{
		query:  query,
		status: http.StatusOK,
		body:   []byte(`{"result": []}`),
		times:  1,
	}
	ws.expectations = append(ws.expectations, exp)
	return exp
}

// ConvertResult overrides the conversion endpoints. By default they
// echo the statement back unchanged; a non-nil error becomes a 500
// with the message in the error field.
func (ws *WireServer) ConvertResult(fn func(sourceDialect, targetDialect, query string) (string, error)) *WireServer {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.convertFn = fn
	return ws
}

// WillReturnRows serves a 200 with the rows under the result key.
func (e *QueryExpectation) WillReturnRows(rows ...interface{}) *QueryExpectation {
	body, err := json.Marshal(map[string]interface{}{"result": rows})
	if err != nil {
		panic(fmt.Sprintf("unmarshalable rows: %v", err))
	}
	e.status = http.StatusOK
	e.body = body
	return e
}

// WillReturnResult serves a 200 with an arbitrary value under the
// result key.
func (e *QueryExpectation) WillReturnResult(v interface{}) *QueryExpectation {
	body, err := json.Marshal(map[string]interface{}{"result": v})
	if err != nil {
		panic(fmt.Sprintf("unmarshalable result: %v", err))
	}
	e.status = http.StatusOK
	e.body = body
	return e
}

// WillReturnError serves a 500 with the message in the error field,
// the way a translator reports an execution failure.
func (e *QueryExpectation) WillReturnError(message string) *QueryExpectation {
	body, _ := json.Marshal(map[string]string{"error": message})
	e.status = http.StatusInternalServerError
	e.body = body
	return e
}

// WillReturnStatus serves an arbitrary status and verbatim body.
func (e *QueryExpectation) WillReturnStatus(status int, body string) *QueryExpectation {
	e.status = status
	e.body = []byte(body)
	return e
}

// Times sets the expected number of times this statement should arrive.
// Use -1 for "any number of times".
func (e *QueryExpectation) Times(n int) *QueryExpectation {
	e.times = n
	return e
}

// Once is a shorthand for Times(1).
func (e *QueryExpectation) Once() *QueryExpectation {
	return e.Times(1)
}

// Twice is a shorthand for Times(2).
func (e *QueryExpectation) Twice() *QueryExpectation {
	return e.Times(2)
}

// AnyTimes allows this expectation to match any number of times.
func (e *QueryExpectation) AnyTimes() *QueryExpectation {
	return e.Times(-1)
}

func (ws *WireServer) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var req protocol.QueryRequest
	_ = json.Unmarshal(body, &req)

	ws.mu.Lock()
	ws.requests = append(ws.requests, RecordedRequest{
		Path:  r.URL.Path,
		Body:  body,
		Query: req.Query,
	})

	if req.Query == "" {
		ws.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, []byte(`{"error": "Query is required"}`))
		return
	}

	for _, exp := range ws.expectations {
		if exp.query == req.Query && (exp.times == -1 || exp.actualCalls < exp.times) {
			exp.actualCalls++
			status, respBody := exp.status, exp.body
			ws.mu.Unlock()
			writeJSON(w, status, respBody)
			return
		}
	}

	if ws.strict {
		ws.unexpected = append(ws.unexpected, req.Query)
		ws.mu.Unlock()
		body, _ := json.Marshal(map[string]string{"error": "unexpected statement: " + req.Query})
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	ws.mu.Unlock()

	writeJSON(w, http.StatusOK, []byte(`{"result": []}`))
}

func (ws *WireServer) handleClose(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ws.mu.Lock()
	ws.closeCalls++
	ws.requests = append(ws.requests, RecordedRequest{
		Path: r.URL.Path,
		Body: body,
	})
	ws.mu.Unlock()

	writeJSON(w, http.StatusOK, []byte(`{"message": "session closed"}`))
}

func (ws *WireServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var req protocol.ConvertRequest
	_ = json.Unmarshal(body, &req)

	ws.mu.Lock()
	ws.requests = append(ws.requests, RecordedRequest{
		Path:  r.URL.Path,
		Body:  body,
		Query: req.Query,
	})
	fn := ws.convertFn
	ws.mu.Unlock()

	converted := req.Query
	if fn != nil {
		var err error
		converted, err = fn(req.SourceDialect, req.TargetDialect, req.Query)
		if err != nil {
			respBody, _ := json.Marshal(map[string]string{"error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, respBody)
			return
		}
	}

	respBody, _ := json.Marshal(map[string]string{"converted_query": converted})
	writeJSON(w, http.StatusOK, respBody)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// VerifyExpectations checks that every expectation was met and, in
// strict mode, that no unexpected statements arrived. Call it at the
// end of each test.
func (ws *WireServer) VerifyExpectations(t testing.TB) {
	t.Helper()
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for i, exp := range ws.expectations {
		if exp.times != -1 && exp.actualCalls != exp.times {
			t.Errorf("expectation %d (%q): expected %d calls, got %d",
				i, exp.query, exp.times, exp.actualCalls)
		}
	}
	for _, q := range ws.unexpected {
		t.Errorf("unexpected statement: %q", q)
	}
}

// AssertExpectations is an alias for VerifyExpectations (Jest-style naming).
func (ws *WireServer) AssertExpectations(t testing.TB) {
	ws.VerifyExpectations(t)
}

// Requests returns all recorded requests.
// Useful for custom assertions.
func (ws *WireServer) Requests() []RecordedRequest {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]RecordedRequest{}, ws.requests...)
}

// QueryCalls returns the number of statements received.
func (ws *WireServer) QueryCalls() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	count := 0
	for _, r := range ws.requests {
		if r.Path == protocol.EndpointExecuteQuery {
			count++
		}
	}
	return count
}

// CloseCalls returns the number of session close requests received.
func (ws *WireServer) CloseCalls() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.closeCalls
}

// Reset clears all expectations and recorded requests.
// Useful when reusing a server across multiple test cases.
func (ws *WireServer) Reset() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.expectations = make([]*QueryExpectation, 0)
	ws.requests = make([]RecordedRequest, 0)
	ws.unexpected = nil
	ws.closeCalls = 0
}

// Close shuts the server down early. Tests normally rely on the
// automatic cleanup instead.
func (ws *WireServer) Close() {
	ws.server.Close()
}

// ToJSON is a helper that converts a value to JSON for assertions.
func ToJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}
