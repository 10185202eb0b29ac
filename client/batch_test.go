package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/querywire/querywire-go/transport"
	"github.com/querywire/querywire-go/transport/mock"
)

// scriptedTransport answers each round trip from a fixed script, one step
// per request, so batch tests can fail specific entries.
type scriptedTransport struct {
	steps []scriptStep
	calls int
	urls  []string
}

type scriptStep struct {
	body string
	err  error
}

func (s *scriptedTransport) RoundTrip(ctx context.Context, req transport.Request, sink transport.Sink) (int, error) {
	if s.calls >= len(s.steps) {
		return 0, fmt.Errorf("unexpected request %d: %s", s.calls, req.Body)
	}
	step := s.steps[s.calls]
	s.calls++
	s.urls = append(s.urls, req.URL)

	if step.err != nil {
		return 0, step.err
	}
	if err := sink([]byte(step.body)); err != nil {
		return 0, err
	}
	return 200, nil
}

func (s *scriptedTransport) Close() error { return nil }

func (s *scriptedTransport) IsHealthy() bool { return true }

func (s *scriptedTransport) GetMetrics() transport.TransportMetrics {
	return transport.TransportMetrics{}
}

func newScriptedClient(t *testing.T, st *scriptedTransport) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.LogLevel = "ERROR"
	opts.TransportFactory = func(ctx context.Context) (transport.Transport, error) {
		return st, nil
	}
	c := NewClient(&opts)
	if err := c.Connect(context.Background(), "http://localhost:9000"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return c
}

func TestBatchExecutesInOrder(t *testing.T) {
	st := &scriptedTransport{steps: []scriptStep{
		{body: `{"result": [[1]]}`},
		{body: `{"result": [[2]]}`},
		{body: `{"result": [[3]]}`},
	}}
	c := newScriptedClient(t, st)

	results, err := c.NewBatch().
		Add("SELECT 1").
		Add("SELECT 2").
		Add("SELECT 3").
		Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{`{"result": [[1]]}`, `{"result": [[2]]}`, `{"result": [[3]]}`} {
		if results[i].Index != i {
			t.Errorf("results[%d].Index = %d, want %d", i, results[i].Index, i)
		}
		if string(results[i].Data) != want {
			t.Errorf("results[%d].Data = %q, want %q", i, results[i].Data, want)
		}
		if results[i].Err != nil {
			t.Errorf("results[%d].Err = %v, want nil", i, results[i].Err)
		}
	}
	if st.calls != 3 {
		t.Errorf("transport saw %d requests, want 3", st.calls)
	}
}

func TestBatchOnDisconnectedClient(t *testing.T) {
	mt := mock.NewMockTransport()
	c := newTestClient(mt)

	_, err := c.NewBatch().Add("SELECT 1").Execute(context.Background())
	if err == nil {
		t.Fatal("Execute on disconnected client succeeded, want error")
	}

	var preErr *PreconditionError
	if !errors.As(err, &preErr) || preErr.Code != "E_NOT_CONNECTED" {
		t.Errorf("error = %v, want E_NOT_CONNECTED precondition", err)
	}
	if mt.GetRoundTripCallCount() != 0 {
		t.Error("disconnected batch reached the transport")
	}
}

func TestBatchEmptyFails(t *testing.T) {
	mt := mock.NewMockTransport()
	c := newConnectedClient(t, mt, "http://localhost:9000")

	_, err := c.NewBatch().Execute(context.Background())
	if err == nil {
		t.Fatal("empty batch succeeded, want error")
	}

	var preErr *PreconditionError
	if !errors.As(err, &preErr) || preErr.Code != "E_EMPTY_BATCH" {
		t.Errorf("error = %v, want E_EMPTY_BATCH precondition", err)
	}
	if mt.GetRoundTripCallCount() != 0 {
		t.Error("empty batch reached the transport")
	}
}

func TestBatchBlankEntryFailsUpfront(t *testing.T) {
	// One blank entry poisons the whole batch before any wire traffic,
	// even when other entries are valid.
	mt := mock.NewMockTransport()
	c := newConnectedClient(t, mt, "http://localhost:9000")

	_, err := c.NewBatch().
		Add("SELECT 1").
		Add("   ").
		Add("SELECT 3").
		Execute(context.Background())
	if err == nil {
		t.Fatal("batch with blank entry succeeded, want error")
	}

	var preErr *PreconditionError
	if !errors.As(err, &preErr) || preErr.Code != "E_EMPTY_QUERY" {
		t.Fatalf("error = %v, want E_EMPTY_QUERY precondition", err)
	}
	if idx, ok := preErr.Details["index"]; !ok || idx != 1 {
		t.Errorf("error index = %v, want 1", idx)
	}
	if mt.GetRoundTripCallCount() != 0 {
		t.Error("invalid batch reached the transport")
	}
}

func TestBatchContinuesPastFailures(t *testing.T) {
	st := &scriptedTransport{steps: []scriptStep{
		{body: `{"result": [[1]]}`},
		{err: fmt.Errorf("connection reset by peer")},
		{body: `{"result": [[3]]}`},
	}}
	c := newScriptedClient(t, st)

	results, err := c.NewBatch().
		Add("SELECT 1").
		Add("SELECT 2").
		Add("SELECT 3").
		Execute(context.Background())

	if err == nil {
		t.Fatal("batch with failed entry returned nil error, want aggregate error")
	}
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("error type = %T, want *BatchError", err)
	}
	if batchErr.FailedCount != 1 || batchErr.TotalCount != 3 {
		t.Errorf("aggregate counts = %d/%d, want 1/3", batchErr.FailedCount, batchErr.TotalCount)
	}
	if batchErr.FirstFailure != 1 {
		t.Errorf("FirstFailure = %d, want 1", batchErr.FirstFailure)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || string(results[0].Data) != `{"result": [[1]]}` {
		t.Errorf("entry 0 = (%q, %v), want success", results[0].Data, results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("entry 1 has nil Err, want transport failure")
	}
	if results[2].Err != nil || string(results[2].Data) != `{"result": [[3]]}` {
		t.Errorf("entry 2 = (%q, %v), want success after earlier failure", results[2].Data, results[2].Err)
	}
	if st.calls != 3 {
		t.Errorf("transport saw %d requests, want all 3", st.calls)
	}
}

func TestBatchFailFastSkipsRemaining(t *testing.T) {
	st := &scriptedTransport{steps: []scriptStep{
		{body: `{"result": [[1]]}`},
		{err: fmt.Errorf("connection reset by peer")},
	}}
	c := newScriptedClient(t, st)

	results, err := c.NewBatch().
		Add("SELECT 1").
		Add("SELECT 2").
		Add("SELECT 3").
		FailFast().
		Execute(context.Background())

	if err == nil {
		t.Fatal("fail-fast batch returned nil error, want aggregate error")
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[1].Err == nil {
		t.Error("entry 1 has nil Err, want transport failure")
	}
	if !results[2].Skipped {
		t.Error("entry 2 not marked Skipped after fail-fast abort")
	}
	if results[2].Err != nil || results[2].Data != nil {
		t.Error("skipped entry carries data or error")
	}
	if st.calls != 2 {
		t.Errorf("transport saw %d requests, want 2 (third skipped)", st.calls)
	}
}

func TestBatchServerErrorEnvelopeIsNotAFailure(t *testing.T) {
	// A translator-reported error arrives in the body of a completed
	// exchange. The entry carries the envelope verbatim and counts as
	// executed, so the batch reports overall success.
	st := &scriptedTransport{steps: []scriptStep{
		{body: `{"result": [[1]]}`},
		{body: `{"error": "relation \"missing\" does not exist"}`},
	}}
	c := newScriptedClient(t, st)

	results, err := c.NewBatch().
		Add("SELECT 1").
		Add("SELECT * FROM missing").
		Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if results[1].Err != nil {
		t.Errorf("entry with error envelope has Err = %v, want nil", results[1].Err)
	}
	if string(results[1].Data) != `{"error": "relation \"missing\" does not exist"}` {
		t.Errorf("entry body = %q, want the envelope verbatim", results[1].Data)
	}
}

func TestBatchLen(t *testing.T) {
	c := newTestClient(mock.NewMockTransport())

	b := c.NewBatch()
	if b.Len() != 0 {
		t.Errorf("empty batch Len = %d, want 0", b.Len())
	}
	b.Add("SELECT 1").Add("SELECT 2")
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
}
