package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Wire endpoints. Paths are joined to the base URL verbatim, so a base
// URL of "http://host:9000" yields "http://host:9000/execute_query".
const (
	EndpointExecuteQuery   = "/execute_query"
	EndpointClose          = "/close"
	EndpointConvertSQLGlot = "/convert-query-sqlglot"
	EndpointConvertGenAI   = "/convert-query-gen-ai"
)

// ContentTypeJSON is the content type for every request body on this wire.
const ContentTypeJSON = "application/json"

// QueryRequest is the body POSTed to EndpointExecuteQuery.
type QueryRequest struct {
	Query string `json:"query"`
}

// ConvertRequest is the body POSTed to the dialect conversion endpoints.
type ConvertRequest struct {
	SourceDialect string `json:"source_dialect"`
	TargetDialect string `json:"target_dialect"`
	Query         string `json:"query"`
}

// Envelope is the response shape the translator sends back. Exactly one
// of the fields is populated per response: Result rows for a successful
// query, Error for a failed one, Message for lifecycle endpoints, and
// ConvertedQuery for the conversion endpoints. Detail carries the error
// text of converter deployments that report failures that way instead
// of through Error.
type Envelope struct {
	Result         json.RawMessage `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	Message        string          `json:"message,omitempty"`
	ConvertedQuery string          `json:"converted_query,omitempty"`
	Detail         string          `json:"detail,omitempty"`
}

// ErrorText returns the server-reported failure text regardless of
// which field carried it, or "" when the envelope reports none.
func (e *Envelope) ErrorText() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// Codec defines the interface for encoding requests and decoding
// response envelopes.
type Codec interface {
	// EncodeQuery serializes a query into a request body
	EncodeQuery(query string) ([]byte, error)

	// EncodeConvert serializes a dialect conversion request
	EncodeConvert(req ConvertRequest) ([]byte, error)

	// DecodeEnvelope parses a response body into an Envelope
	DecodeEnvelope(data []byte) (*Envelope, error)
}

// WireCodec implements the Codec interface for the translator wire
// protocol. Request bodies are real JSON documents produced by the
// encoder, so queries containing quotes, backslashes or control
// characters survive the trip intact, and there is no upper bound on
// query length.
type WireCodec struct {
	// Buffer pool to reduce allocations on the encode path
	bufPool sync.Pool
}

// NewWireCodec creates a new codec for the translator protocol.
func NewWireCodec() *WireCodec {
	return &WireCodec{
		bufPool: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
	}
}

// EncodeQuery serializes a query into the single-key JSON body the
// translator expects. HTML escaping is disabled so comparison operators
// in SQL text ("a < b") are sent as written.
func (c *WireCodec) EncodeQuery(query string) ([]byte, error) {
	return c.encode(QueryRequest{Query: query})
}

// EncodeConvert serializes a dialect conversion request.
func (c *WireCodec) EncodeConvert(req ConvertRequest) ([]byte, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("convert request requires a query")
	}
	return c.encode(req)
}

// EncodeEmpty returns the body for endpoints that take no parameters,
// such as EndpointClose.
func (c *WireCodec) EncodeEmpty() []byte {
	return []byte("{}")
}

func (c *WireCodec) encode(v interface{}) ([]byte, error) {
	buf := c.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	// Encoder appends a trailing newline the wire does not want.
	data := bytes.TrimRight(buf.Bytes(), "\n")

	// Copy out of the pooled buffer before returning it
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// DecodeEnvelope parses a response body. The translator always answers
// with a JSON object; anything else is reported as an envelope error so
// callers can surface the raw body themselves.
func (c *WireCodec) DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, EnvelopeError(fmt.Sprintf("response is not a JSON envelope: %v", err))
	}
	return &env, nil
}
