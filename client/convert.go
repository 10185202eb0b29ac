package client

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/querywire/querywire-go/protocol"
	"github.com/querywire/querywire-go/transport"
)

// Engine selects which converter backend handles a dialect conversion.
type Engine string

const (
	// EngineSQLGlot converts through the translator's parser-based
	// transpiler. Deterministic and fast.
	EngineSQLGlot Engine = "sqlglot"

	// EngineGenAI converts through the translator's language-model
	// backend. Handles constructs the transpiler cannot, at the cost of
	// latency and nondeterminism.
	EngineGenAI Engine = "gen-ai"
)

// Dialect names the converter accepts.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectOracle   = "oracle"
	DialectMSSQL    = "mssql"
)

// Convert asks the translator to rewrite a statement from one SQL
// dialect to another and returns the converted text. The converted
// query is returned as the server sent it; callers decide whether to
// execute it.
func (c *Client) Convert(ctx context.Context, sourceDialect, targetDialect, query string, engine Engine) (string, error) {
	if state := c.stateMgr.GetState(); state != CONNECTED {
		return "", ErrNotConnected("Convert", state)
	}
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery("Convert")
	}
	if sourceDialect == "" || targetDialect == "" {
		return "", &PreconditionError{
			Code:    "E_MISSING_DIALECT",
			Type:    "PRECONDITION_ERROR",
			Message: "source and target dialects are required",
			Details: map[string]interface{}{
				"sourceDialect": sourceDialect,
				"targetDialect": targetDialect,
			},
			StackTrace: captureStackTrace(),
			Timestamp:  time.Now(),
		}
	}

	var path string
	switch engine {
	case EngineSQLGlot:
		path = protocol.EndpointConvertSQLGlot
	case EngineGenAI:
		path = protocol.EndpointConvertGenAI
	default:
		return "", &PreconditionError{
			Code:    "E_UNKNOWN_ENGINE",
			Type:    "PRECONDITION_ERROR",
			Message: "unknown conversion engine",
			Details: map[string]interface{}{
				"engine": string(engine),
			},
			StackTrace: captureStackTrace(),
			Timestamp:  time.Now(),
		}
	}

	var cacheKey string
	if c.convCache != nil {
		cacheKey = conversionKey(engine, sourceDialect, targetDialect, query)
		if converted, ok := c.convCache.Get(cacheKey); ok {
			c.logger.Debug("conversion cache hit",
				String("engine", string(engine)),
				String("fingerprint", QueryFingerprint(query)))
			return converted, nil
		}
	}

	body, err := c.codec.EncodeConvert(protocol.ConvertRequest{
		SourceDialect: sourceDialect,
		TargetDialect: targetDialect,
		Query:         query,
	})
	if err != nil {
		return "", ErrRequestEncoding("Convert", err)
	}

	traceID := uuid.New().String()
	ctx = ContextWithTraceID(ctx, traceID)
	endpoint := c.baseURL + path

	if c.opts.DefaultTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.opts.DefaultTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	var buf bytes.Buffer
	_, rtErr := c.transport.RoundTrip(ctx, transport.Request{
		Method:  "POST",
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": protocol.ContentTypeJSON},
		Body:    body,
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
	if msg := env.ErrorText(); msg != "" {
		return "", ErrServerReported(query, msg)
	}

	if c.convCache != nil {
		c.convCache.Put(cacheKey, env.ConvertedQuery)
	}

	c.logger.Info("query converted",
		String("trace_id", traceID),
		String("engine", string(engine)),
		String("source", sourceDialect),
		String("target", targetDialect),
		String("fingerprint", QueryFingerprint(query)),
		Duration("duration", time.Since(start)))

	return env.ConvertedQuery, nil
}
