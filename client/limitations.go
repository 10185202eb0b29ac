package client

// Translator Protocol Limitations
//
// This document tracks limitations of the wire translator protocol that
// affect client behavior. The translator accepts one statement per POST
// and returns the whole result as a single JSON document.
//
// Last Updated: August 2026

// Statement Limitations

// TODO: Parameterized queries not supported. The wire format carries a
// single query string with no parameter slots, so values must be
// interpolated into the statement text by the caller (injection risk).
// Track translator support for a {"query": ..., "params": [...]} shape.
// Workaround: quote and escape values in application code, or restrict
// query construction to trusted inputs.

// TODO: Multi-statement requests not supported. The translator executes
// exactly one statement per POST; a semicolon-separated script is passed
// through to the database as-is and fails on most servers.
// Workaround: Batch, which issues one POST per statement in order.

// Transaction Limitations

// TODO: Transactions do not span requests. The translator runs its
// database connection in autocommit mode, so every POST commits
// independently and BEGIN/COMMIT sent as separate queries have no
// combined effect.
// Workaround: keep multi-statement consistency requirements server-side
// (stored procedures) or redesign around single-statement operations.

// TODO: The translator holds one database connection shared by all HTTP
// callers, and POST /close closes it for everyone. CloseSession is
// therefore a deployment-level operation, not a per-handle one.

// Result Limitations

// TODO: Streaming result sets not supported. The translator materializes
// the entire result before responding, and the client accumulates the
// whole body in memory. Large results are bounded only by memory on both
// sides.

// TODO: Column names and types are not included in results. Rows come
// back as positional arrays; DESCRIBE exposes only column name and data
// type, so constraints like NOT NULL and UNIQUE are invisible to
// introspection.

// TODO: Errors are reported as message strings without SQLSTATE codes,
// so clients cannot distinguish, say, a unique violation from a syntax
// error without parsing the message text.

// Dialect Limitations

// TODO: SHOW DATABASES, SHOW TABLES and DESCRIBE are the only rewritten
// statements, matched by exact leading keywords. Other MySQL-isms
// (SHOW COLUMNS, SHOW INDEX, EXPLAIN FORMAT=JSON) pass through unchanged
// and fail on the PostgreSQL side.

// Feature Availability Matrix
//
// | Feature                    | Status      | Client Support |
// |----------------------------|-------------|----------------|
// | Single-statement query     | ✅ Available | Implemented    |
// | Batch (sequential POSTs)   | ✅ Available | Implemented    |
// | SHOW/DESCRIBE rewrites     | ✅ Available | Implemented    |
// | Dialect conversion         | ✅ Available | Implemented    |
// | Parameterized queries      | ❌ Blocked   | TODO           |
// | Multi-statement POST       | ❌ Blocked   | TODO           |
// | Transactions across POSTs  | ❌ Blocked   | Not planned    |
// | Result streaming           | ❌ Blocked   | Not planned    |
// | Column metadata in results | ❌ Blocked   | TODO           |
