package client

import (
	"context"
	"sync/atomic"
	"time"
)

// HookContext carries information about the wire operation being
// executed. It is passed to hooks to allow inspection and modification.
type HookContext struct {
	// Operation names the client method driving the request (Query,
	// Exec, Batch).
	Operation string

	// Query is the raw statement being sent
	Query string

	// StartTime is when the operation began
	StartTime time.Time

	// Metadata allows hooks to store arbitrary data for passing between Before/After
	Metadata map[string]interface{}

	// TraceID is the unique identifier for this operation
	TraceID string

	// Status is the HTTP status of the exchange (available in After hook,
	// zero when the request never completed)
	Status int

	// Result stores the raw response body (set after execution, available in After hook)
	Result []byte

	// Error stores any error that occurred (available in After hook)
	Error error

	// Duration is the execution time (available in After hook)
	Duration time.Duration
}

// Hook is the interface that all hooks must implement.
// Hooks can inspect, modify, or abort wire operations.
type Hook interface {
	// Name returns the unique name of this hook
	Name() string

	// Before is called before the request is sent.
	// Returning an error aborts the operation and returns the error;
	// nothing reaches the transport.
	Before(ctx context.Context, hookCtx *HookContext) error

	// After is called once the exchange finished (even if it failed).
	// When the exchange succeeded, a non-nil return becomes the
	// operation's error. When the transport failed, the transport error
	// wins and After errors are only logged.
	After(ctx context.Context, hookCtx *HookContext) error
}

// RegisterHook adds a hook to the client's hook chain.
// Hooks are executed in FIFO order (first registered, first executed).
// If a hook with the same name already exists, it is replaced in place,
// keeping its position in the chain.
func (c *Client) RegisterHook(hook Hook) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()

	for i, existing := range c.hooks {
		if existing.Name() == hook.Name() {
			c.hooks[i] = hook
			c.logger.Info("hook replaced", String("hook", hook.Name()))
			return
		}
	}

	c.hooks = append(c.hooks, hook)
	c.logger.Info("hook registered", String("hook", hook.Name()), Int("order", len(c.hooks)-1))
}

// UnregisterHook removes a hook by name.
// Returns true if the hook was found and removed, false otherwise.
func (c *Client) UnregisterHook(name string) bool {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()

	for i, existing := range c.hooks {
		if existing.Name() == name {
			// Remove hook while preserving order of others
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			c.logger.Info("hook unregistered", String("hook", name))
			return true
		}
	}

	return false
}

// GetHooks returns the names of all registered hooks in execution order.
func (c *Client) GetHooks() []string {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()

	names := make([]string, len(c.hooks))
	for i, hook := range c.hooks {
		names[i] = hook.Name()
	}
	return names
}

// executeBeforeHooks runs all Before hooks in order.
// If any hook returns an error, execution stops and the error is returned.
func (c *Client) executeBeforeHooks(ctx context.Context, hookCtx *HookContext) error {
	c.hooksMu.RLock()
	hooks := make([]Hook, len(c.hooks))
	copy(hooks, c.hooks)
	c.hooksMu.RUnlock()

	for _, hook := range hooks {
		if err := hook.Before(ctx, hookCtx); err != nil {
			c.logger.Debug("hook aborted operation",
				String("hook", hook.Name()),
				String("operation", hookCtx.Operation),
				Error("error", err))
			return err
		}
	}

	return nil
}

// executeAfterHooks runs all After hooks in order.
// All hooks are executed even if one returns an error.
// The last error returned (if any) is returned.
func (c *Client) executeAfterHooks(ctx context.Context, hookCtx *HookContext) error {
	c.hooksMu.RLock()
	hooks := make([]Hook, len(c.hooks))
	copy(hooks, c.hooks)
	c.hooksMu.RUnlock()

	var lastErr error
	for _, hook := range hooks {
		if err := hook.After(ctx, hookCtx); err != nil {
			c.logger.Debug("hook returned error in After",
				String("hook", hook.Name()),
				String("operation", hookCtx.Operation),
				Error("error", err))
			lastErr = err
		}
	}

	return lastErr
}

// ============================================================================
// LoggingHook - Logs wire operations
// ============================================================================

// LoggingHook logs wire operations with configurable detail levels.
type LoggingHook struct {
	logger       Logger
	logQueries   bool // Log raw statements
	logResults   bool // Log response bodies
	logDurations bool // Log execution times
}

// NewLoggingHook creates a new logging hook with the given logger.
func NewLoggingHook(logger Logger, logQueries, logResults, logDurations bool) *LoggingHook {
	return &LoggingHook{
		logger:       logger,
		logQueries:   logQueries,
		logResults:   logResults,
		logDurations: logDurations,
	}
}

func (h *LoggingHook) Name() string {
	return "logging"
}

func (h *LoggingHook) Before(ctx context.Context, hookCtx *HookContext) error {
	if h.logQueries {
		h.logger.Debug("executing statement",
			String("operation", hookCtx.Operation),
			String("query", hookCtx.Query),
			String("trace_id", hookCtx.TraceID))
	}
	return nil
}

func (h *LoggingHook) After(ctx context.Context, hookCtx *HookContext) error {
	fields := []Field{
		String("operation", hookCtx.Operation),
		String("trace_id", hookCtx.TraceID),
	}

	if h.logDurations {
		fields = append(fields, Duration("duration", hookCtx.Duration))
	}

	if hookCtx.Error != nil {
		fields = append(fields, Error("error", hookCtx.Error))
		h.logger.Error("statement failed", fields...)
	} else {
		fields = append(fields, Int("status", hookCtx.Status))
		if h.logResults {
			fields = append(fields, String("result", previewBody(hookCtx.Result)))
		}
		h.logger.Debug("statement completed", fields...)
	}

	return nil
}

// ============================================================================
// MetricsHook - Collects performance metrics
// ============================================================================

// MetricsHook collects per-operation metrics using atomic counters.
type MetricsHook struct {
	TotalOperations atomic.Uint64
	TotalQueries    atomic.Uint64
	TotalExecs      atomic.Uint64
	TotalErrors     atomic.Uint64
	TotalBytes      atomic.Uint64
	TotalDurationNs atomic.Uint64
}

// NewMetricsHook creates a new metrics collection hook.
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

func (h *MetricsHook) Name() string {
	return "metrics"
}

func (h *MetricsHook) Before(ctx context.Context, hookCtx *HookContext) error {
	return nil
}

func (h *MetricsHook) After(ctx context.Context, hookCtx *HookContext) error {
	h.TotalOperations.Add(1)
	h.TotalDurationNs.Add(uint64(hookCtx.Duration.Nanoseconds()))

	switch hookCtx.Operation {
	case "Query":
		h.TotalQueries.Add(1)
	case "Exec":
		h.TotalExecs.Add(1)
	}

	if hookCtx.Error != nil {
		h.TotalErrors.Add(1)
	} else {
		h.TotalBytes.Add(uint64(len(hookCtx.Result)))
	}

	return nil
}

// GetStats returns current metrics as a map.
func (h *MetricsHook) GetStats() map[string]interface{} {
	totalOps := h.TotalOperations.Load()
	totalDur := h.TotalDurationNs.Load()

	avgDuration := int64(0)
	if totalOps > 0 {
		avgDuration = int64(totalDur / totalOps)
	}

	return map[string]interface{}{
		"total_operations":  totalOps,
		"total_queries":     h.TotalQueries.Load(),
		"total_execs":       h.TotalExecs.Load(),
		"total_errors":      h.TotalErrors.Load(),
		"total_bytes":       h.TotalBytes.Load(),
		"total_duration_ns": totalDur,
		"avg_duration_ns":   avgDuration,
		"avg_duration_ms":   float64(avgDuration) / 1_000_000,
		"total_duration_ms": float64(totalDur) / 1_000_000,
	}
}

// Reset clears all metrics.
func (h *MetricsHook) Reset() {
	h.TotalOperations.Store(0)
	h.TotalQueries.Store(0)
	h.TotalExecs.Store(0)
	h.TotalErrors.Store(0)
	h.TotalBytes.Store(0)
	h.TotalDurationNs.Store(0)
}
