package client

import (
	"encoding/json"
	"fmt"
)

// EnableDebugMode enables debug mode with verbose logging and stack traces.
func (c *Client) EnableDebugMode() {
	c.debugMode.Store(true)
	c.logger.Info("debug mode enabled")
}

// DisableDebugMode disables debug mode.
func (c *Client) DisableDebugMode() {
	c.debugMode.Store(false)
	c.logger.Info("debug mode disabled")
}

// IsDebugMode returns whether debug mode is currently enabled.
func (c *Client) IsDebugMode() bool {
	return c.debugMode.Load()
}

// GetDebugInfo returns a comprehensive snapshot of client state for debugging.
func (c *Client) GetDebugInfo() map[string]interface{} {
	info := map[string]interface{}{
		"version":   Version,
		"state":     c.GetState().String(),
		"debugMode": c.IsDebugMode(),
		"baseURL":   redactURL(c.baseURL),
	}

	// Transport counters
	if c.transport != nil {
		metrics := c.transport.GetMetrics()
		transportInfo := map[string]interface{}{
			"totalRequests":  metrics.TotalRequests,
			"totalErrors":    metrics.TotalErrors,
			"averageLatency": metrics.AverageLatency.String(),
			"bytesSent":      metrics.BytesSent,
			"bytesReceived":  metrics.BytesReceived,
			"healthy":        c.transport.IsHealthy(),
		}
		if metrics.LastError != nil {
			transportInfo["lastError"] = metrics.LastError.Error()
			transportInfo["lastErrorTime"] = metrics.LastErrorTime.Format("2006-01-02T15:04:05.000Z07:00")
		}
		info["transport"] = transportInfo
	}

	// Options
	info["options"] = map[string]interface{}{
		"defaultTimeoutMs":     c.opts.DefaultTimeoutMs,
		"userAgent":            c.opts.UserAgent,
		"healthCheckInterval":  c.opts.HealthCheckInterval.String(),
		"maxReconnectAttempts": c.opts.MaxReconnectAttempts,
		"schemaCacheTTL":       c.opts.SchemaCacheTTL.String(),
		"poolMinSize":          c.opts.PoolMinSize,
		"poolMaxSize":          c.opts.PoolMaxSize,
	}

	// Last transition
	lastTransition := c.stateMgr.GetLastTransition()
	info["lastTransition"] = map[string]interface{}{
		"from":      lastTransition.From.String(),
		"to":        lastTransition.To.String(),
		"timestamp": lastTransition.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		"duration":  lastTransition.Duration.String(),
	}

	return info
}

// DumpDebugInfoJSON returns debug info as formatted JSON string.
func (c *Client) DumpDebugInfoJSON() string {
	info := c.GetDebugInfo()
	bytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal debug info: %s"}`, err.Error())
	}
	return string(bytes)
}

// debugPreviewLimit caps how much of a response body is written to the
// logs when debug mode is on.
const debugPreviewLimit = 1000

// previewBody renders a response body for log output, truncating large
// bodies so a bulk result cannot flood the log stream.
func previewBody(body []byte) string {
	if len(body) <= debugPreviewLimit {
		return string(body)
	}
	return fmt.Sprintf("%s... (%d bytes total)", body[:debugPreviewLimit], len(body))
}
