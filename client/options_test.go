package client

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.DefaultTimeoutMs != 0 {
		t.Errorf("expected DefaultTimeoutMs=0, got %d", opts.DefaultTimeoutMs)
	}

	if opts.DebugMode != false {
		t.Errorf("expected DebugMode=false, got %v", opts.DebugMode)
	}

	if opts.LogLevel != "INFO" {
		t.Errorf("expected LogLevel=INFO, got %s", opts.LogLevel)
	}

	if opts.HealthCheckInterval != 30*time.Second {
		t.Errorf("expected HealthCheckInterval=30s, got %v", opts.HealthCheckInterval)
	}

	if opts.MaxReconnectAttempts != 10 {
		t.Errorf("expected MaxReconnectAttempts=10, got %d", opts.MaxReconnectAttempts)
	}

	if opts.SchemaCacheTTL != 5*time.Minute {
		t.Errorf("expected SchemaCacheTTL=5m, got %v", opts.SchemaCacheTTL)
	}

	if opts.PoolMinSize != 1 || opts.PoolMaxSize != 1 {
		t.Errorf("expected pool size defaults 1/1, got %d/%d", opts.PoolMinSize, opts.PoolMaxSize)
	}

	if opts.ConversionCacheSize != 0 {
		t.Errorf("expected ConversionCacheSize=0, got %d", opts.ConversionCacheSize)
	}

	if opts.UserAgent != "querywire-go/"+Version {
		t.Errorf("expected versioned user agent, got %s", opts.UserAgent)
	}
}

func TestCustomOptions(t *testing.T) {
	opts := ClientOptions{
		DefaultTimeoutMs:    5000,
		DebugMode:           true,
		LogLevel:            "DEBUG",
		ConversionCacheSize: 64,
	}

	if opts.DefaultTimeoutMs != 5000 {
		t.Errorf("expected DefaultTimeoutMs=5000, got %d", opts.DefaultTimeoutMs)
	}

	if opts.DebugMode != true {
		t.Errorf("expected DebugMode=true, got %v", opts.DebugMode)
	}

	if opts.ConversionCacheSize != 64 {
		t.Errorf("expected ConversionCacheSize=64, got %d", opts.ConversionCacheSize)
	}
}

func TestNewClientFillsZeroOptions(t *testing.T) {
	c := NewClient(&ClientOptions{LogLevel: "ERROR"})

	if c.opts.UserAgent != "querywire-go/"+Version {
		t.Errorf("expected user agent default, got %q", c.opts.UserAgent)
	}

	if c.convCache != nil {
		t.Error("conversion cache should stay disabled by default")
	}
}

func TestNewClientNilOptions(t *testing.T) {
	c := NewClient(nil)

	if c.opts.LogLevel != "INFO" {
		t.Errorf("expected LogLevel=INFO, got %s", c.opts.LogLevel)
	}

	if c.GetState() != DISCONNECTED {
		t.Errorf("expected new client DISCONNECTED, got %s", c.GetState())
	}
}
