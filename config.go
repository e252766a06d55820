package lumio

import (
	"errors"
	"strings"
	"time"
)

// Config is the full client configuration tree.
//
// Config instances are intended to be set up during initialization and then
// treated as immutable; Build clones the value it receives.
type Config struct {
	API       APIConfig
	Session   SessionConfig
	Transport TransportConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// APIConfig locates and shapes the REST collaborator.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://lms.example.com/api/v1".
	BaseURL string
	// Timeout bounds each request including the pipeline's single retry.
	Timeout time.Duration
	// UserAgent is sent on every request when non-empty.
	UserAgent string
	// PageSize bounds offset/limit listing pages. Zero means 100.
	PageSize int
}

// SessionConfig shapes token persistence and proactive refresh.
type SessionConfig struct {
	// RefreshSkew is the window before access-token expiry in which the
	// session manager refreshes proactively instead of waiting for a 401.
	// Zero disables the proactive path.
	RefreshSkew time.Duration
	// TokenFile, when set and no explicit store is injected, selects the
	// file-backed token store at this path.
	TokenFile string
	// RedisPrefix namespaces the Redis token store keys when a Redis client
	// is injected. Empty means "lumio".
	RedisPrefix string
	// RedisTTL bounds how long an untouched pair survives in Redis; zero
	// keeps it until logout.
	RedisTTL time.Duration
}

// TransportConfig shapes the authorization pipeline.
type TransportConfig struct {
	// DisableRefreshRetry turns off the 401 refresh-and-retry, leaving only
	// bearer attachment and 403/5xx handling. Meant for test harnesses.
	DisableRefreshRetry bool
}

// AuditConfig shapes the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the buffer is saturated instead of
	// blocking the emitting operation.
	DropIfFull bool
}

// MetricsConfig shapes the in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:  30 * time.Second,
			PageSize: 100,
		},
		Session: SessionConfig{
			RefreshSkew: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate checks the configuration for values Build must refuse.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API.BaseURL required")
	}
	if c.API.Timeout < 0 {
		return errors.New("API.Timeout must not be negative")
	}
	if c.API.PageSize < 0 || c.API.PageSize > 1000 {
		return errors.New("API.PageSize out of range")
	}
	if c.Session.RefreshSkew < 0 || c.Session.RefreshSkew > 10*time.Minute {
		return errors.New("Session.RefreshSkew out of range")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}

func cloneConfig(c Config) Config {
	// All fields are values; assignment is a deep copy today. Kept as a
	// function so future slice/map fields get one place to handle.
	return c
}
