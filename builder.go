package lumio

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumioedu/lumio-go/api"
	"github.com/lumioedu/lumio-go/internal/transport"
	"github.com/lumioedu/lumio-go/jwt"
	"github.com/lumioedu/lumio-go/tokenstore"
)

// Builder assembles a [Client]. Zero or one of each With* call, then Build
// exactly once. Builders are not safe for concurrent use.
type Builder struct {
	config    Config
	store     tokenstore.Store
	redis     *redis.Client
	navigator Navigator
	sink      AuditSink
	base      http.RoundTripper
	built     bool
}

// New starts a Builder with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the API root.
func (b *Builder) WithBaseURL(u string) *Builder {
	b.config.API.BaseURL = u
	return b
}

// WithTimeout bounds each request, including the pipeline's single retry.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	b.config.API.Timeout = d
	return b
}

// WithTokenStore injects the token store. Takes precedence over WithRedis
// and Session.TokenFile.
func (b *Builder) WithTokenStore(s tokenstore.Store) *Builder {
	b.store = s
	return b
}

// WithRedis selects the Redis-backed token store on the given client.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithNavigator installs the login/home redirect receiver.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithAuditSink installs the audit sink. Auditing must also be enabled in
// the configuration.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	b.sink = s
	return b
}

// WithBaseTransport replaces the underlying RoundTripper beneath the
// authorization pipeline. Meant for tests and instrumented transports.
func (b *Builder) WithBaseTransport(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram. Requires
// metrics to be enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the token store, the two API
// clients and the authorization pipeline, and returns a ready Client. It
// performs no I/O; call [Client.RestoreSession] to resolve the startup
// session.
func (b *Builder) Build() (*Client, error) {
	if b == nil {
		return nil, errors.New("lumio: nil builder")
	}
	if b.built {
		return nil, errors.New("lumio: builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lumio: invalid config: %w", err)
	}

	store, err := b.selectStore(cfg)
	if err != nil {
		return nil, err
	}

	navigator := b.navigator
	if navigator == nil {
		navigator = NoOpNavigator{}
	}

	client := &Client{
		config:    cfg,
		store:     store,
		navigator: navigator,
		audit:     newAuditDispatcher(cfg.Audit, b.sink),
		metrics:   NewMetrics(cfg.Metrics),
		inspector: jwt.NewInspector(),
		loading:   true,
		restored:  make(chan struct{}),
	}

	bare, err := api.New(api.Config{
		BaseURL: cfg.API.BaseURL,
		HTTPClient: &http.Client{
			Transport: b.base,
			Timeout:   cfg.API.Timeout,
		},
		UserAgent: cfg.API.UserAgent,
		PageSize:  cfg.API.PageSize,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	pipeline := transport.New(transport.Options{
		Base:            b.base,
		AccessToken:     client.AccessToken,
		HasRefreshToken: client.hasRefreshToken,
		Refresh:         client.Refresh,
		ForceLogout:     client.forceLogout,
		Navigator:       navigator,
		OnRetry: func() {
			client.metricInc(MetricRetryAfterRefresh)
			client.emitAudit(nil, auditEventRetryAfterRefresh, true, client.currentUserID(), nil, nil)
		},
		OnForbidden: func(req *http.Request) {
			client.metricInc(MetricForbiddenRedirect)
			client.emitAudit(req.Context(), auditEventForbiddenRedirect, false, client.currentUserID(), nil, map[string]string{
				"path": req.URL.Path,
			})
		},
		OnServerError: func(req *http.Request, status int) {
			client.metricInc(MetricServerError)
			client.emitAudit(req.Context(), auditEventServerError, false, client.currentUserID(), nil, map[string]string{
				"path":   req.URL.Path,
				"status": strconv.Itoa(status),
			})
		},
		Observe: func(d time.Duration) {
			client.metrics.Observe(MetricRequestLatency, d)
		},
		DisableRefreshRetry: cfg.Transport.DisableRefreshRetry,
	})

	client.bare = bare
	client.piped = bare.WithHTTPClient(&http.Client{
		Transport: pipeline,
		Timeout:   cfg.API.Timeout,
	})

	b.built = true
	return client, nil
}

// selectStore picks the token store: injected store, then Redis, then the
// configured file path, then in-memory.
func (b *Builder) selectStore(cfg Config) (tokenstore.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	if b.redis != nil {
		return tokenstore.NewRedis(b.redis, cfg.Session.RedisPrefix, cfg.Session.RedisTTL)
	}
	if cfg.Session.TokenFile != "" {
		return tokenstore.NewFile(cfg.Session.TokenFile)
	}
	return tokenstore.NewMemory(), nil
}
