package lumio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/lumioedu/lumio-go/api"
	"github.com/lumioedu/lumio-go/jwt"
	"github.com/lumioedu/lumio-go/roles"
	"github.com/lumioedu/lumio-go/tokenstore"
)

// Client is the session manager: it owns the token pair and the current user
// identity, and is the only component that writes token storage. All methods
// are safe for concurrent use.
//
// Client instances are built once through [Builder.Build] and then treated
// as immutable apart from the session state they manage.
type Client struct {
	config    Config
	store     tokenstore.Store
	bare      *api.Client // no authorization pipeline; login/refresh/restore
	piped     *api.Client // full pipeline; everything else
	navigator Navigator
	audit     *auditDispatcher
	metrics   *Metrics
	inspector *jwt.Inspector

	mu         sync.RWMutex
	pair       tokenstore.Pair
	user       *UserIdentity
	loading    bool
	refreshing *refreshCall

	restored     chan struct{}
	restoredOnce sync.Once
}

// refreshCall is one in-flight refresh shared by every concurrent caller.
type refreshCall struct {
	done chan struct{}
	err  error
}

// Close flushes the audit dispatcher. The Client is unusable afterwards.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// API returns the REST collaborator whose requests run through the
// authorization pipeline. Quiz and CRUD callers go through this.
func (c *Client) API() *api.Client {
	if c == nil {
		return nil
	}
	return c.piped
}

// MetricsSnapshot returns a point-in-time copy of all client metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// RestoreSession attempts the silent startup restore: load the persisted
// pair, resolve the identity, and fall back to exactly one refresh when the
// access token is rejected or about to expire. Authentication failures are
// absorbed into the unauthenticated state and never surface; only token
// store I/O failures are returned. Always ends with Loading() == false.
func (c *Client) RestoreSession(ctx context.Context) error {
	if c == nil || c.store == nil {
		return ErrClientNotReady
	}
	defer c.finishRestore()

	pair, err := c.store.Load(ctx)
	if err != nil {
		c.setUnauthenticated()
		c.metricInc(MetricRestoreUnauthenticated)
		return err
	}
	if pair.Empty() {
		c.setUnauthenticated()
		c.metricInc(MetricRestoreUnauthenticated)
		c.emitAudit(ctx, auditEventRestoreAnonymous, false, "", nil, nil)
		return nil
	}

	c.setPair(pair)

	// An access token already inside the refresh window skips the doomed
	// identity call and goes straight to the refresh path.
	if c.config.Session.RefreshSkew > 0 &&
		c.inspector.ExpiresWithin(pair.AccessToken, c.config.Session.RefreshSkew) {
		c.restoreViaRefresh(ctx)
		return nil
	}

	me, err := c.bare.Me(ctx, pair.AccessToken)
	if err == nil {
		c.setUser(me)
		c.metricInc(MetricSessionRestored)
		c.emitAudit(ctx, auditEventSessionRestored, true, me.ID, nil, nil)
		return nil
	}

	c.restoreViaRefresh(ctx)
	return nil
}

// restoreViaRefresh is the single-refresh fallback of RestoreSession.
func (c *Client) restoreViaRefresh(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.dropSession(ctx)
		c.metricInc(MetricRestoreUnauthenticated)
		c.emitAudit(ctx, auditEventRestoreAnonymous, false, "", err, nil)
		return
	}

	me, err := c.bare.Me(ctx, c.AccessToken())
	if err != nil {
		c.dropSession(ctx)
		c.metricInc(MetricRestoreUnauthenticated)
		c.emitAudit(ctx, auditEventRestoreAnonymous, false, "", err, nil)
		return
	}

	c.setUser(me)
	c.metricInc(MetricSessionRestored)
	c.emitAudit(ctx, auditEventSessionRestored, true, me.ID, nil, nil)
}

// AwaitRestore blocks until RestoreSession has completed, so route guards
// can await the identity instead of polling the loading flag.
func (c *Client) AwaitRestore(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}
	select {
	case <-c.restored:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loading reports whether the initial restore is still in flight. While
// true, the identity accessors must not be trusted.
func (c *Client) Loading() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Login exchanges credentials for a session. A rejected login surfaces as
// [ErrInvalidCredentials] with the server's message attached; the session is
// left untouched on any failure.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if c == nil || c.bare == nil {
		return ErrClientNotReady
	}

	pair, err := c.bare.Login(ctx, api.LoginInput{Username: username, Password: password})
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, "", err, map[string]string{
			"identifier": username,
		})
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, apiErr)
		}
		return err
	}

	c.storePair(ctx, pair)

	me, err := c.bare.Me(ctx, c.AccessToken())
	if err != nil {
		// Tokens are in place; identity resolution can be retried via
		// RestoreSession. Surface the failure to the caller regardless.
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, "", err, map[string]string{
			"identifier": username,
			"reason":     "identity_fetch_failed",
		})
		return err
	}

	c.setUser(me)
	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, true, me.ID, nil, map[string]string{
		"identifier": username,
	})
	return nil
}

// Register creates an account and opens its first session. Server-side
// rejections surface as [ErrRegistrationRejected] with any field-level
// messages attached as an [api.Error] in the chain.
func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	if c == nil || c.bare == nil {
		return ErrClientNotReady
	}

	pair, err := c.bare.Register(ctx, in)
	if err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, auditEventRegisterFailure, false, "", err, map[string]string{
			"identifier": in.Username,
		})
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return fmt.Errorf("%w: %w", ErrRegistrationRejected, apiErr)
		}
		return err
	}

	c.storePair(ctx, pair)

	me, err := c.bare.Me(ctx, c.AccessToken())
	if err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, auditEventRegisterFailure, false, "", err, map[string]string{
			"identifier": in.Username,
			"reason":     "identity_fetch_failed",
		})
		return err
	}

	c.setUser(me)
	c.metricInc(MetricRegisterSuccess)
	c.emitAudit(ctx, auditEventRegisterSuccess, true, me.ID, nil, nil)
	return nil
}

// Logout clears the session synchronously, regardless of network state. It
// never fails; a token store hiccup is logged and the in-memory session is
// gone either way.
func (c *Client) Logout() {
	if c == nil {
		return
	}
	userID := c.currentUserID()
	c.dropSession(context.Background())
	c.metricInc(MetricLogout)
	c.emitAudit(context.Background(), auditEventLogout, true, userID, nil, nil)
}

// forceLogout is the pipeline's logout after refresh exhaustion.
func (c *Client) forceLogout(cause error) {
	if c == nil {
		return
	}
	userID := c.currentUserID()
	c.dropSession(context.Background())
	c.metricInc(MetricForcedLogout)
	c.emitAudit(context.Background(), auditEventForcedLogout, false, userID, cause, nil)
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share a single in-flight exchange: whoever arrives while one is
// running waits for that result instead of issuing another. On failure the
// stored tokens are left untouched.
func (c *Client) Refresh(ctx context.Context) error {
	if c == nil || c.bare == nil {
		return ErrClientNotReady
	}

	c.mu.Lock()
	if call := c.refreshing; call != nil {
		c.mu.Unlock()
		c.metricInc(MetricRefreshDeduplicated)
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.refreshing = call
	refreshToken := c.pair.RefreshToken
	c.mu.Unlock()

	call.err = c.doRefresh(ctx, refreshToken)

	c.mu.Lock()
	c.refreshing = nil
	c.mu.Unlock()
	close(call.done)

	return call.err
}

func (c *Client) doRefresh(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		c.metricInc(MetricRefreshFailure)
		c.emitAudit(ctx, auditEventRefreshFailure, false, "", ErrNoRefreshToken, nil)
		return ErrNoRefreshToken
	}

	pair, err := c.bare.Refresh(ctx, refreshToken)
	if err != nil {
		c.metricInc(MetricRefreshFailure)
		c.emitAudit(ctx, auditEventRefreshFailure, false, c.currentUserID(), err, nil)
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	c.storePair(ctx, pair)
	c.metricInc(MetricRefreshSuccess)
	c.emitAudit(ctx, auditEventRefreshSuccess, true, c.currentUserID(), nil, nil)
	return nil
}

// CurrentUser returns the cached identity, nil when unauthenticated. The
// returned value is a copy; mutating it does not touch the session.
func (c *Client) CurrentUser() *UserIdentity {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// IsLoggedIn reports whether an identity has been resolved.
func (c *Client) IsLoggedIn() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

// HasRole reports whether the current user holds the named role.
func (c *Client) HasRole(name string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil && c.user.RoleName == name
}

// CanCreate reports the create capability of the current role.
func (c *Client) CanCreate() bool { return c.can(roles.CapCreate) }

// CanEdit reports the edit capability of the current role.
func (c *Client) CanEdit() bool { return c.can(roles.CapEdit) }

// CanDelete reports the delete capability of the current role.
func (c *Client) CanDelete() bool { return c.can(roles.CapDelete) }

// CanView reports the back-office view capability of the current role.
func (c *Client) CanView() bool { return c.can(roles.CapView) }

func (c *Client) can(cap roles.Capability) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return false
	}
	return roles.Can(c.user.RoleName, cap)
}

// AccessToken returns the current bearer credential, empty when
// unauthenticated.
func (c *Client) AccessToken() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair.AccessToken
}

func (c *Client) hasRefreshToken() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair.RefreshToken != ""
}

// BadgeAwards lists the badges earned by the current user.
func (c *Client) BadgeAwards(ctx context.Context) ([]BadgeAward, error) {
	if c == nil || c.piped == nil {
		return nil, ErrClientNotReady
	}
	user := c.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return c.piped.BadgeAwardsByUser(ctx, user.ID)
}

// --- state transitions -------------------------------------------------

func (c *Client) finishRestore() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
	c.restoredOnce.Do(func() { close(c.restored) })
}

func (c *Client) setUnauthenticated() {
	c.mu.Lock()
	c.user = nil
	c.pair = tokenstore.Pair{}
	c.mu.Unlock()
}

func (c *Client) setPair(pair tokenstore.Pair) {
	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()
}

func (c *Client) setUser(u *UserIdentity) {
	c.mu.Lock()
	c.user = u
	c.mu.Unlock()
}

func (c *Client) currentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return ""
	}
	return c.user.ID
}

// storePair merges the returned pair with the stored one (a missing refresh
// token means "not rotated, keep yours") and persists it. Persistence is
// best-effort: the in-memory session stays valid even if the store is down.
func (c *Client) storePair(ctx context.Context, tp api.TokenPair) {
	c.mu.Lock()
	if tp.AccessToken != "" {
		c.pair.AccessToken = tp.AccessToken
	}
	if tp.RefreshToken != "" {
		c.pair.RefreshToken = tp.RefreshToken
	}
	pair := c.pair
	c.mu.Unlock()

	if err := c.store.Save(ctx, pair); err != nil {
		log.Print("lumio: token persistence failed")
	}
}

// dropSession clears the in-memory session and the persisted pair.
func (c *Client) dropSession(ctx context.Context) {
	c.setUnauthenticated()
	if err := c.store.Clear(ctx); err != nil {
		log.Print("lumio: token store clear failed")
	}
}

// emitAudit forwards an event to the dispatcher, tolerating a disabled one.
func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, userID string, cause error, metadata map[string]string) {
	if c == nil || c.audit == nil {
		return
	}
	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	c.audit.Emit(ctx, event)
}
