package transport

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Navigator is the pipeline's view of the router side effects.
type Navigator interface {
	ToLogin()
	ToHome()
}

// Options wires a Pipeline. All funcs are required unless noted.
type Options struct {
	// Base performs the actual round trips. Nil means http.DefaultTransport.
	Base http.RoundTripper
	// AccessToken returns the current bearer credential, empty when
	// unauthenticated.
	AccessToken func() string
	// HasRefreshToken reports whether a refresh is even worth attempting.
	HasRefreshToken func() bool
	// Refresh performs one (de-duplicated) token refresh.
	Refresh func(ctx context.Context) error
	// ForceLogout clears the session after refresh exhaustion.
	ForceLogout func(cause error)
	// Navigator receives login/home redirects. Nil skips navigation.
	Navigator Navigator
	// OnRetry is invoked right before the post-refresh replay. Optional.
	OnRetry func()
	// OnForbidden is invoked on each 403. Optional.
	OnForbidden func(req *http.Request)
	// OnServerError is invoked on each 5xx. Optional.
	OnServerError func(req *http.Request, status int)
	// Observe receives the total round-trip duration. Optional.
	Observe func(d time.Duration)
	// DisableRefreshRetry turns the 401 branch into a pass-through.
	DisableRefreshRetry bool
}

// Pipeline is the authorization middleware chain.
type Pipeline struct {
	opts Options
}

// New builds a Pipeline from opts.
func New(opts Options) *Pipeline {
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	return &Pipeline{opts: opts}
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	if p.opts.Observe != nil {
		start := time.Now()
		defer func() { p.opts.Observe(time.Since(start)) }()
	}

	// The incoming request is never mutated; the bearer header goes on a
	// clone, per the RoundTripper contract.
	attempt := req.Clone(req.Context())
	if token := p.opts.AccessToken(); token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.opts.Base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized && !p.opts.DisableRefreshRetry:
		return p.recover(req, resp)
	case resp.StatusCode == http.StatusForbidden:
		if p.opts.OnForbidden != nil {
			p.opts.OnForbidden(req)
		}
		if p.opts.Navigator != nil {
			p.opts.Navigator.ToHome()
		}
		return resp, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		if p.opts.OnServerError != nil {
			p.opts.OnServerError(req, resp.StatusCode)
		}
		return resp, nil
	}

	return resp, nil
}

// recover runs the one-shot refresh-and-replay. The replayed response is
// returned as-is — a second 401 never re-enters this path.
func (p *Pipeline) recover(req *http.Request, unauthorized *http.Response) (*http.Response, error) {
	if !p.opts.HasRefreshToken() {
		p.forceLogout(nil)
		return unauthorized, nil
	}

	ctx := req.Context()
	if err := p.opts.Refresh(ctx); err != nil {
		// The original 401 is what the caller sees, not the refresh error.
		p.forceLogout(err)
		return unauthorized, nil
	}

	// A canceled caller must not trigger the replay.
	if err := ctx.Err(); err != nil {
		drain(unauthorized)
		return nil, err
	}

	retry, ok := rebuild(req)
	if !ok {
		// Body cannot be replayed; the refresh still repaired the session
		// for subsequent calls.
		return unauthorized, nil
	}
	if token := p.opts.AccessToken(); token != "" {
		retry.Header.Set("Authorization", "Bearer "+token)
	}

	drain(unauthorized)
	if p.opts.OnRetry != nil {
		p.opts.OnRetry()
	}

	resp, err := p.opts.Base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError && p.opts.OnServerError != nil {
		p.opts.OnServerError(req, resp.StatusCode)
	}
	return resp, nil
}

func (p *Pipeline) forceLogout(cause error) {
	if p.opts.ForceLogout != nil {
		p.opts.ForceLogout(cause)
	}
	if p.opts.Navigator != nil {
		p.opts.Navigator.ToLogin()
	}
}

// rebuild clones req with a fresh body for the replay.
func rebuild(req *http.Request) (*http.Request, bool) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	retry.Body = body
	return retry, true
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
