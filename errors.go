package lumio

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the server rejects the
	// username/password pair. The server's message is attached to the chain.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationRejected is returned by Register when the server refuses
	// the payload; field-level messages ride along as an [api.Error].
	ErrRegistrationRejected = errors.New("registration rejected")
	// ErrNoRefreshToken is returned by Refresh when no refresh token is
	// stored.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRefreshFailed is returned by Refresh when the exchange fails; the
	// stored tokens are left untouched.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNotAuthenticated is returned by operations that require a resolved
	// current user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnauthorized mirrors an unrecovered 401 after the pipeline's single
	// refresh attempt is exhausted.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden mirrors a 403: the caller is authenticated but lacks the
	// capability.
	ErrForbidden = errors.New("forbidden")
	// ErrServerError mirrors a 5xx response, logged and passed through
	// unchanged.
	ErrServerError = errors.New("server error")
	// ErrClientNotReady is returned when a Client method runs before Build
	// wired its dependencies.
	ErrClientNotReady = errors.New("client not initialized")
)
