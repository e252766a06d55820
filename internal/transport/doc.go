// Package transport implements the request authorization pipeline: an
// http.RoundTripper chain applied to every outbound API call.
//
// Per request it attaches the bearer credential, and on a 401 performs at
// most one token refresh followed by at most one replay of the original
// request. A 403 triggers the home redirect, a 5xx is logged; both are
// surfaced to the caller unchanged. Refresh de-duplication is the session
// manager's job — the pipeline only calls the injected refresh function.
//
// # What this package must NOT do
//
//   - Import the root package (dependencies arrive as narrow funcs).
//   - Read or write token storage directly.
//   - Retry on anything other than a single 401.
package transport
