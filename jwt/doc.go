// Package jwt inspects access tokens on the client side.
//
// The SDK never verifies signatures — that is the server's job and the
// client does not hold verification keys. What it does need is the expiry
// and subject baked into the access token, so the session manager can
// refresh proactively instead of waiting for a 401 round trip.
//
// # What this package must NOT do
//
//   - Treat an unverified claim as proof of anything security-relevant.
//   - Issue or sign tokens.
package jwt
