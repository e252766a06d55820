// Package tokenstore persists the session token pair between runs.
//
// It is the client-side equivalent of browser local storage: exactly two
// string values under the keys "access_token" and "refresh_token". An absent
// access token means "not authenticated".
//
// Three backends ship with the SDK: [Memory] for tests and throwaway
// sessions, [File] for a single-user machine, and [Redis] for token pairs
// shared by several processes.
//
// # Architecture boundaries
//
// Only the session manager writes through a Store. Everything else reads
// tokens via the session manager's accessors, never from storage directly.
package tokenstore
