// Package lumio is a Go client SDK for the Lumio learning platform: it owns
// the authenticated session (token pair, current user, role capabilities),
// runs API calls through an authorization pipeline with transparent one-shot
// token refresh, and exposes the collaborators the quiz attempt machinery
// builds on.
//
// The package is designed for a single logical session shared across
// goroutines: Client methods are safe to call concurrently after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// lumio is the public surface. It exposes [Client], [Builder], [Config],
// sentinel errors, audit sinks, and value types. The authorization pipeline
// and metric storage live under internal/ and are never exported. The REST
// collaborator is the api subpackage; quiz attempt state lives in the quiz
// subpackage; token persistence lives in tokenstore.
//
// # What this package must NOT do
//
//   - Render anything or own navigation; redirects go through the injected
//     [Navigator].
//   - Let any component other than the session manager write token storage.
//   - Retry a failed request more than once, and never on non-401 failures.
//
// # Session contract
//
// A non-nil current user implies a stored access token. Until the initial
// [Client.RestoreSession] completes, callers must gate on
// [Client.AwaitRestore] (or [Client.Loading]) before trusting the identity.
package lumio
