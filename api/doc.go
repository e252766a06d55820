// Package api is the REST collaborator for the Lumio learning platform.
//
// It speaks the platform's /api/v1 surface: authentication (login, register,
// refresh, identity), quiz content (quizzes, questions, options, the
// question↔option link table), quiz attempts with their answers, and badge
// awards. The package owns wire encoding and error decoding; it holds no
// session state and makes no policy decisions.
//
// # Architecture boundaries
//
// Server error payloads are decoded exactly once, here, into [*Error] with a
// status code, a human-readable detail, and optional per-field messages.
// Callers branch on [Error.Status] or on the sentinel helpers
// ([Error.IsUnauthorized], [Error.IsNotFound]) and never re-inspect raw
// bodies.
//
// # What this package must NOT do
//
//   - Attach or refresh bearer credentials (the authorization pipeline on the
//     injected http.Client does that).
//   - Retry requests.
//   - Persist anything.
package api
