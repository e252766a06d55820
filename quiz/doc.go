// Package quiz implements the in-memory quiz attempt state machine:
//
//	Editing -> Submitting -> {Scored | Failed}
//
// Failed is recoverable: Finish may be retried from the same in-memory
// selections. Scored is terminal for the session instance.
//
// The package never sees which option is correct — scoring happens on the
// server during finalization. It depends on the REST collaborator for data
// and on a narrow Identity view of the session manager for the current user.
package quiz
