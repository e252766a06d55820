package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuizNotFound is returned by Load when the quiz id does not resolve.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotAuthenticated is returned by Finish when no user is logged in.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrIncompleteAnswers is returned by Finish while questions remain
	// unanswered. Use errors.As with [IncompleteAnswersError] for the list.
	ErrIncompleteAnswers = errors.New("unanswered questions remain")
	// ErrSubmissionFailed wraps the cause of a failed attempt submission. The
	// session lands in StateFailed and Finish may be retried.
	ErrSubmissionFailed = errors.New("quiz submission failed")
	// ErrSubmissionInFlight is returned when Finish or Quit is called while a
	// submission is already running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrAlreadyScored is returned by Finish after the session reached
	// StateScored.
	ErrAlreadyScored = errors.New("attempt already scored")
	// ErrNotEditing is returned by SelectOption outside StateEditing.
	ErrNotEditing = errors.New("selections are closed")
	// ErrUnknownQuestion is returned by SelectOption for a question id that is
	// not part of the loaded quiz.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrDiscarded is returned by mutating calls after Quit.
	ErrDiscarded = errors.New("session discarded")
)

// IncompleteAnswersError lists the unanswered questions, in quiz order.
type IncompleteAnswersError struct {
	Missing []string // question ids
}

// Error implements error.
func (e *IncompleteAnswersError) Error() string {
	return fmt.Sprintf("%d unanswered question(s): %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}

// Unwrap makes errors.Is(err, ErrIncompleteAnswers) hold.
func (e *IncompleteAnswersError) Unwrap() error {
	return ErrIncompleteAnswers
}
