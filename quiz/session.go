package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lumioedu/lumio-go/api"
)

// State is the session's position in the attempt lifecycle.
type State uint8

const (
	// StateEditing accepts selections and navigation.
	StateEditing State = iota
	// StateSubmitting has a finish sequence in flight.
	StateSubmitting
	// StateScored holds the server-assigned score. Terminal.
	StateScored
	// StateFailed marks a failed submission; Finish may be retried.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateScored:
		return "scored"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Identity is the slice of the session manager this package needs. It is
// satisfied by the root client.
type Identity interface {
	CurrentUser() *api.UserIdentity
}

// QuestionView is one question with its renderable options, correctness
// withheld.
type QuestionView struct {
	ID      string
	Text    string
	Options []api.Option
}

// Result is the outcome of a scored attempt.
type Result struct {
	AttemptID    string
	Score        float64
	BadgeAwarded *api.BadgeAward
}

// Hooks receives lifecycle notifications. All fields are optional; they are
// invoked synchronously, outside the session lock.
type Hooks struct {
	Loaded func(quizID string)
	Scored func(quizID, attemptID string, score float64, badge *api.BadgeAward)
	Failed func(quizID string, cause error)
}

// Session is one in-memory quiz-taking session. Methods are safe for
// concurrent use, though the expected caller is a single UI loop.
type Session struct {
	api      *api.Client
	identity Identity
	hooks    Hooks

	mu         sync.Mutex
	state      State
	quiz       api.Quiz
	questions  []QuestionView
	index      int
	selections map[string]string // question id -> option id
	result     *Result
	discarded  bool
}

// Load assembles a Session for quizID: the quiz record, its questions in
// listing order, and each question's options. A quiz id that does not
// resolve fails with [ErrQuizNotFound].
func Load(ctx context.Context, client *api.Client, identity Identity, quizID string, hooks Hooks) (*Session, error) {
	if client == nil {
		return nil, errors.New("quiz: api client required")
	}
	if identity == nil {
		return nil, errors.New("quiz: identity required")
	}

	q, err := client.Quiz(ctx, quizID)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, fmt.Errorf("%w: %s", ErrQuizNotFound, quizID)
		}
		return nil, err
	}

	questions, err := client.QuizQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	// One option listing serves every question; the per-question links then
	// select and order from it.
	allOptions, err := client.AllOptions(ctx)
	if err != nil {
		return nil, err
	}
	optionText := make(map[string]api.Option, len(allOptions))
	for _, opt := range allOptions {
		optionText[opt.ID] = opt
	}

	views := make([]QuestionView, 0, len(questions))
	for _, question := range questions {
		links, err := client.QuestionOptions(ctx, question.ID)
		if err != nil {
			return nil, err
		}
		view := QuestionView{ID: question.ID, Text: question.Text}
		for _, link := range links {
			if opt, ok := optionText[link.OptionID]; ok {
				view.Options = append(view.Options, opt)
			}
		}
		views = append(views, view)
	}

	s := &Session{
		api:        client,
		identity:   identity,
		hooks:      hooks,
		state:      StateEditing,
		quiz:       *q,
		questions:  views,
		selections: make(map[string]string, len(views)),
	}

	if hooks.Loaded != nil {
		hooks.Loaded(quizID)
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Quiz returns the quiz metadata.
func (s *Session) Quiz() api.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// Questions returns the question views in quiz order.
func (s *Session) Questions() []QuestionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QuestionView, len(s.questions))
	copy(out, s.questions)
	return out
}

// Current returns the question at the cursor. ok is false for an empty quiz
// or a discarded session.
func (s *Session) Current() (view QuestionView, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded || len(s.questions) == 0 {
		return QuestionView{}, 0, false
	}
	return s.questions[s.index], s.index, true
}

// Next advances the cursor, clamped at the last question. Navigation is
// deliberately unrestricted by state so a scored quiz can be reviewed.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < len(s.questions)-1 {
		s.index++
	}
	return s.index
}

// Previous moves the cursor back, clamped at zero.
func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.index
}

// Selection returns the stored option for a question, if any.
func (s *Session) Selection(questionID string) (optionID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	optionID, ok = s.selections[questionID]
	return optionID, ok
}

// Progress reports how many questions have a selection.
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selections), len(s.questions)
}

// Result returns the scored outcome, nil before StateScored.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// SelectOption records the selection for a question, overwriting any prior
// one. Allowed only in StateEditing and StateFailed.
func (s *Session) SelectOption(questionID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discarded {
		return ErrDiscarded
	}
	if s.state != StateEditing && s.state != StateFailed {
		return ErrNotEditing
	}
	if !s.hasQuestion(questionID) {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	s.selections[questionID] = optionID
	return nil
}

// SelectCurrent records the selection for the question at the cursor.
func (s *Session) SelectCurrent(optionID string) error {
	s.mu.Lock()
	if s.discarded || len(s.questions) == 0 {
		s.mu.Unlock()
		return ErrDiscarded
	}
	questionID := s.questions[s.index].ID
	s.mu.Unlock()
	return s.SelectOption(questionID, optionID)
}

// Finish runs the submission sequence: create the attempt, submit every
// answer, and ask the server to score it. Preconditions: an authenticated
// user and a selection for every question. On any server failure the
// session lands in StateFailed and Finish may be called again; answers
// already recorded server-side are not rolled back.
func (s *Session) Finish(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.discarded {
		s.mu.Unlock()
		return nil, ErrDiscarded
	}
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case StateScored:
		s.mu.Unlock()
		return nil, ErrAlreadyScored
	}

	user := s.identity.CurrentUser()
	if user == nil {
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}

	var missing []string
	for _, question := range s.questions {
		if _, ok := s.selections[question.ID]; !ok {
			missing = append(missing, question.ID)
		}
	}
	if len(missing) > 0 {
		s.mu.Unlock()
		return nil, &IncompleteAnswersError{Missing: missing}
	}

	s.state = StateSubmitting
	quizID := s.quiz.ID
	answers := make([]api.AnswerCreate, 0, len(s.questions))
	for _, question := range s.questions {
		answers = append(answers, api.AnswerCreate{
			QuestionID: question.ID,
			OptionID:   s.selections[question.ID],
		})
	}
	s.mu.Unlock()

	result, err := s.submit(ctx, user.ID, quizID, answers)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		if s.hooks.Failed != nil {
			s.hooks.Failed(quizID, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	s.mu.Lock()
	s.state = StateScored
	s.result = result
	s.mu.Unlock()
	if s.hooks.Scored != nil {
		s.hooks.Scored(quizID, result.AttemptID, result.Score, result.BadgeAwarded)
	}

	r := *result
	return &r, nil
}

// submit is the network half of Finish, run outside the session lock.
func (s *Session) submit(ctx context.Context, userID, quizID string, answers []api.AnswerCreate) (*Result, error) {
	attempt, err := s.api.CreateAttempt(ctx, api.AttemptCreate{
		UserID: userID,
		QuizID: quizID,
	})
	if err != nil {
		return nil, err
	}

	// Answer submission is concurrent; ordering is not significant.
	var wg sync.WaitGroup
	errs := make(chan error, len(answers))
	for _, answer := range answers {
		answer.AttemptID = attempt.ID
		wg.Add(1)
		go func(in api.AnswerCreate) {
			defer wg.Done()
			if _, err := s.api.CreateAnswer(ctx, in); err != nil {
				errs <- err
			}
		}(answer)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	final, err := s.api.FinishAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	return &Result{
		AttemptID:    final.Attempt.ID,
		Score:        final.Attempt.Score,
		BadgeAwarded: final.BadgeAwarded,
	}, nil
}

// Quit discards the in-memory session. It refuses while a submission is in
// flight; otherwise the session becomes unusable and no server call is made.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmissionInFlight
	}

	s.discarded = true
	s.selections = nil
	s.result = nil
	return nil
}

func (s *Session) hasQuestion(questionID string) bool {
	for _, question := range s.questions {
		if question.ID == questionID {
			return true
		}
	}
	return false
}
