package quiz_test

import (
	"context"
	"errors"
	"testing"

	lumio "github.com/lumioedu/lumio-go"
	"github.com/lumioedu/lumio-go/api"
	"github.com/lumioedu/lumio-go/internal/apitest"
	"github.com/lumioedu/lumio-go/quiz"
)

func newQuizServer(t *testing.T) *apitest.Server {
	t.Helper()

	server := apitest.New()
	t.Cleanup(server.Close)

	server.AddUser(apitest.User{
		Name:     "Ana",
		Username: "ana",
		Password: "secret",
		RoleName: "Student",
	})
	server.AddQuiz(apitest.Quiz{
		ID:    "quiz-1",
		Title: "Basics",
		Questions: []apitest.Question{
			{
				ID:        "q1",
				Text:      "First?",
				Options:   []apitest.OptionFixture{{ID: "optA", Text: "A"}, {ID: "optB", Text: "B"}},
				CorrectID: "optA",
			},
			{
				ID:        "q2",
				Text:      "Second?",
				Options:   []apitest.OptionFixture{{ID: "optC", Text: "C"}, {ID: "optD", Text: "D"}},
				CorrectID: "optD",
			},
		},
	})
	server.AddBadge(apitest.Badge{Code: "gold", Name: "Gold", MinScore: 90})
	return server
}

func loggedInClient(t *testing.T, server *apitest.Server) *lumio.Client {
	t.Helper()

	client, err := lumio.New().
		WithBaseURL(server.URL()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return client
}

func loadSession(t *testing.T, server *apitest.Server, client *lumio.Client) *quiz.Session {
	t.Helper()

	session, err := quiz.Load(context.Background(), client.API(), client, "quiz-1", quiz.Hooks{
		Loaded: client.RecordQuizLoaded,
		Scored: client.RecordAttemptScored,
		Failed: client.RecordAttemptFailed,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return session
}

func TestLoadUnknownQuiz(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)

	_, err := quiz.Load(context.Background(), client.API(), client, "nope", quiz.Hooks{})
	if !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestLoadPopulatesQuestionsInOrder(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if got := session.State(); got != quiz.StateEditing {
		t.Fatalf("state = %s, want editing", got)
	}

	questions := session.Questions()
	if len(questions) != 2 || questions[0].ID != "q1" || questions[1].ID != "q2" {
		t.Fatalf("unexpected question order: %+v", questions)
	}
	if len(questions[0].Options) != 2 || questions[0].Options[0].Text != "A" {
		t.Fatalf("unexpected options: %+v", questions[0].Options)
	}

	view, index, ok := session.Current()
	if !ok || index != 0 || view.ID != "q1" {
		t.Fatalf("cursor = %v/%d/%v, want q1 at 0", view.ID, index, ok)
	}
}

func TestSelectOptionOverwrites(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if err := session.SelectOption("q1", "optA"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if err := session.SelectOption("q1", "optB"); err != nil {
		t.Fatalf("SelectOption overwrite failed: %v", err)
	}

	if got, ok := session.Selection("q1"); !ok || got != "optB" {
		t.Fatalf("selection = %q/%v, want optB", got, ok)
	}
	answered, total := session.Progress()
	if answered != 1 || total != 2 {
		t.Fatalf("progress = %d/%d, want 1/2", answered, total)
	}
}

func TestSelectUnknownQuestion(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if err := session.SelectOption("missing", "optA"); !errors.Is(err, quiz.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestNavigationClampsAtBounds(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if got := session.Previous(); got != 0 {
		t.Fatalf("Previous at start = %d, want 0", got)
	}
	if got := session.Next(); got != 1 {
		t.Fatalf("Next = %d, want 1", got)
	}
	if got := session.Next(); got != 1 {
		t.Fatalf("Next at end = %d, want clamped 1", got)
	}
	if got := session.Previous(); got != 0 {
		t.Fatalf("Previous = %d, want 0", got)
	}
}

func TestFinishIncompleteAnswers(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if err := session.SelectOption("q1", "optA"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	_, err := session.Finish(context.Background())
	if !errors.Is(err, quiz.ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
	var incomplete *quiz.IncompleteAnswersError
	if !errors.As(err, &incomplete) || len(incomplete.Missing) != 1 || incomplete.Missing[0] != "q2" {
		t.Fatalf("missing = %+v, want [q2]", incomplete)
	}
	if got := session.State(); got != quiz.StateEditing {
		t.Fatalf("state = %s, incomplete finish must not leave editing", got)
	}
	if got := server.AnswerCalls(); got != 0 {
		t.Fatalf("answer calls = %d, want 0", got)
	}
}

func TestFinishNotAuthenticated(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)

	// Data access rides the logged-in client; the identity under test says no.
	session, err := quiz.Load(context.Background(), client.API(), anonymous{}, "quiz-1", quiz.Hooks{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := session.SelectOption("q1", "optA"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if err := session.SelectOption("q2", "optD"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	if _, err := session.Finish(context.Background()); !errors.Is(err, quiz.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if got := session.State(); got != quiz.StateEditing {
		t.Fatalf("state = %s, want editing", got)
	}
}

func TestFinishScoresFullMarks(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if err := session.SelectOption("q1", "optA"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if err := session.SelectOption("q2", "optD"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	result, err := session.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("score = %v, want 100", result.Score)
	}
	if got := session.State(); got != quiz.StateScored {
		t.Fatalf("state = %s, want scored", got)
	}
	if result.BadgeAwarded == nil || result.BadgeAwarded.Badge == nil || result.BadgeAwarded.Badge.Name != "Gold" {
		t.Fatalf("expected the gold badge, got %+v", result.BadgeAwarded)
	}
	if got := server.AnswerCalls(); got != 2 {
		t.Fatalf("answer calls = %d, want 2", got)
	}

	if _, _, _, finished, ok := server.Attempt(result.AttemptID); !ok || !finished {
		t.Fatal("expected a finished server-side attempt")
	}

	if _, err := session.Finish(context.Background()); !errors.Is(err, quiz.ErrAlreadyScored) {
		t.Fatalf("expected ErrAlreadyScored, got %v", err)
	}
}

func TestFinishFailureIsRetryable(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if err := session.SelectOption("q1", "optB"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if err := session.SelectOption("q2", "optC"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	server.SetFailStatus(500)
	_, err := session.Finish(context.Background())
	if !errors.Is(err, quiz.ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if got := session.State(); got != quiz.StateFailed {
		t.Fatalf("state = %s, want failed", got)
	}

	// Same in-memory selections, new attempt, no re-entry of answers.
	server.SetFailStatus(0)
	result, err := session.Finish(context.Background())
	if err != nil {
		t.Fatalf("retry Finish failed: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("score = %v, want 0 for two wrong answers", result.Score)
	}
	if got := session.State(); got != quiz.StateScored {
		t.Fatalf("state = %s, want scored", got)
	}
}

func TestQuitDiscardsSession(t *testing.T) {
	server := newQuizServer(t)
	client := loggedInClient(t, server)
	session := loadSession(t, server, client)

	if err := session.Quit(); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}
	if err := session.SelectOption("q1", "optA"); !errors.Is(err, quiz.ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
	if _, err := session.Finish(context.Background()); !errors.Is(err, quiz.ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
}

type anonymous struct{}

func (anonymous) CurrentUser() *api.UserIdentity { return nil }
