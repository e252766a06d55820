package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Quiz fetches one quiz by id. A missing quiz surfaces as *Error with
// IsNotFound() == true.
func (c *Client) Quiz(ctx context.Context, quizID string) (*Quiz, error) {
	var out Quiz
	if err := c.get(ctx, "/quizzes/"+url.PathEscape(quizID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Questions lists one page of questions in server order.
func (c *Client) Questions(ctx context.Context, offset, limit int) ([]Question, error) {
	var out []Question
	path := fmt.Sprintf("/questions?offset=%d&limit=%d", offset, limit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QuizQuestions pages through the question listing and returns the questions
// belonging to quizID, preserving server order across pages.
func (c *Client) QuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	var matched []Question
	for offset := 0; ; offset += c.pageSize {
		page, err := c.Questions(ctx, offset, c.pageSize)
		if err != nil {
			return nil, err
		}
		for _, q := range page {
			if q.QuizID == quizID {
				matched = append(matched, q)
			}
		}
		if len(page) < c.pageSize {
			return matched, nil
		}
	}
}

// Options lists one page of answer options.
func (c *Client) Options(ctx context.Context, offset, limit int) ([]Option, error) {
	var out []Option
	path := fmt.Sprintf("/options?offset=%d&limit=%d", offset, limit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllOptions pages through the full option listing. Quiz assembly uses it to
// build the option id→text map.
func (c *Client) AllOptions(ctx context.Context) ([]Option, error) {
	var all []Option
	for offset := 0; ; offset += c.pageSize {
		page, err := c.Options(ctx, offset, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
	}
}

// QuestionOptions lists the option links for one question, in server order.
func (c *Client) QuestionOptions(ctx context.Context, questionID string) ([]QuestionOption, error) {
	var out []QuestionOption
	path := "/question_options?question_id=" + url.QueryEscape(questionID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAttempt opens a server-side attempt record. The request carries an
// idempotency key so a transport-level replay cannot double-create.
func (c *Client) CreateAttempt(ctx context.Context, in AttemptCreate) (*Attempt, error) {
	var out Attempt
	opts := requestOptions{idempotencyKey: uuid.NewString()}
	if err := c.do(ctx, http.MethodPost, "/quiz_attempts", in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAnswer records one answer for an open attempt.
func (c *Client) CreateAnswer(ctx context.Context, in AnswerCreate) (*Answer, error) {
	var out Answer
	opts := requestOptions{idempotencyKey: uuid.NewString()}
	if err := c.do(ctx, http.MethodPost, "/answers", in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinishAttempt asks the server to score and close the attempt.
func (c *Client) FinishAttempt(ctx context.Context, attemptID string) (*FinishResult, error) {
	var out FinishResult
	path := "/quiz_attempts/" + url.PathEscape(attemptID) + "/finish"
	if err := c.post(ctx, path, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BadgeAwardsByUser lists the badges a user has earned.
func (c *Client) BadgeAwardsByUser(ctx context.Context, userID string) ([]BadgeAward, error) {
	var out []BadgeAward
	if err := c.get(ctx, "/quiz_badge_awards/by_user/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
