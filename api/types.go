package api

import "time"

// TokenPair carries the credentials returned by login, register, and refresh.
// RefreshToken may be empty: the server is free to rotate only the access
// token, and callers must then keep the refresh token they already hold.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// UserIdentity is the authenticated principal as reported by /auth/me.
type UserIdentity struct {
	ID       string
	Name     string
	Username string
	Email    string
	RoleName string
	PhotoURL string
}

// LoginInput is the credential pair for [Client.Login].
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterInput is the payload for [Client.Register].
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Quiz is the quiz metadata record.
type Quiz struct {
	ID          string `json:"id"`
	VideoID     string `json:"video_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Question belongs to exactly one quiz. Option text is linked separately
// through the question_options table.
type Question struct {
	ID     string `json:"id"`
	QuizID string `json:"quiz_id"`
	Text   string `json:"text"`
}

// Option is an answer option. Whether it is the correct one is known only to
// the server and never crosses this boundary.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionOption links one question to one of its options.
type QuestionOption struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Attempt is a server-side record of one quiz-taking session.
type Attempt struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	QuizID     string     `json:"quiz_id"`
	Score      float64    `json:"score"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// AttemptCreate is the payload for [Client.CreateAttempt]. Score is zero and
// FinishedAt nil on creation; the server fills both during finalization.
type AttemptCreate struct {
	UserID     string     `json:"user_id"`
	QuizID     string     `json:"quiz_id"`
	Score      float64    `json:"score"`
	FinishedAt *time.Time `json:"finished_at"`
}

// AnswerCreate is the payload for [Client.CreateAnswer].
type AnswerCreate struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Answer is a recorded answer within an attempt.
type Answer struct {
	ID         string `json:"id"`
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id,omitempty"`
}

// Badge is a gamification reward definition.
type Badge struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	MinScore float64 `json:"min_score"`
	Image    string  `json:"image,omitempty"`
}

// BadgeAward records a badge granted to a user for a scored attempt.
type BadgeAward struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	QuizID    string    `json:"quiz_id"`
	BadgeID   string    `json:"badge_id"`
	AttemptID string    `json:"attempt_id,omitempty"`
	AwardedAt time.Time `json:"awarded_at"`
	Badge     *Badge    `json:"badge,omitempty"`
}

// FinishResult is returned by [Client.FinishAttempt]: the scored attempt and,
// when a score threshold was crossed, the badge that was granted.
type FinishResult struct {
	Attempt      Attempt     `json:"attempt"`
	BadgeAwarded *BadgeAward `json:"badge_awarded,omitempty"`
}
