// Package apitest provides an in-process learning-platform API for tests:
// auth with rotating token pairs, quiz/question/option fixtures, attempt
// scoring, badge awards, and fault injection knobs.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var signingKey = []byte("apitest-signing-key")

// User is a fixture account.
type User struct {
	ID       string
	Name     string
	Username string
	Email    string
	RoleName string
	Password string
}

// Quiz is a fixture quiz with its questions and the correct options.
type Quiz struct {
	ID        string
	Title     string
	Questions []Question
}

// Question is a fixture question. Options are given in render order;
// CorrectID must be one of them.
type Question struct {
	ID        string
	Text      string
	Options   []OptionFixture
	CorrectID string
}

// OptionFixture is one answer option.
type OptionFixture struct {
	ID   string
	Text string
}

// Badge is a score-threshold reward.
type Badge struct {
	ID       string
	Code     string
	Name     string
	MinScore float64
}

type attemptRecord struct {
	id       string
	userID   string
	quizID   string
	score    float64
	finished *time.Time
	answers  map[string]string // question id -> option id
}

type awardRecord struct {
	id        string
	userID    string
	quizID    string
	badgeID   string
	attemptID string
	awardedAt time.Time
	badge     Badge
}

// Server is the fake API. Construct with New, register fixtures, then point
// the client at URL().
type Server struct {
	ts *httptest.Server

	mu        sync.Mutex
	users     map[string]User // by username
	quizzes   map[string]Quiz
	quizOrder []string
	badges   []Badge
	access   map[string]string // access token -> user id
	refresh  map[string]string // refresh token -> user id
	attempts map[string]*attemptRecord
	awards   []awardRecord

	accessTTL time.Duration

	// Fault knobs.
	failRefresh  atomic.Bool
	failStatus   atomic.Int64 // non-zero: every data route returns this status
	refreshDelay atomic.Int64 // nanoseconds
	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
	meCalls      atomic.Int64
	answerCalls  atomic.Int64
}

// New starts the server. Close it with Close.
func New() *Server {
	s := &Server{
		users:     make(map[string]User),
		quizzes:   make(map[string]Quiz),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		attempts:  make(map[string]*attemptRecord),
		accessTTL: time.Hour,
	}

	e := echo.New()
	e.HideBanner = true

	v1 := e.Group("/api/v1")
	v1.POST("/auth/login", s.handleLogin)
	v1.POST("/auth/register", s.handleRegister)
	v1.POST("/auth/refresh", s.handleRefresh)
	v1.GET("/auth/me", s.handleMe)

	data := v1.Group("", s.requireAuth, s.injectFault)
	data.GET("/quizzes/:id", s.handleQuiz)
	data.GET("/questions", s.handleQuestions)
	data.GET("/options", s.handleOptions)
	data.GET("/question_options", s.handleQuestionOptions)
	data.POST("/quiz_attempts", s.handleCreateAttempt)
	data.POST("/answers", s.handleCreateAnswer)
	data.POST("/quiz_attempts/:id/finish", s.handleFinishAttempt)
	data.GET("/quiz_badge_awards/by_user/:id", s.handleAwardsByUser)

	s.ts = httptest.NewServer(e)
	return s
}

// URL returns the API base, including the /api/v1 prefix.
func (s *Server) URL() string { return s.ts.URL + "/api/v1" }

// Close shuts the server down.
func (s *Server) Close() { s.ts.Close() }

// AddUser registers a fixture account and returns it with a generated id.
func (s *Server) AddUser(u User) User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.RoleName == "" {
		u.RoleName = "Student"
	}
	s.mu.Lock()
	s.users[u.Username] = u
	s.mu.Unlock()
	return u
}

// AddQuiz registers a fixture quiz.
func (s *Server) AddQuiz(q Quiz) {
	s.mu.Lock()
	if _, exists := s.quizzes[q.ID]; !exists {
		s.quizOrder = append(s.quizOrder, q.ID)
	}
	s.quizzes[q.ID] = q
	s.mu.Unlock()
}

// AddBadge registers a score-threshold badge.
func (s *Server) AddBadge(b Badge) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.badges = append(s.badges, b)
	s.mu.Unlock()
}

// SetAccessTTL controls the exp claim of issued access tokens. Applies to
// tokens issued after the call.
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	s.accessTTL = d
	s.mu.Unlock()
}

// IssueTokens mints a valid pair for a registered user, bypassing login.
func (s *Server) IssueTokens(username string) (access, refresh string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[username]
	if !found {
		return "", "", false
	}
	return s.issueLocked(u.ID)
}

// ExpireAccessTokens invalidates every outstanding access token, forcing the
// next authenticated call into the 401 path. Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = make(map[string]string)
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refresh = make(map[string]string)
	s.mu.Unlock()
}

// SetFailRefresh makes /auth/refresh return 401 while enabled.
func (s *Server) SetFailRefresh(fail bool) { s.failRefresh.Store(fail) }

// SetRefreshDelay makes /auth/refresh sleep before responding, widening the
// window in which concurrent callers can pile onto one in-flight exchange.
func (s *Server) SetRefreshDelay(d time.Duration) { s.refreshDelay.Store(int64(d)) }

// SetFailStatus makes every data route return the given status; zero
// restores normal behavior.
func (s *Server) SetFailStatus(status int) { s.failStatus.Store(int64(status)) }

// RefreshCalls reports how many refresh exchanges were attempted.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// MeCalls reports how many identity lookups were served.
func (s *Server) MeCalls() int { return int(s.meCalls.Load()) }

// AnswerCalls reports how many answer records were accepted.
func (s *Server) AnswerCalls() int { return int(s.answerCalls.Load()) }

// Attempt returns a copy of a stored attempt's scoring fields.
func (s *Server) Attempt(id string) (userID, quizID string, score float64, finished bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.attempts[id]
	if !found {
		return "", "", 0, false, false
	}
	return a.userID, a.quizID, a.score, a.finished != nil, true
}

// --- token plumbing ----------------------------------------------------

func (s *Server) issueLocked(userID string) (access, refresh string, ok bool) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return "", "", false
	}

	refreshToken := "rt-" + uuid.NewString()
	s.access[signed] = userID
	s.refresh[refreshToken] = userID
	return signed, refreshToken, true
}

func (s *Server) bearerUser(c echo.Context) (User, bool) {
	header := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return User{}, false
	}
	token := header[len(prefix):]

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.access[token]
	if !ok {
		return User{}, false
	}
	for _, u := range s.users {
		if u.ID == userID {
			return u, true
		}
	}
	return User{}, false
}

// --- middleware --------------------------------------------------------

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := s.bearerUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Not authenticated"})
		}
		c.Set("user", user)
		return next(c)
	}
}

func (s *Server) injectFault(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if status := int(s.failStatus.Load()); status != 0 {
			return c.JSON(status, echo.Map{"detail": http.StatusText(status)})
		}
		return next(c)
	}
}

// --- auth handlers -----------------------------------------------------

func (s *Server) handleLogin(c echo.Context) error {
	s.loginCalls.Add(1)

	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "Invalid payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[in.Username]
	if !ok || u.Password != in.Password {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Invalid credentials"})
	}

	access, refresh, ok := s.issueLocked(u.ID)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "token issue failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

func (s *Server) handleRegister(c echo.Context) error {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "Invalid payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Username]; exists {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"detail": echo.Map{"username": "already taken"},
		})
	}

	u := User{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		RoleName: "Student",
		Password: in.Password,
	}
	s.users[in.Username] = u

	access, refresh, _ := s.issueLocked(u.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

func (s *Server) handleRefresh(c echo.Context) error {
	s.refreshCalls.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		time.Sleep(d)
	}
	if s.failRefresh.Load() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Refresh token expired"})
	}

	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "Invalid payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[in.RefreshToken]
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Invalid refresh token"})
	}
	delete(s.refresh, in.RefreshToken)

	access, refresh, ok := s.issueLocked(userID)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "token issue failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

func (s *Server) handleMe(c echo.Context) error {
	s.meCalls.Add(1)

	u, ok := s.bearerUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Not authenticated"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        u.ID,
		"name":      u.Name,
		"username":  u.Username,
		"email":     u.Email,
		"role_name": u.RoleName,
	})
}

// --- data handlers -----------------------------------------------------

func (s *Server) handleQuiz(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Quiz not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": q.ID, "title": q.Title})
}

func (s *Server) handleQuestions(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var all []echo.Map
	for _, quizID := range s.quizOrder {
		q := s.quizzes[quizID]
		for _, question := range q.Questions {
			all = append(all, echo.Map{
				"id":      question.ID,
				"quiz_id": q.ID,
				"text":    question.Text,
			})
		}
	}
	return c.JSON(http.StatusOK, page(all, offset, limit))
}

func (s *Server) handleOptions(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var all []echo.Map
	seen := make(map[string]bool)
	for _, quizID := range s.quizOrder {
		q := s.quizzes[quizID]
		for _, question := range q.Questions {
			for _, opt := range question.Options {
				if seen[opt.ID] {
					continue
				}
				seen[opt.ID] = true
				all = append(all, echo.Map{"id": opt.ID, "text": opt.Text})
			}
		}
	}
	return c.JSON(http.StatusOK, page(all, offset, limit))
}

func (s *Server) handleQuestionOptions(c echo.Context) error {
	questionID := c.QueryParam("question_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	links := []echo.Map{}
	for _, quizID := range s.quizOrder {
		q := s.quizzes[quizID]
		for _, question := range q.Questions {
			if question.ID != questionID {
				continue
			}
			for _, opt := range question.Options {
				links = append(links, echo.Map{
					"question_id": question.ID,
					"option_id":   opt.ID,
				})
			}
		}
	}
	return c.JSON(http.StatusOK, links)
}

func (s *Server) handleCreateAttempt(c echo.Context) error {
	var in struct {
		UserID string `json:"user_id"`
		QuizID string `json:"quiz_id"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "Invalid payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[in.QuizID]; !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Quiz not found"})
	}

	a := &attemptRecord{
		id:      uuid.NewString(),
		userID:  in.UserID,
		quizID:  in.QuizID,
		answers: make(map[string]string),
	}
	s.attempts[a.id] = a
	return c.JSON(http.StatusCreated, echo.Map{
		"id":      a.id,
		"user_id": a.userID,
		"quiz_id": a.quizID,
		"score":   0,
	})
}

func (s *Server) handleCreateAnswer(c echo.Context) error {
	var in struct {
		AttemptID  string `json:"attempt_id"`
		QuestionID string `json:"question_id"`
		OptionID   string `json:"option_id"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "Invalid payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[in.AttemptID]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Attempt not found"})
	}
	if a.finished != nil {
		return c.JSON(http.StatusConflict, echo.Map{"detail": "Attempt already finished"})
	}
	a.answers[in.QuestionID] = in.OptionID
	s.answerCalls.Add(1)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":          uuid.NewString(),
		"attempt_id":  in.AttemptID,
		"question_id": in.QuestionID,
		"option_id":   in.OptionID,
	})
}

func (s *Server) handleFinishAttempt(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Attempt not found"})
	}
	if a.finished != nil {
		return c.JSON(http.StatusConflict, echo.Map{"detail": "Attempt already finished"})
	}

	quiz := s.quizzes[a.quizID]
	correct := 0
	for _, question := range quiz.Questions {
		if a.answers[question.ID] == question.CorrectID {
			correct++
		}
	}
	score := 0.0
	if len(quiz.Questions) > 0 {
		score = 100 * float64(correct) / float64(len(quiz.Questions))
	}
	now := time.Now().UTC()
	a.score = score
	a.finished = &now

	resp := echo.Map{
		"attempt": echo.Map{
			"id":          a.id,
			"user_id":     a.userID,
			"quiz_id":     a.quizID,
			"score":       score,
			"finished_at": now,
		},
	}

	// Highest badge whose threshold the score clears.
	var best *Badge
	for i := range s.badges {
		b := s.badges[i]
		if score >= b.MinScore && (best == nil || b.MinScore > best.MinScore) {
			best = &b
		}
	}
	if best != nil {
		award := awardRecord{
			id:        uuid.NewString(),
			userID:    a.userID,
			quizID:    a.quizID,
			badgeID:   best.ID,
			attemptID: a.id,
			awardedAt: now,
			badge:     *best,
		}
		s.awards = append(s.awards, award)
		resp["badge_awarded"] = awardJSON(award)
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAwardsByUser(c echo.Context) error {
	userID := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []echo.Map{}
	for _, award := range s.awards {
		if award.userID == userID {
			out = append(out, awardJSON(award))
		}
	}
	return c.JSON(http.StatusOK, out)
}

func awardJSON(a awardRecord) echo.Map {
	return echo.Map{
		"id":         a.id,
		"user_id":    a.userID,
		"quiz_id":    a.quizID,
		"badge_id":   a.badgeID,
		"attempt_id": a.attemptID,
		"awarded_at": a.awardedAt,
		"badge": echo.Map{
			"id":        a.badge.ID,
			"code":      a.badge.Code,
			"name":      a.badge.Name,
			"min_score": a.badge.MinScore,
		},
	}
}

func page(all []echo.Map, offset, limit int) []echo.Map {
	if offset >= len(all) {
		return []echo.Map{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
