package lumio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumioedu/lumio-go/api"
	"github.com/lumioedu/lumio-go/internal/apitest"
	"github.com/lumioedu/lumio-go/tokenstore"
)

func newTestServer(t *testing.T) *apitest.Server {
	t.Helper()

	server := apitest.New()
	t.Cleanup(server.Close)

	server.AddUser(apitest.User{
		Name:     "Ana",
		Username: "ana",
		Email:    "ana@example.com",
		RoleName: "Student",
		Password: "secret",
	})
	server.AddQuiz(apitest.Quiz{
		ID:    "quiz-1",
		Title: "Basics",
		Questions: []apitest.Question{
			{
				ID:        "q1",
				Text:      "1 + 1?",
				Options:   []apitest.OptionFixture{{ID: "q1-a", Text: "2"}, {ID: "q1-b", Text: "3"}},
				CorrectID: "q1-a",
			},
		},
	})
	return server
}

func buildTestClient(t *testing.T, server *apitest.Server, opts ...func(*Builder)) *Client {
	t.Helper()

	b := New().
		WithBaseURL(server.URL()).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}

	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestBuildRequiresBaseURL(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected Build to fail without a base URL")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	server := newTestServer(t)
	b := New().WithBaseURL(server.URL())
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestLoginSuccess(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !client.IsLoggedIn() {
		t.Fatal("expected logged-in session")
	}
	user := client.CurrentUser()
	if user == nil || user.Username != "ana" || user.RoleName != "Student" {
		t.Fatalf("unexpected identity: %+v", user)
	}
	if client.AccessToken() == "" {
		t.Fatal("expected an access token")
	}
	if got := client.metrics.Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("login success counter = %d, want 1", got)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	err := client.Login(context.Background(), "ana", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
		t.Fatalf("expected wrapped 401 api.Error, got %v", err)
	}
	if client.IsLoggedIn() || client.AccessToken() != "" {
		t.Fatal("rejected login must leave the session untouched")
	}
}

func TestLogoutClearsSessionAndStore(t *testing.T) {
	server := newTestServer(t)
	store := tokenstore.NewMemory()
	client := buildTestClient(t, server, func(b *Builder) { b.WithTokenStore(store) })

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	client.Logout()

	if client.IsLoggedIn() || client.AccessToken() != "" {
		t.Fatal("expected cleared session")
	}
	pair, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !pair.Empty() {
		t.Fatal("expected cleared token store")
	}
}

func TestRestoreColdStart(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if !client.Loading() {
		t.Fatal("expected loading state before restore")
	}
	if err := client.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}
	if client.Loading() {
		t.Fatal("expected loading to clear")
	}
	if client.IsLoggedIn() {
		t.Fatal("cold start must end unauthenticated")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.AwaitRestore(ctx); err != nil {
		t.Fatalf("AwaitRestore failed: %v", err)
	}
}

func TestRestoreWithValidTokens(t *testing.T) {
	server := newTestServer(t)
	store := tokenstore.NewMemory()
	seedStore(t, server, store, "ana")
	client := buildTestClient(t, server, func(b *Builder) { b.WithTokenStore(store) })

	if err := client.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}
	if !client.IsLoggedIn() {
		t.Fatal("expected restored session")
	}
	if got := server.RefreshCalls(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0", got)
	}
}

func TestRestoreFallsBackToRefresh(t *testing.T) {
	server := newTestServer(t)
	store := tokenstore.NewMemory()
	seedStore(t, server, store, "ana")
	server.ExpireAccessTokens()
	client := buildTestClient(t, server, func(b *Builder) { b.WithTokenStore(store) })

	if err := client.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}
	if !client.IsLoggedIn() {
		t.Fatal("expected restored session after refresh fallback")
	}
	if got := server.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
}

func TestRestoreRefreshFailureEndsUnauthenticated(t *testing.T) {
	server := newTestServer(t)
	store := tokenstore.NewMemory()
	seedStore(t, server, store, "ana")
	server.ExpireAccessTokens()
	server.SetFailRefresh(true)
	client := buildTestClient(t, server, func(b *Builder) { b.WithTokenStore(store) })

	// Auth failures during restore are absorbed, never surfaced.
	if err := client.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}
	if client.IsLoggedIn() {
		t.Fatal("expected unauthenticated state")
	}
	pair, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !pair.Empty() {
		t.Fatal("expected the dead tokens to be cleared")
	}
}

func TestRestoreProactiveRefresh(t *testing.T) {
	server := newTestServer(t)
	// Issued tokens expire inside the default 30s refresh skew, so the
	// restore goes straight to the refresh exchange.
	server.SetAccessTTL(5 * time.Second)
	store := tokenstore.NewMemory()
	seedStore(t, server, store, "ana")
	server.SetAccessTTL(time.Hour)
	client := buildTestClient(t, server, func(b *Builder) { b.WithTokenStore(store) })

	if err := client.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}
	if !client.IsLoggedIn() {
		t.Fatal("expected restored session")
	}
	if got := server.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestRolePredicates(t *testing.T) {
	server := newTestServer(t)
	server.AddUser(apitest.User{Name: "Adm", Username: "adm", Password: "pw", RoleName: "Admin"})
	server.AddUser(apitest.User{Name: "Prof", Username: "prof", Password: "pw", RoleName: "Professor"})

	cases := []struct {
		username  string
		password  string
		canCreate bool
		canEdit   bool
		canDelete bool
		canView   bool
	}{
		{"adm", "pw", true, true, true, true},
		{"prof", "pw", false, false, false, true},
		{"ana", "secret", false, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.username, func(t *testing.T) {
			client := buildTestClient(t, server)
			if err := client.Login(context.Background(), tc.username, tc.password); err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			if got := client.CanCreate(); got != tc.canCreate {
				t.Errorf("CanCreate = %v, want %v", got, tc.canCreate)
			}
			if got := client.CanEdit(); got != tc.canEdit {
				t.Errorf("CanEdit = %v, want %v", got, tc.canEdit)
			}
			if got := client.CanDelete(); got != tc.canDelete {
				t.Errorf("CanDelete = %v, want %v", got, tc.canDelete)
			}
			if got := client.CanView(); got != tc.canView {
				t.Errorf("CanView = %v, want %v", got, tc.canView)
			}
		})
	}
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if err := client.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	server.SetRefreshDelay(150 * time.Millisecond)
	before := server.RefreshCalls()

	const callers = 16
	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := client.Refresh(context.Background()); err != nil {
				failures.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d refresh callers failed", failures.Load())
	}
	if got := server.RefreshCalls() - before; got != 1 {
		t.Fatalf("server saw %d refresh exchanges, want 1", got)
	}
	if got := client.metrics.Value(MetricRefreshDeduplicated); got != callers-1 {
		t.Fatalf("deduplicated = %d, want %d", got, callers-1)
	}
}

func TestPipelineRecoversExpiredAccessToken(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	server.ExpireAccessTokens()

	quiz, err := client.API().Quiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("Quiz failed: %v", err)
	}
	if quiz.Title != "Basics" {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
	if got := server.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := client.metrics.Value(MetricRetryAfterRefresh); got != 1 {
		t.Fatalf("retry counter = %d, want 1", got)
	}
}

func TestPipelineRefreshExhaustionForcesLogout(t *testing.T) {
	server := newTestServer(t)

	var toLogin atomic.Int64
	client := buildTestClient(t, server, func(b *Builder) {
		b.WithNavigator(FuncNavigator{Login: func() { toLogin.Add(1) }})
	})

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	server.ExpireAccessTokens()
	server.SetFailRefresh(true)

	_, err := client.API().Quiz(context.Background(), "quiz-1")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
		t.Fatalf("expected the original 401 to surface, got %v", err)
	}
	if client.IsLoggedIn() {
		t.Fatal("expected forced logout")
	}
	if got := toLogin.Load(); got != 1 {
		t.Fatalf("login redirects = %d, want exactly 1", got)
	}
	if got := client.metrics.Value(MetricForcedLogout); got != 1 {
		t.Fatalf("forced logout counter = %d, want 1", got)
	}
}

func TestPipelineForbiddenRedirectsHome(t *testing.T) {
	server := newTestServer(t)

	var toHome atomic.Int64
	client := buildTestClient(t, server, func(b *Builder) {
		b.WithNavigator(FuncNavigator{Home: func() { toHome.Add(1) }})
	})

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	server.SetFailStatus(403)

	_, err := client.API().Quiz(context.Background(), "quiz-1")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || !apiErr.IsForbidden() {
		t.Fatalf("expected a 403 api.Error, got %v", err)
	}
	if got := toHome.Load(); got != 1 {
		t.Fatalf("home redirects = %d, want 1", got)
	}
	if !client.IsLoggedIn() {
		t.Fatal("403 must not log the user out")
	}
}

func TestPipelineServerErrorPassesThrough(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if err := client.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	server.SetFailStatus(500)

	_, err := client.API().Quiz(context.Background(), "quiz-1")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || !apiErr.IsServerError() {
		t.Fatalf("expected a 5xx api.Error, got %v", err)
	}
	if got := client.metrics.Value(MetricServerError); got == 0 {
		t.Fatal("expected the 5xx to be counted")
	}
	if !client.IsLoggedIn() {
		t.Fatal("5xx must not touch the session")
	}
}

func TestRegisterAndDuplicate(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	in := RegisterInput{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "pw"}
	if err := client.Register(context.Background(), in); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !client.IsLoggedIn() {
		t.Fatal("expected registration to open a session")
	}

	other := buildTestClient(t, server)
	if err := other.Register(context.Background(), in); !errors.Is(err, ErrRegistrationRejected) {
		t.Fatalf("expected ErrRegistrationRejected, got %v", err)
	}
}

func TestBadgeAwardsRequiresLogin(t *testing.T) {
	server := newTestServer(t)
	client := buildTestClient(t, server)

	if _, err := client.BadgeAwards(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

// seedStore persists a freshly issued pair, simulating a previous session.
func seedStore(t *testing.T, server *apitest.Server, store tokenstore.Store, username string) {
	t.Helper()

	access, refresh, ok := server.IssueTokens(username)
	if !ok {
		t.Fatalf("unknown fixture user %q", username)
	}
	if err := store.Save(context.Background(), tokenstore.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}
