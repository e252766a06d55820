// Command lumio-smoke runs an end-to-end smoke pass against a learning
// platform API: restore, login, quiz load, full answer sweep, finish, badge
// check, forced-refresh storm, logout. With no target configured it spins up
// the in-process fake API so the binary is self-checking.
//
// Configuration is read from flags, then LUMIO_* environment variables
// (optionally via .env), then an optional lumio-smoke.yaml in the working
// directory:
//
//	api_url:  https://lms.example.com/api/v1
//	username: ana
//	password: secret
//	quiz_id:  quiz-1
//	storm:    16
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	lumio "github.com/lumioedu/lumio-go"
	"github.com/lumioedu/lumio-go/internal/apitest"
	"github.com/lumioedu/lumio-go/metrics/export/prometheus"
	"github.com/lumioedu/lumio-go/quiz"
)

func main() {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("lumio")
	v.AutomaticEnv()
	v.SetConfigName("lumio-smoke")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional

	v.SetDefault("username", "ana")
	v.SetDefault("password", "secret")
	v.SetDefault("quiz_id", "quiz-1")
	v.SetDefault("storm", 16)
	v.SetDefault("timeout", "30s")

	if err := run(v); err != nil {
		fmt.Fprintln(os.Stderr, "smoke failed:", err)
		os.Exit(1)
	}
	fmt.Println("smoke passed")
}

func run(v *viper.Viper) error {
	baseURL := v.GetString("api_url")
	username := v.GetString("username")
	password := v.GetString("password")
	quizID := v.GetString("quiz_id")
	storm := v.GetInt("storm")

	var fake *apitest.Server
	if baseURL == "" {
		fake = seedServer(username, password, quizID)
		defer fake.Close()
		baseURL = fake.URL()
		fmt.Println("no api_url configured; using in-process fake at", baseURL)
	}

	client, err := lumio.New().
		WithBaseURL(baseURL).
		WithTimeout(v.GetDuration("timeout")).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	if err := client.RestoreSession(ctx); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if client.IsLoggedIn() {
		return fmt.Errorf("restore: expected unauthenticated cold start")
	}

	if err := client.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Println("login ok:", client.CurrentUser().Username)

	session, err := quiz.Load(ctx, client.API(), client, quizID, quiz.Hooks{
		Loaded: client.RecordQuizLoaded,
		Scored: client.RecordAttemptScored,
		Failed: client.RecordAttemptFailed,
	})
	if err != nil {
		return fmt.Errorf("quiz load: %w", err)
	}

	for _, view := range session.Questions() {
		if len(view.Options) == 0 {
			return fmt.Errorf("question %s has no options", view.ID)
		}
		if err := session.SelectOption(view.ID, view.Options[0].ID); err != nil {
			return fmt.Errorf("select: %w", err)
		}
	}

	start := time.Now()
	result, err := session.Finish(ctx)
	if err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	fmt.Printf("finish ok: score %.0f in %s\n", result.Score, time.Since(start).Round(time.Millisecond))

	// Refresh storm: concurrent refreshes must collapse into one exchange.
	var wg sync.WaitGroup
	for i := 0; i < storm; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Refresh(ctx)
		}()
	}
	wg.Wait()
	snapshot := client.MetricsSnapshot()
	fmt.Printf("refresh storm: %d callers, %d deduplicated\n",
		storm, snapshot.Counters[lumio.MetricRefreshDeduplicated])

	client.Logout()
	if client.IsLoggedIn() {
		return fmt.Errorf("logout: session still present")
	}

	fmt.Println("---- metrics ----")
	fmt.Print(prometheus.NewExporter(client).Render())
	return nil
}

func seedServer(username, password, quizID string) *apitest.Server {
	server := apitest.New()
	server.AddUser(apitest.User{
		Name:     "Ana",
		Username: username,
		Password: password,
		RoleName: "Student",
	})
	server.AddQuiz(apitest.Quiz{
		ID:    quizID,
		Title: "Smoke quiz",
		Questions: []apitest.Question{
			{
				ID:        "q1",
				Text:      "1 + 1?",
				Options:   []apitest.OptionFixture{{ID: "q1-a", Text: "2"}, {ID: "q1-b", Text: "3"}},
				CorrectID: "q1-a",
			},
		},
	})
	server.AddBadge(apitest.Badge{Code: "gold", Name: "Gold", MinScore: 90})
	return server
}
