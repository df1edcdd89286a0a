package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/auth"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
	"quiz-game-service/internal/infra/postgres"
	pgmigrations "quiz-game-service/internal/infra/postgres/migrations"
	infraredis "quiz-game-service/internal/infra/redis"
	"quiz-game-service/internal/scoring"
)

func TestFullGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openMigrated(t, ctx, pgURL)
	defer db.Close()

	res, err := postgres.Seed(ctx, db, sampleBank())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Topics != 1 || res.Questions != 8 {
		t.Fatalf("expected 1 topic and 8 questions, got %+v", res)
	}
	again, err := postgres.Seed(ctx, db, sampleBank())
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if again.Questions != 0 {
		t.Fatalf("expected reseed to insert no questions, got %d", again.Questions)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(postgres.NewCatalog(pool), postgres.NewStore(db))

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	questions := infraredis.NewQuestionCache(redisClient, repo, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)

	cfg := game.DefaultConfig()
	cfg.Outbox = game.OutboxConfig{MaxAttempts: 3, BaseBackoff: 10 * time.Millisecond}
	games := app.NewGameService(sessions, app.WithQuestionCache(repo, questions), auth.Resolver{}, cfg)
	history := app.NewHistoryService(repo, repo)

	ctx = auth.WithUser(ctx, "u1")
	started, err := games.Start(ctx, "space", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok, err := sessions.LoadSnapshot(ctx, started.SessionID); err != nil || !ok {
		t.Fatalf("expected a live snapshot in redis, ok=%v err=%v", ok, err)
	}

	view := started.Question
	for i := 0; i < cfg.QuestionsPerSession; i++ {
		qs, err := repo.QuestionsByIDs(ctx, []string{view.QuestionID})
		if err != nil || len(qs) != 1 {
			t.Fatalf("load question %s: %v (%d rows)", view.QuestionID, err, len(qs))
		}
		result, err := games.Answer(ctx, started.SessionID, "u1", qs[0].CorrectAnswer, 1000)
		if err != nil {
			t.Fatalf("answer %d: %v", i+1, err)
		}
		if !result.Correct || result.Points != 145 {
			t.Fatalf("expected 145 points for a correct answer, got %+v", result)
		}
		next, more, err := games.Advance(ctx, started.SessionID, "u1")
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if more != (i < cfg.QuestionsPerSession-1) {
			t.Fatalf("unexpected more=%v after question %d", more, i+1)
		}
		view = next
	}

	summary, err := games.Finish(ctx, started.SessionID, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if summary.Score != 7*145 || summary.CorrectCount != 7 || summary.XPEarned != scoring.XPForSession(7*145) {
		t.Fatalf("unexpected summary %+v", summary)
	}

	err = repo.CompleteSession(ctx, started.SessionID, domain.Completion{Score: 1})
	if !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected second completion to be rejected, got %v", err)
	}

	results, err := history.Results(ctx, started.SessionID, "u1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results.Answers) != 7 || !results.Session.Completed || results.Session.Score != summary.Score {
		t.Fatalf("unexpected results %+v", results.Session)
	}
	for _, a := range results.Answers {
		if a.QuestionText == "" || a.CorrectAnswer != a.Answer {
			t.Fatalf("unexpected answer review %+v", a)
		}
	}

	entries, err := history.History(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Topic.Slug != "space" {
		t.Fatalf("unexpected history %+v", entries)
	}

	profile, err := history.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.GamesPlayed != 1 || profile.TotalXP != summary.XPEarned || profile.Level != scoring.Level(summary.XPEarned).Level {
		t.Fatalf("unexpected profile %+v", profile)
	}

	topic, err := repo.FindTopicBySlug(ctx, "space")
	if err != nil {
		t.Fatalf("find topic: %v", err)
	}
	if topic.PlayCount != 1 {
		t.Fatalf("expected play count 1, got %d", topic.PlayCount)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func openMigrated(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleBank() domain.QuestionBank {
	questions := make([]domain.BankQuestion, 0, 8)
	for i := 1; i <= 8; i++ {
		questions = append(questions, domain.BankQuestion{
			Text:        fmt.Sprintf("Space question %d?", i),
			Correct:     fmt.Sprintf("answer-%d", i),
			Incorrect:   []string{"decoy-a", "decoy-b", "decoy-c"},
			Explanation: fmt.Sprintf("Fact %d.", i),
		})
	}
	return domain.QuestionBank{Topics: []domain.BankTopic{{
		Slug:       "space",
		Name:       "Space",
		Category:   "science",
		Difficulty: "medium",
		Questions:  questions,
	}}}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
