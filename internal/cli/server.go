package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/auth"
	"quiz-game-service/internal/cleanup"
	"quiz-game-service/internal/config"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
	"quiz-game-service/internal/infra/memory"
	"quiz-game-service/internal/infra/postgres"
	redisinfra "quiz-game-service/internal/infra/redis"
	transport "quiz-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend is the store behind the game, catalog and history use cases.
type backend struct {
	gateway game.Gateway
	catalog app.Catalog
	history app.HistoryStore
	loader  memory.QuestionLoader
	close   func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	gameOpts := []app.GameOption{app.WithGameLogger(logger)}
	var (
		questions app.QuestionSource
		sessions  app.SessionRepository
	)
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, store.loader, quizTTL)
		sessions = redisinfra.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, 30*time.Minute))
		if cfg.RateLimit.AnswersPerMinute > 0 {
			gameOpts = append(gameOpts, app.WithAnswerLimiter(redisinfra.NewAnswerLimiter(redisClient, cfg.RateLimit.AnswersPerMinute)))
		}
	} else {
		questions = memory.NewQuestionCache(store.loader, quizTTL)
		sessions = memory.NewSessionStore()
	}

	games := app.NewGameService(sessions, app.WithQuestionCache(store.gateway, questions), auth.Resolver{}, cfg.GameConfig(), gameOpts...)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = uuid.NewString()
		logger.Warn("auth.jwt_secret not set, using a random secret; tokens will not survive a restart")
	}
	verifier := auth.NewVerifier(jwtSecret, cfg.Auth.Issuer, config.Duration(cfg.Auth.TokenTTL, 24*time.Hour))

	reaper := cleanup.NewReaper(games,
		orDefault(cfg.Reaper.Schedule, "@every 1m"),
		config.Duration(cfg.Reaper.IdleTTL, 30*time.Minute),
		logger)
	if err := reaper.Start(); err != nil {
		return err
	}
	defer reaper.Stop()

	api := transport.NewServer(transport.Deps{
		Games:          games,
		Catalog:        app.NewCatalogService(store.catalog),
		History:        app.NewHistoryService(store.history, store.catalog),
		Verifier:       verifier,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: config.Duration(cfg.Server.RequestTimeout, 30*time.Second),
		ResultDelay:    config.Duration(cfg.Game.ResultDelay, 1500*time.Millisecond),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openBackend connects Postgres when configured; otherwise it serves the question bank
// from memory.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	if cfg.Postgres.URL == "" {
		bank := sampleBank()
		if cfg.Quiz.BankPath != "" {
			loaded, err := config.LoadQuestionBank(cfg.Quiz.BankPath)
			if err != nil {
				return backend{}, err
			}
			bank = loaded
		}
		store, err := memory.NewStoreFromBank(bank)
		if err != nil {
			return backend{}, err
		}
		logger.Warn("postgres not configured, games are kept in memory", "topics", len(bank.Topics))
		return backend{gateway: store, catalog: store, history: store, loader: store, close: func() {}}, nil
	}

	db := openDB(cfg.Postgres.URL)
	if err := migrateUp(ctx, db, logger); err != nil {
		db.Close()
		return backend{}, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return backend{}, err
	}
	repo := postgres.NewRepository(postgres.NewCatalog(pool), postgres.NewStore(db))
	return backend{
		gateway: repo,
		catalog: repo,
		history: repo,
		loader:  repo,
		close: func() {
			pool.Close()
			db.Close()
		},
	}, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// sampleBank is the built-in catalog used when neither Postgres nor quiz.bank_path is set.
func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{Topics: []domain.BankTopic{
		{
			Slug:        "general-knowledge",
			Name:        "General Knowledge",
			Description: "A little bit of everything.",
			Category:    "trivia",
			Difficulty:  "easy",
			Questions: []domain.BankQuestion{
				{Text: "What is the capital of France?", Correct: "Paris", Incorrect: []string{"Lyon", "Marseille", "Nice"}},
				{Text: "How many continents are there?", Correct: "7", Incorrect: []string{"5", "6", "8"}},
				{Text: "Which planet is known as the Red Planet?", Correct: "Mars", Incorrect: []string{"Venus", "Jupiter", "Mercury"}},
				{Text: "What is the largest ocean on Earth?", Correct: "Pacific", Incorrect: []string{"Atlantic", "Indian", "Arctic"}},
				{Text: "Who painted the Mona Lisa?", Correct: "Leonardo da Vinci", Incorrect: []string{"Michelangelo", "Raphael", "Donatello"}},
				{Text: "What is the chemical symbol for gold?", Correct: "Au", Incorrect: []string{"Ag", "Gd", "Go"}},
				{Text: "How many legs does a spider have?", Correct: "8", Incorrect: []string{"6", "10", "12"}},
				{Text: "Which language has the most native speakers?", Correct: "Mandarin Chinese", Incorrect: []string{"English", "Spanish", "Hindi"}},
			},
		},
		{
			Slug:        "arithmetic",
			Name:        "Arithmetic",
			Description: "Quick sums against the clock.",
			Category:    "math",
			Difficulty:  "easy",
			Questions: []domain.BankQuestion{
				{Text: "What is 7 x 8?", Correct: "56", Incorrect: []string{"54", "48", "64"}},
				{Text: "What is 144 / 12?", Correct: "12", Incorrect: []string{"11", "14", "10"}},
				{Text: "What is 15 + 27?", Correct: "42", Incorrect: []string{"41", "32", "52"}},
				{Text: "What is 9 squared?", Correct: "81", Incorrect: []string{"72", "90", "18"}},
				{Text: "What is 100 - 37?", Correct: "63", Incorrect: []string{"73", "67", "53"}},
				{Text: "What is the square root of 64?", Correct: "8", Incorrect: []string{"6", "7", "9"}},
				{Text: "What is 25% of 200?", Correct: "50", Incorrect: []string{"25", "40", "75"}},
				{Text: "What is 3 cubed?", Correct: "27", Incorrect: []string{"9", "81", "18"}},
			},
		},
	}}
}
