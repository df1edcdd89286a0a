package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/auth"
	"quiz-game-service/internal/timer"
)

// Deps are the use cases and settings the HTTP surface is built from.
type Deps struct {
	Games    *app.GameService
	Catalog  *app.CatalogService
	History  *app.HistoryService
	Verifier *auth.Verifier
	Logger   *slog.Logger

	AllowedOrigins []string
	RequestTimeout time.Duration
	// ResultDelay is how long a live game shows an answer result before the next question.
	ResultDelay  time.Duration
	TimerOptions []timer.Option
}

// Server represents the HTTP API server.
type Server struct {
	deps   Deps
	logger *slog.Logger
	router *chi.Mux
	play   *PlayHandler
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		play:   NewPlayHandler(deps.Games, deps.ResultDelay, deps.Logger, deps.TimerOptions...),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)

	authenticate := auth.Middleware(s.deps.Verifier, s.rejectUnauthenticated)

	// live games hold the connection open, so no request timeout here
	r.With(authenticate).Get("/ws/play", s.play.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.deps.RequestTimeout))
		r.Use(authenticate)

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", s.handleListTopics)
			r.Get("/categories", s.handleListCategories)
			r.Get("/featured", s.handleFeaturedTopics)
			r.Get("/{slug}", s.handleGetTopic)
		})

		r.Route("/games", func(r chi.Router) {
			r.Post("/", s.handleStartGame)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGame)
				r.Delete("/", s.handleAbandonGame)
				r.Get("/question", s.handleCurrentQuestion)
				r.Post("/answers", s.handleSubmitAnswer)
				r.Post("/advance", s.handleAdvance)
				r.Post("/finish", s.handleFinishGame)
			})
		})

		r.Get("/results/{id}", s.handleResults)
		r.Get("/history", s.handleHistory)
		r.Get("/history/recent", s.handleRecent)
		r.Get("/profile", s.handleProfile)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) rejectUnauthenticated(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Debug("unauthenticated request", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusUnauthorized, "unauthenticated", "a valid bearer token is required")
}
