package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quiz-game-service/internal/auth"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/validation"
)

func currentUser(r *http.Request) string {
	userID, _ := auth.UserFromContext(r.Context())
	return userID
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.deps.Catalog.Topics(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, topics)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Catalog.Categories(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleFeaturedTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.deps.Catalog.Featured(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, topics)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.deps.Catalog.Topic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, topic)
}

type startGameRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}
	started, err := s.deps.Games.Start(r.Context(), req.Topic, currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, started)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Games.Snapshot(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Games.Question(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type submitAnswerRequest struct {
	Answer    string `json:"answer"`
	ElapsedMs int64  `json:"elapsedMs"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}
	if req.ElapsedMs < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "elapsedMs must not be negative")
		return
	}
	res, err := s.deps.Games.Answer(r.Context(), chi.URLParam(r, "id"), currentUser(r), req.Answer, req.ElapsedMs)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type advanceResponse struct {
	Done     bool        `json:"done"`
	Question interface{} `json:"question,omitempty"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	view, more, err := s.deps.Games.Advance(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	if !more {
		respondJSON(w, http.StatusOK, advanceResponse{Done: true})
		return
	}
	respondJSON(w, http.StatusOK, advanceResponse{Question: view})
}

func (s *Server) handleFinishGame(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Games.Finish(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	var perr *domain.PersistenceError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, summary)
	case errors.As(err, &perr):
		// the game is over either way; the summary is still valid
		s.logger.Warn("game finished without a stored completion", "session_id", summary.SessionID, "error", err)
		writeResponse(w, http.StatusOK, apiResponse{Success: true, Data: summary, Warning: "result could not be saved"})
	default:
		s.respondDomainError(w, r, err)
	}
}

func (s *Server) handleAbandonGame(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Games.Abandon(r.Context(), chi.URLParam(r, "id"), currentUser(r)); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"abandoned": true})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsValidUUID(id) {
		s.respondDomainError(w, r, domain.ErrSessionNotFound)
		return
	}
	result, err := s.deps.History.Results(r.Context(), id, currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.deps.History.History(r.Context(), currentUser(r), limit)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	entry, ok, err := s.deps.History.Recent(r.Context(), currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.deps.History.Profile(r.Context(), currentUser(r))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
