package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-game-service/internal/domain"
)

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, apiResponse{
		Success: false,
		Error:   &apiError{Code: code, Message: message},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// errorStatus maps the domain error taxonomy onto HTTP statuses and stable codes.
func errorStatus(err error) (int, string) {
	var perr *domain.PersistenceError
	switch {
	case errors.Is(err, domain.ErrInvalidSlug):
		return http.StatusBadRequest, "invalid_slug"
	case errors.Is(err, domain.ErrTopicNotFound):
		return http.StatusNotFound, "topic_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "game_not_found"
	case errors.Is(err, domain.ErrNotEnoughQuestions):
		return http.StatusUnprocessableEntity, "not_enough_questions"
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		return http.StatusUnprocessableEntity, "no_questions"
	case errors.Is(err, domain.ErrAnswerPending):
		return http.StatusConflict, "answer_pending"
	case errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusConflict, "no_active_game"
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrSessionCompleted):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.As(err, &perr):
		return http.StatusBadGateway, "persistence_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "code", code, "error", err)
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	respondError(w, status, code, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
