package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTopicNotFound is returned when no topic matches a slug or id.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrNoQuestionsAvailable is returned when a topic has no playable questions.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrNotEnoughQuestions is returned when the pool is smaller than a full session.
	ErrNotEnoughQuestions = fmt.Errorf("not enough questions for a full session: %w", ErrNoQuestionsAvailable)
	// ErrInvalidState indicates a transition was attempted out of order.
	ErrInvalidState = errors.New("invalid game state")
	// ErrAnswerPending is returned when an answer is submitted before the previous result was acknowledged.
	ErrAnswerPending = fmt.Errorf("previous answer not acknowledged: %w", ErrInvalidState)
	// ErrNoActiveSession is returned when finishing a game that was never started.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidSlug indicates a malformed topic slug.
	ErrInvalidSlug = errors.New("invalid topic slug")
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrSessionCompleted is returned when a persisted session is already completed.
	ErrSessionCompleted = errors.New("game session already completed")
	// ErrProfileNotFound is returned when a user has never finished a game.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrUnauthenticated indicates a request carried no valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a user acted on a session they do not own.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited indicates the caller exceeded the answer rate.
	ErrRateLimited = errors.New("rate limited")
)

// PersistenceError wraps a failed call to the backing store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err as a PersistenceError unless it is nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
