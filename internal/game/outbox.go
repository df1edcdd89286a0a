package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quiz-game-service/internal/domain"
)

// OutboxConfig controls delivery of answer rows.
type OutboxConfig struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	AttemptTimeout time.Duration
}

func (c OutboxConfig) withDefaults() OutboxConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 5 * time.Second
	}
	return c
}

// outbox delivers a session's answers in submission order on a single worker.
// close waits for every queued answer to be delivered or to exhaust its retries.
type outbox struct {
	writer    answerWriter
	sessionID string
	cfg       OutboxConfig
	logger    *slog.Logger

	queue     chan domain.AnsweredQuestion
	done      chan struct{}
	closeOnce sync.Once

	// written by the worker only; read after done is closed
	delivered int
	failed    int
}

func newOutbox(writer answerWriter, sessionID string, capacity int, cfg OutboxConfig, logger *slog.Logger) *outbox {
	o := &outbox{
		writer:    writer,
		sessionID: sessionID,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		queue:     make(chan domain.AnsweredQuestion, capacity),
		done:      make(chan struct{}),
	}
	go o.run()
	return o
}

// enqueue never blocks: capacity equals the number of questions in the session.
func (o *outbox) enqueue(answer domain.AnsweredQuestion) {
	o.queue <- answer
}

func (o *outbox) run() {
	defer close(o.done)
	for answer := range o.queue {
		if o.deliver(answer) {
			o.delivered++
		} else {
			o.failed++
		}
	}
}

func (o *outbox) deliver(answer domain.AnsweredQuestion) bool {
	for attempt := 0; attempt < o.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.AttemptTimeout)
		err := o.writer.InsertAnswer(ctx, o.sessionID, answer)
		cancel()
		if err == nil {
			return true
		}
		o.logger.Warn("answer write failed",
			"session_id", o.sessionID,
			"question_id", answer.QuestionID,
			"attempt", attempt+1,
			"error", err,
		)
		if attempt < o.cfg.MaxAttempts-1 {
			time.Sleep(o.cfg.BaseBackoff << attempt)
		}
	}
	return false
}

// close stops accepting answers and waits for the queue to drain.
func (o *outbox) close(ctx context.Context) error {
	o.closeOnce.Do(func() { close(o.queue) })
	select {
	case <-o.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if o.failed > 0 {
		return fmt.Errorf("%d of %d answer writes failed", o.failed, o.failed+o.delivered)
	}
	return nil
}

// abandon stops accepting answers and lets the worker drain in the background.
func (o *outbox) abandon() {
	o.closeOnce.Do(func() { close(o.queue) })
}
