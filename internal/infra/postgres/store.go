package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/scoring"
)

// Store writes sessions, answers and profiles through bun and serves history reads.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateSession inserts the session row and bumps the topic's play count in one transaction.
func (s *Store) CreateSession(ctx context.Context, userID, topicID string, mode domain.Mode) (string, error) {
	row := &sessionRow{UserID: userID, TopicID: topicID, Mode: string(mode)}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("id, started_at").Exec(ctx); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		_, err := tx.NewUpdate().
			Model((*topicRow)(nil)).
			Set("play_count = play_count + 1").
			Where("id = ?", topicID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

func (s *Store) InsertAnswer(ctx context.Context, sessionID string, answer domain.AnsweredQuestion) error {
	row := &answerRow{
		SessionID:   sessionID,
		QuestionID:  answer.QuestionID,
		UserAnswer:  answer.Answer,
		IsCorrect:   answer.Correct,
		TimeTakenMs: answer.ElapsedMs,
		Points:      answer.Points,
		AnsweredAt:  answer.AnsweredAt,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

// CompleteSession only touches rows that are not completed yet.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, c domain.Completion) error {
	res, err := s.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("score = ?", c.Score).
		Set("xp_earned = ?", c.XPEarned).
		Set("questions_answered = ?", c.QuestionsAnswered).
		Set("correct_count = ?", c.CorrectCount).
		Set("total_time_seconds = ?", c.TotalTimeSeconds).
		Set("completed = true").
		Set("completed_at = ?", c.CompletedAt).
		Where("id = ?", sessionID).
		Where("completed = false").
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionCompleted
	}
	return nil
}

const incrementProfileSQL = `
INSERT INTO profiles (user_id, total_xp, games_played, questions_answered, correct_answers, level, updated_at)
VALUES (?, ?, 1, ?, ?, 1, now())
ON CONFLICT (user_id) DO UPDATE SET
	total_xp = profiles.total_xp + EXCLUDED.total_xp,
	games_played = profiles.games_played + 1,
	questions_answered = profiles.questions_answered + EXCLUDED.questions_answered,
	correct_answers = profiles.correct_answers + EXCLUDED.correct_answers,
	updated_at = EXCLUDED.updated_at
RETURNING total_xp`

// IncrementProfileStats upserts the additive stats and sets the level from the new total
// inside one transaction; the row lock taken by the upsert serializes concurrent finishes.
func (s *Store) IncrementProfileStats(ctx context.Context, userID string, delta domain.StatsDelta) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var total int
		if err := tx.QueryRowContext(ctx, incrementProfileSQL,
			userID, delta.XP, delta.Questions, delta.Correct,
		).Scan(&total); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		_, err := tx.NewUpdate().
			Model((*profileRow)(nil)).
			Set("level = ?", scoring.Level(total).Level).
			Where("user_id = ?", userID).
			Exec(ctx)
		return err
	})
}

func (s *Store) ListCompletedSessions(ctx context.Context, userID string, limit int) ([]domain.SessionRecord, error) {
	var rows []sessionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("completed = true").
		OrderExpr("completed_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListAnswers(ctx context.Context, sessionID string) ([]domain.AnsweredQuestion, error) {
	var rows []answerRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("answered_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnsweredQuestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row := new(profileRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return row.toDomain(), nil
}
