package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quiz-game-service/internal/domain"
)

type topicRow struct {
	bun.BaseModel `bun:"table:topics,alias:t"`

	ID          string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Slug        string    `bun:"slug,unique,notnull"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	Category    string    `bun:"category"`
	Difficulty  string    `bun:"difficulty"`
	PlayCount   int       `bun:"play_count"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:now()"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID               string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	TopicID          string    `bun:"topic_id,type:uuid,notnull"`
	Text             string    `bun:"question_text,notnull"`
	CorrectAnswer    string    `bun:"correct_answer,notnull"`
	IncorrectAnswers []string  `bun:"incorrect_answers,array"`
	Explanation      string    `bun:"explanation"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:now()"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID                string     `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID            string     `bun:"user_id,notnull"`
	TopicID           string     `bun:"topic_id,type:uuid,notnull"`
	Mode              string     `bun:"mode"`
	Score             int        `bun:"score"`
	XPEarned          int        `bun:"xp_earned"`
	QuestionsAnswered int        `bun:"questions_answered"`
	CorrectCount      int        `bun:"correct_count"`
	TotalTimeSeconds  int        `bun:"total_time_seconds"`
	Completed         bool       `bun:"completed"`
	StartedAt         time.Time  `bun:"started_at,nullzero,default:now()"`
	CompletedAt       *time.Time `bun:"completed_at"`
}

func (r sessionRow) toDomain() domain.SessionRecord {
	return domain.SessionRecord{
		ID:                r.ID,
		UserID:            r.UserID,
		TopicID:           r.TopicID,
		Mode:              domain.Mode(r.Mode),
		Score:             r.Score,
		XPEarned:          r.XPEarned,
		QuestionsAnswered: r.QuestionsAnswered,
		CorrectCount:      r.CorrectCount,
		TotalTimeSeconds:  r.TotalTimeSeconds,
		Completed:         r.Completed,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:game_answers,alias:ga"`

	ID          string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	SessionID   string    `bun:"session_id,type:uuid,notnull"`
	QuestionID  string    `bun:"question_id,type:uuid,notnull"`
	UserAnswer  string    `bun:"user_answer"`
	IsCorrect   bool      `bun:"is_correct"`
	TimeTakenMs int64     `bun:"time_taken_ms"`
	Points      int       `bun:"points"`
	AnsweredAt  time.Time `bun:"answered_at,nullzero,default:now()"`
}

func (r answerRow) toDomain() domain.AnsweredQuestion {
	return domain.AnsweredQuestion{
		QuestionID: r.QuestionID,
		Answer:     r.UserAnswer,
		Correct:    r.IsCorrect,
		ElapsedMs:  r.TimeTakenMs,
		Points:     r.Points,
		AnsweredAt: r.AnsweredAt,
	}
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	UserID            string    `bun:"user_id,pk"`
	Username          string    `bun:"username"`
	TotalXP           int       `bun:"total_xp"`
	Level             int       `bun:"level"`
	GamesPlayed       int       `bun:"games_played"`
	QuestionsAnswered int       `bun:"questions_answered"`
	CorrectAnswers    int       `bun:"correct_answers"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,default:now()"`
}

func (r profileRow) toDomain() domain.Profile {
	return domain.Profile{
		UserID:            r.UserID,
		Username:          r.Username,
		TotalXP:           r.TotalXP,
		Level:             r.Level,
		GamesPlayed:       r.GamesPlayed,
		QuestionsAnswered: r.QuestionsAnswered,
		CorrectAnswers:    r.CorrectAnswers,
		UpdatedAt:         r.UpdatedAt,
	}
}
