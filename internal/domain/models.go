package domain

import "time"

// Mode tags how a session was played.
type Mode string

const (
	ModePractice Mode = "practice"
)

// Topic is a named category of questions addressed by its slug.
type Topic struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	PlayCount   int    `json:"playCount"`
}

// Question is a multiple-choice question with exactly one correct answer text.
type Question struct {
	ID               string   `json:"id"`
	TopicID          string   `json:"topicId"`
	Text             string   `json:"text"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Explanation      string   `json:"explanation,omitempty"`
}

// Choices returns the correct answer followed by the incorrect ones.
func (q Question) Choices() []string {
	choices := make([]string, 0, len(q.IncorrectAnswers)+1)
	choices = append(choices, q.CorrectAnswer)
	return append(choices, q.IncorrectAnswers...)
}

// AnsweredQuestion records one answer inside a session. An empty Answer means the
// question timed out without a selection.
type AnsweredQuestion struct {
	QuestionID string    `json:"questionId"`
	Answer     string    `json:"answer"`
	Correct    bool      `json:"correct"`
	ElapsedMs  int64     `json:"elapsedMs"`
	Points     int       `json:"points"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// AnswerResult is the immediate feedback for a submission.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	TotalScore    int    `json:"totalScore"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
	Answered      int    `json:"answered"`
	Remaining     int    `json:"remaining"`
}

// QuestionView is what a player sees for the current question.
type QuestionView struct {
	SessionID        string   `json:"sessionId"`
	QuestionID       string   `json:"questionId"`
	Number           int      `json:"number"`
	Total            int      `json:"total"`
	Text             string   `json:"text"`
	Choices          []string `json:"choices"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	Score            int      `json:"score"`
}

// Completion carries the final figures written to the session record.
type Completion struct {
	Score             int       `json:"score"`
	XPEarned          int       `json:"xpEarned"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	CorrectCount      int       `json:"correctCount"`
	TotalTimeSeconds  int       `json:"totalTimeSeconds"`
	CompletedAt       time.Time `json:"completedAt"`
}

// Summary is returned to the player once a session is finished.
type Summary struct {
	SessionID         string `json:"sessionId"`
	Score             int    `json:"score"`
	CorrectCount      int    `json:"correctCount"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	TotalTimeSeconds  int    `json:"totalTimeSeconds"`
	XPEarned          int    `json:"xpEarned"`
}

// StatsDelta is the contribution of one session to a profile aggregate.
type StatsDelta struct {
	XP        int
	Questions int
	Correct   int
}

// Profile is the per-user aggregate maintained by the store.
type Profile struct {
	UserID            string    `json:"userId"`
	Username          string    `json:"username,omitempty"`
	TotalXP           int       `json:"totalXp"`
	Level             int       `json:"level"`
	GamesPlayed       int       `json:"gamesPlayed"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	CorrectAnswers    int       `json:"correctAnswers"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SessionRecord is the persisted mirror of a game session.
type SessionRecord struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	TopicID           string     `json:"topicId"`
	Mode              Mode       `json:"mode"`
	Score             int        `json:"score"`
	XPEarned          int        `json:"xpEarned"`
	QuestionsAnswered int        `json:"questionsAnswered"`
	CorrectCount      int        `json:"correctCount"`
	TotalTimeSeconds  int        `json:"totalTimeSeconds"`
	Completed         bool       `json:"completed"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// HistoryEntry pairs a completed session with its topic.
type HistoryEntry struct {
	Session SessionRecord `json:"session"`
	Topic   Topic         `json:"topic"`
}

// AnswerReview joins a persisted answer with its question for the results view.
type AnswerReview struct {
	AnsweredQuestion
	QuestionText     string   `json:"questionText"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Explanation      string   `json:"explanation,omitempty"`
}

// SessionResult is the full review of one finished session.
type SessionResult struct {
	Session SessionRecord  `json:"session"`
	Topic   Topic          `json:"topic"`
	Answers []AnswerReview `json:"answers"`
}
