package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-game-service/internal/domain"
)

// Catalog reads topics and questions with pgx.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

const topicColumns = `id::text, slug, name, description, category, difficulty, play_count`

func scanTopic(row pgx.Row) (domain.Topic, error) {
	var t domain.Topic
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.Category, &t.Difficulty, &t.PlayCount)
	return t, err
}

func (c *Catalog) FindTopicBySlug(ctx context.Context, slug string) (domain.Topic, error) {
	t, err := scanTopic(c.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE slug=$1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("find topic: %w", err)
	}
	return t, nil
}

func (c *Catalog) TopicByID(ctx context.Context, topicID string) (domain.Topic, error) {
	t, err := scanTopic(c.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id::text=$1`, topicID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("topic by id: %w", err)
	}
	return t, nil
}

func (c *Catalog) ListTopics(ctx context.Context, category string) ([]domain.Topic, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE ($1::text = '' OR category = $1::text) ORDER BY name`, category)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return collectTopics(rows)
}

func (c *Catalog) FeaturedTopics(ctx context.Context, limit int) ([]domain.Topic, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+topicColumns+` FROM topics ORDER BY play_count DESC, name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("featured topics: %w", err)
	}
	return collectTopics(rows)
}

func (c *Catalog) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT DISTINCT category FROM topics WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

const questionColumns = `id::text, topic_id::text, question_text, correct_answer, incorrect_answers, explanation`

func (c *Catalog) ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE topic_id::text=$1 ORDER BY created_at, id LIMIT $2`,
		topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return collectQuestions(rows)
}

func (c *Catalog) QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id::text = ANY($1::text[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("questions by ids: %w", err)
	}
	return collectQuestions(rows)
}

func collectTopics(rows pgx.Rows) ([]domain.Topic, error) {
	defer rows.Close()
	var out []domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func collectQuestions(rows pgx.Rows) ([]domain.Question, error) {
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Text, &q.CorrectAnswer, &q.IncorrectAnswers, &q.Explanation); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
