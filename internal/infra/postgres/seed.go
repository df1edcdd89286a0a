package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-game-service/internal/domain"
)

// SeedResult counts what a seed run inserted.
type SeedResult struct {
	Topics    int
	Questions int
}

// Seed upserts every topic of the bank by slug and inserts questions that are not present
// yet, all in one transaction. Running it twice is a no-op for questions.
func Seed(ctx context.Context, db *bun.DB, bank domain.QuestionBank) (SeedResult, error) {
	if err := bank.Validate(); err != nil {
		return SeedResult{}, err
	}
	var result SeedResult
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, bt := range bank.Topics {
			topic := &topicRow{
				Slug:        bt.Slug,
				Name:        bt.Name,
				Description: bt.Description,
				Category:    bt.Category,
				Difficulty:  bt.Difficulty,
			}
			_, err := tx.NewInsert().
				Model(topic).
				On("CONFLICT (slug) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("description = EXCLUDED.description").
				Set("category = EXCLUDED.category").
				Set("difficulty = EXCLUDED.difficulty").
				Returning("id").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("upsert topic %q: %w", bt.Slug, err)
			}
			result.Topics++

			if len(bt.Questions) == 0 {
				continue
			}
			rows := make([]questionRow, 0, len(bt.Questions))
			for _, bq := range bt.Questions {
				rows = append(rows, questionRow{
					TopicID:          topic.ID,
					Text:             bq.Text,
					CorrectAnswer:    bq.Correct,
					IncorrectAnswers: bq.Incorrect,
					Explanation:      bq.Explanation,
				})
			}
			res, err := tx.NewInsert().
				Model(&rows).
				On("CONFLICT (topic_id, question_text) DO NOTHING").
				Returning("NULL").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("insert questions for %q: %w", bt.Slug, err)
			}
			n, _ := res.RowsAffected()
			result.Questions += int(n)
		}
		return nil
	})
	return result, err
}
