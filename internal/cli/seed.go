package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-game-service/internal/config"
	"quiz-game-service/internal/infra/postgres"
)

// NewSeedCmd loads a YAML question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML question bank into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if file == "" {
				file = cfg.Quiz.BankPath
			}
			if file == "" {
				return fmt.Errorf("no question bank given: pass --file or set quiz.bank_path")
			}
			bank, err := config.LoadQuestionBank(file)
			if err != nil {
				return err
			}

			db := openDB(cfg.Postgres.URL)
			defer db.Close()
			if err := migrateUp(cmd.Context(), db, logger); err != nil {
				return err
			}
			res, err := postgres.Seed(cmd.Context(), db, bank)
			if err != nil {
				return err
			}
			logger.Info("question bank seeded", "file", file, "topics", res.Topics, "questions", res.Questions)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the YAML question bank")
	return cmd
}
