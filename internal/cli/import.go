package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	pgbank "trivia-service/internal/infra/postgres"
	"trivia-service/internal/logger"
	"trivia-service/internal/opentdb"
)

// maxImportAmount is the most questions the provider returns per request.
const maxImportAmount = 50

type importOptions struct {
	amount     int
	difficulty string
	category   int
}

// NewImportCmd copies questions from the provider into the offline bank.
func NewImportCmd(configPath *string) *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch questions from OpenTriviaDB into the Postgres question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, opts)
		},
	}
	cmd.Flags().IntVar(&opts.amount, "amount", 20, "questions to fetch (1-50)")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", string(domain.TierEasy), "easy, medium or hard")
	cmd.Flags().IntVar(&opts.category, "category", 0, "OpenTriviaDB category id (0 for any)")
	return cmd
}

func runImport(ctx context.Context, configPath string, opts importOptions) error {
	tier := domain.Tier(opts.difficulty)
	switch tier {
	case domain.TierEasy, domain.TierMedium, domain.TierHard:
	default:
		return fmt.Errorf("unknown difficulty %q", opts.difficulty)
	}
	if opts.amount < 1 || opts.amount > maxImportAmount {
		return fmt.Errorf("amount must be between 1 and %d", maxImportAmount)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	raw, err := newProviderClient(cfg, log).FetchRaw(ctx, opentdb.Request{
		Difficulty: tier,
		Amount:     opts.amount,
		Category:   opts.category,
	})
	if err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	inserted, err := pgbank.NewQuestionSource(pool).Store(ctx, tier, raw)
	if err != nil {
		return err
	}
	log.Info("questions imported",
		zap.String("difficulty", string(tier)),
		zap.Int("fetched", len(raw)),
		zap.Int("inserted", inserted),
	)
	return nil
}
