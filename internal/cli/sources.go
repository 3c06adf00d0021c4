package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"trivia-service/internal/config"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
	pgbank "trivia-service/internal/infra/postgres"
	"trivia-service/internal/opentdb"
)

const (
	sourceOpenTDB  = "opentdb"
	sourcePostgres = "postgres"
	sourceMemory   = "memory"
)

func newProviderClient(cfg config.Config, logger *zap.Logger) *opentdb.Client {
	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Provider.Timeout, 10*time.Second)}
	return opentdb.NewClient(httpClient,
		opentdb.WithBaseURL(cfg.Provider.BaseURL),
		opentdb.WithLogger(logger.Named("opentdb")),
	)
}

// newQuestionSource picks where questions come from. The returned close
// function releases any pool it opened.
func newQuestionSource(ctx context.Context, cfg config.Config, name string, logger *zap.Logger) (game.QuestionSource, func(), error) {
	switch name {
	case "", sourceOpenTDB:
		return newProviderClient(cfg, logger), func() {}, nil
	case sourceMemory:
		return memory.NewStaticQuestionSource(memory.SampleBank()), func() {}, nil
	case sourcePostgres:
		if cfg.Postgres.URL == "" {
			return nil, nil, fmt.Errorf("postgres url not configured")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgbank.NewQuestionSource(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown question source %q (want %s, %s or %s)", name, sourceOpenTDB, sourcePostgres, sourceMemory)
}
