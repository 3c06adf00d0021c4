package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
	"trivia-service/internal/opentdb"
)

// QuestionSource serves questions from the offline bank in Postgres.
type QuestionSource struct {
	pool *pgxpool.Pool

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{
		pool: pool,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchQuestion picks a random stored question for the tier. An empty tier is
// reported like an empty provider response; query failures like a network error.
func (s *QuestionSource) FetchQuestion(ctx context.Context, tier domain.Tier) (domain.Question, error) {
	var raw opentdb.RawQuestion
	err := s.pool.QueryRow(ctx, `
		SELECT category, question, correct_answer, incorrect_answers
		FROM questions
		WHERE difficulty = $1
		ORDER BY random()
		LIMIT 1`, string(tier)).Scan(&raw.Category, &raw.Question, &raw.CorrectAnswer, &raw.IncorrectAnswers)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.NewNoQuestionsError("no %s questions in bank", tier)
	}
	if err != nil {
		return domain.Question{}, domain.NewNetworkError(err, "load question")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return opentdb.BuildQuestion(raw, s.rnd), nil
}

// Store saves provider questions under the given tier. Questions already in
// the bank are skipped. It returns how many rows were inserted.
func (s *QuestionSource) Store(ctx context.Context, tier domain.Tier, questions []opentdb.RawQuestion) (int, error) {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`
			INSERT INTO questions (difficulty, category, question, correct_answer, incorrect_answers)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (difficulty, question) DO NOTHING`,
			string(tier), q.Category, q.Question, q.CorrectAnswer, q.IncorrectAnswers)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range questions {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("store question: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
