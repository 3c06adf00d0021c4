package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/opentdb"
)

// StaticQuestionSource serves questions from an in-memory bank (useful for
// tests, demos and playing offline). Each tier cycles through its questions.
type StaticQuestionSource struct {
	mu   sync.Mutex
	bank map[domain.Tier][]opentdb.RawQuestion
	next map[domain.Tier]int
	rnd  *rand.Rand
}

func NewStaticQuestionSource(bank map[domain.Tier][]opentdb.RawQuestion) *StaticQuestionSource {
	return &StaticQuestionSource{
		bank: bank,
		next: make(map[domain.Tier]int),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *StaticQuestionSource) FetchQuestion(ctx context.Context, tier domain.Tier) (domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return domain.Question{}, domain.NewNetworkError(err, "static bank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions := s.bank[tier]
	if len(questions) == 0 {
		return domain.Question{}, domain.NewNoQuestionsError("no %s questions in static bank", tier)
	}
	i := s.next[tier]
	s.next[tier] = (i + 1) % len(questions)
	return opentdb.BuildQuestion(questions[i], s.rnd), nil
}

// SampleBank provides a minimal set of questions per tier.
func SampleBank() map[domain.Tier][]opentdb.RawQuestion {
	return map[domain.Tier][]opentdb.RawQuestion{
		domain.TierEasy: {
			{
				Category:         "Animals",
				Question:         "How many legs does a spider have?",
				CorrectAnswer:    "8",
				IncorrectAnswers: []string{"6", "10", "4"},
			},
			{
				Category:         "Science &amp; Nature",
				Question:         "What colour do you get by mixing blue and yellow?",
				CorrectAnswer:    "Green",
				IncorrectAnswers: []string{"Purple", "Orange", "Brown"},
			},
		},
		domain.TierMedium: {
			{
				Category:         "Geography",
				Question:         "What is the capital of Australia?",
				CorrectAnswer:    "Canberra",
				IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"},
			},
			{
				Category:         "History",
				Question:         "In which year did the Berlin Wall fall?",
				CorrectAnswer:    "1989",
				IncorrectAnswers: []string{"1991", "1987", "1985"},
			},
		},
	}
}
