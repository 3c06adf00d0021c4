package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trivia-service/internal/domain"
)

// QuestionSource fetches one question for a tier. Failures are *domain.FetchError.
type QuestionSource interface {
	FetchQuestion(ctx context.Context, tier domain.Tier) (domain.Question, error)
}

// SessionOptions tunes a single game.
type SessionOptions struct {
	// MaxConsecutiveSkips stops StartTurn after that many fetch failures in a
	// row. Zero keeps skipping for as long as the context allows.
	MaxConsecutiveSkips int
	Logger              *zap.Logger
}

// Session is one running game: its players, whose turn it is and the
// question awaiting an answer. All turn operations are serialized.
type Session struct {
	id        string
	createdAt time.Time
	source    QuestionSource
	logger    *zap.Logger
	maxSkips  int

	mu        sync.Mutex
	registry  *Registry
	scheduler *Scheduler
	current   *domain.Question
	over      bool

	subMu       sync.Mutex
	last        *domain.TurnEvent
	subscribers map[chan domain.TurnEvent]struct{}
}

// NewSession registers the players and positions the game at round 1, first player.
func NewSession(id string, setups []domain.PlayerSetup, source QuestionSource, opts SessionOptions) (*Session, error) {
	registry, err := NewRegistry(setups)
	if err != nil {
		return nil, err
	}
	scheduler, err := NewScheduler(registry.Len())
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		id:          id,
		createdAt:   time.Now(),
		source:      source,
		logger:      logger.With(zap.String("game", id)),
		maxSkips:    opts.MaxConsecutiveSkips,
		registry:    registry,
		scheduler:   scheduler,
		subscribers: make(map[chan domain.TurnEvent]struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// StartTurn fetches a question for the current player. A failed fetch skips
// that player and tries the next one. If a question is already pending it is
// returned again without fetching.
func (s *Session) StartTurn(ctx context.Context) (domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTurnLocked(ctx)
}

func (s *Session) startTurnLocked(ctx context.Context) (domain.Turn, error) {
	if s.over {
		return domain.Turn{}, domain.ErrGameOver
	}
	if s.current != nil {
		return s.turnLocked(), nil
	}

	skips := 0
	for {
		if err := ctx.Err(); err != nil {
			return domain.Turn{}, fmt.Errorf("start turn: %w", err)
		}

		player := s.registry.At(s.scheduler.Index())
		question, err := s.source.FetchQuestion(ctx, player.Tier)
		if err == nil {
			s.current = &question
			turn := s.turnLocked()
			s.broadcast(domain.TurnEvent{
				Type:     domain.EventTurn,
				Round:    turn.Round,
				Player:   turn.Player,
				Question: &turn.Question,
			})
			return turn, nil
		}

		var fetchErr *domain.FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = domain.NewNetworkError(err, "fetch question")
		}
		s.logger.Warn("skipping turn",
			zap.String("player", player.Name),
			zap.String("tier", string(player.Tier)),
			zap.String("kind", string(fetchErr.Kind)),
			zap.Error(err),
		)
		s.broadcast(domain.TurnEvent{
			Type:    domain.EventFetchError,
			Round:   s.scheduler.Round(),
			Player:  player.Name,
			Failure: fetchErr,
		})
		s.scheduler.Advance()

		skips++
		if s.maxSkips > 0 && skips >= s.maxSkips {
			return domain.Turn{}, fmt.Errorf("%w: %d consecutive fetch failures", domain.ErrProviderUnavailable, skips)
		}
	}
}

// SubmitAnswer scores a 1-based selection for the current player, moves to
// the next player and starts their turn. An invalid selection changes nothing.
// When the answer was scored but the next turn could not start, the result is
// returned together with the error.
func (s *Session) SubmitAnswer(ctx context.Context, selected int) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.AnswerResult{}, domain.ErrGameOver
	}
	// 0 means nothing was selected, which is rejected even without a question.
	if selected < 1 {
		return domain.AnswerResult{}, fmt.Errorf("%w: nothing selected", domain.ErrInvalidSelection)
	}
	if s.current == nil {
		return domain.AnswerResult{}, domain.ErrNoActiveQuestion
	}
	question := s.current
	if selected > len(question.Options) {
		return domain.AnswerResult{}, fmt.Errorf("%w: %d is not between 1 and %d", domain.ErrInvalidSelection, selected, len(question.Options))
	}

	player := s.registry.At(s.scheduler.Index())
	correct := question.Options[selected-1] == question.CorrectAnswer
	if correct {
		player.Score++
	}

	result := domain.AnswerResult{
		Player:     player.Name,
		Correct:    correct,
		TotalScore: player.Score,
	}
	if !correct {
		result.CorrectAnswer = question.CorrectAnswer
	}
	s.broadcast(domain.TurnEvent{
		Type:   domain.EventAnswer,
		Round:  s.scheduler.Round(),
		Player: player.Name,
		Result: &result,
	})

	s.current = nil
	s.scheduler.Advance()

	if _, err := s.startTurnLocked(ctx); err != nil {
		return result, fmt.Errorf("next turn: %w", err)
	}
	return result, nil
}

// EndGame ranks the players and closes the game. Calling it again returns the
// same ranking.
func (s *Session) EndGame() []domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := Rank(s.registry.Players())
	if !s.over {
		s.over = true
		s.current = nil
		s.broadcast(domain.TurnEvent{
			Type:        domain.EventGameOver,
			Round:       s.scheduler.Round(),
			Leaderboard: ranked,
		})
	}
	return ranked
}

// Snapshot reports the round, the current player and any pending question.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{
		GameID:  s.id,
		Round:   s.scheduler.Round(),
		Player:  s.registry.At(s.scheduler.Index()).Name,
		Players: s.registry.Players(),
		Over:    s.over,
	}
	if s.current != nil {
		public := s.current.Public()
		snap.Question = &public
	}
	return snap
}

// Subscribe returns a channel of turn events. The most recent event, if any,
// is delivered first. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.TurnEvent, func()) {
	ch := make(chan domain.TurnEvent, 16)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	if s.last != nil {
		ch <- *s.last
	}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Session) turnLocked() domain.Turn {
	return domain.Turn{
		Round:    s.scheduler.Round(),
		Player:   s.registry.At(s.scheduler.Index()).Name,
		Question: s.current.Public(),
	}
}

func (s *Session) broadcast(event domain.TurnEvent) {
	event.GameID = s.id

	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.last = &event
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop its oldest event instead of blocking the game.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
