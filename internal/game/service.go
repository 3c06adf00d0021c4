package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trivia-service/internal/domain"
)

// GameRepository abstracts where running games are kept (in-memory, Redis, etc).
type GameRepository interface {
	Add(session *Session)
	Get(gameID string) (*Session, bool)
	// Touch is called after every state change so stores can refresh what they track.
	Touch(session *Session)
	Delete(gameID string)
}

// Service contains the game use cases across every running game.
type Service struct {
	games  GameRepository
	source QuestionSource
	logger *zap.Logger
	opts   SessionOptions
	sf     singleflight.Group
	newID  func() string

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the shared StartTurn work for one game. Its context is cancelled
// once every waiter has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func NewService(games GameRepository, source QuestionSource, logger *zap.Logger, maxConsecutiveSkips int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		games:  games,
		source: source,
		logger: logger,
		opts: SessionOptions{
			MaxConsecutiveSkips: maxConsecutiveSkips,
			Logger:              logger,
		},
		newID:   uuid.NewString,
		flights: make(map[string]*flight),
	}
}

// Create registers a new game. The first turn is not started yet.
func (s *Service) Create(_ context.Context, setups []domain.PlayerSetup) (domain.Snapshot, error) {
	session, err := NewSession(s.newID(), setups, s.source, s.opts)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.games.Add(session)
	s.logger.Info("game created", zap.String("game", session.ID()), zap.Int("players", len(setups)))
	return session.Snapshot(), nil
}

// StartTurn asks the current player's question. Concurrent callers for the
// same game share one fetch; each caller may give up on its own context
// without failing the others.
func (s *Service) StartTurn(ctx context.Context, gameID string) (domain.Turn, error) {
	session, ok := s.games.Get(gameID)
	if !ok {
		return domain.Turn{}, domain.ErrGameNotFound
	}

	f := s.join(ctx, gameID)
	defer s.leave(gameID, f)

	ch := s.sf.DoChan(gameID, func() (interface{}, error) {
		turn, err := session.StartTurn(f.ctx)
		s.games.Touch(session)
		return turn, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Turn{}, res.Err
		}
		return res.Val.(domain.Turn), nil
	case <-ctx.Done():
		return domain.Turn{}, ctx.Err()
	}
}

func (s *Service) join(ctx context.Context, gameID string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[gameID]
	if !ok {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: shared, cancel: cancel}
		s.flights[gameID] = f
	}
	f.waiters++
	return f
}

func (s *Service) leave(gameID string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	delete(s.flights, gameID)
	// a caller arriving later must not join a fetch whose context is gone
	s.sf.Forget(gameID)
}

// SubmitAnswer scores the current player's 1-based selection and starts the next turn.
func (s *Service) SubmitAnswer(ctx context.Context, gameID string, selected int) (domain.AnswerResult, error) {
	session, ok := s.games.Get(gameID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrGameNotFound
	}
	result, err := session.SubmitAnswer(ctx, selected)
	s.games.Touch(session)
	return result, err
}

// EndGame returns the final ranking and forgets the game.
func (s *Service) EndGame(_ context.Context, gameID string) ([]domain.Player, error) {
	session, ok := s.games.Get(gameID)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	ranked := session.EndGame()
	s.games.Delete(gameID)
	s.logger.Info("game ended", zap.String("game", gameID), zap.Int("round", session.Snapshot().Round))
	return ranked, nil
}

// Snapshot reports the current position of a game.
func (s *Service) Snapshot(_ context.Context, gameID string) (domain.Snapshot, error) {
	session, ok := s.games.Get(gameID)
	if !ok {
		return domain.Snapshot{}, domain.ErrGameNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives turn events for a game.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Service) Subscribe(_ context.Context, gameID string) (<-chan domain.TurnEvent, func(), error) {
	session, ok := s.games.Get(gameID)
	if !ok {
		return nil, nil, domain.ErrGameNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}
