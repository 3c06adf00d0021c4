package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

// GameStore is a Redis-aware implementation of game.GameRepository.
// Sessions live in a local map; Redis holds a TTL'd snapshot of each running
// game (round, current player, scores) so operators can see what is live.
// Sessions are never rebuilt from Redis, so games do not outlive the process.
type GameStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	games map[string]*game.Session
}

func NewGameStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *GameStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameStore{
		client: client,
		ttl:    ttl,
		logger: logger,
		games:  make(map[string]*game.Session),
	}
}

func (s *GameStore) Add(session *game.Session) {
	s.mu.Lock()
	s.games[session.ID()] = session
	s.mu.Unlock()
	s.publish(session)
}

func (s *GameStore) Get(gameID string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.games[gameID]
	return session, ok
}

// Touch republishes a tracked game. Games already deleted are left alone so
// a late update cannot bring their key back.
func (s *GameStore) Touch(session *game.Session) {
	s.mu.RLock()
	tracked, ok := s.games[session.ID()]
	s.mu.RUnlock()
	if !ok || tracked != session {
		return
	}
	s.publish(session)
}

func (s *GameStore) Delete(gameID string) {
	s.mu.Lock()
	delete(s.games, gameID)
	s.mu.Unlock()

	// best-effort
	if err := s.client.Del(context.Background(), Key(gameID)).Err(); err != nil {
		s.logger.Warn("drop game snapshot", zap.String("game", gameID), zap.Error(err))
	}
}

// Snapshot reads back the published snapshot of a game.
func (s *GameStore) Snapshot(ctx context.Context, gameID string) (domain.Snapshot, error) {
	raw, err := s.client.Get(ctx, Key(gameID)).Bytes()
	if err == redis.Nil {
		return domain.Snapshot{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func (s *GameStore) publish(session *game.Session) {
	data, err := json.Marshal(session.Snapshot())
	if err != nil {
		s.logger.Warn("encode game snapshot", zap.String("game", session.ID()), zap.Error(err))
		return
	}
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), Key(session.ID()), data, s.ttl).Err(); err != nil {
		s.logger.Warn("publish game snapshot", zap.String("game", session.ID()), zap.Error(err))
	}
}

// Key is the Redis key holding a game's snapshot.
func Key(gameID string) string {
	return "trivia:game:" + gameID
}
