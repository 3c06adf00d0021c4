package memory

import (
	"sync"

	"trivia-service/internal/game"
)

// GameStore is an in-memory implementation of game.GameRepository.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*game.Session
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*game.Session),
	}
}

func (s *GameStore) Add(session *game.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[session.ID()] = session
}

func (s *GameStore) Get(gameID string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.games[gameID]
	return session, ok
}

// Touch is a no-op: the map already holds the live session.
func (s *GameStore) Touch(*game.Session) {}

func (s *GameStore) Delete(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameID)
}

// Len reports how many games are running.
func (s *GameStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
