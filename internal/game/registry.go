package game

import (
	"fmt"
	"strings"

	"trivia-service/internal/domain"
)

// Registry is the ordered list of players. Registration order is turn order.
type Registry struct {
	players []*domain.Player
}

// NewRegistry validates the setup and creates every player with a zero score.
// Duplicate names are allowed.
func NewRegistry(setups []domain.PlayerSetup) (*Registry, error) {
	if len(setups) == 0 {
		return nil, domain.ErrNoPlayers
	}

	players := make([]*domain.Player, 0, len(setups))
	for i, setup := range setups {
		setup.Name = strings.TrimSpace(setup.Name)
		if setup.Name == "" {
			return nil, fmt.Errorf("player %d: %w", i+1, domain.ErrEmptyName)
		}
		category, err := domain.ParseAgeCategory(string(setup.Category))
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i+1, err)
		}
		setup.Category = category

		player := domain.NewPlayer(setup)
		players = append(players, &player)
	}
	return &Registry{players: players}, nil
}

func (r *Registry) Len() int {
	return len(r.players)
}

// At returns the live player at position i. Only the scoring step mutates it.
func (r *Registry) At(i int) *domain.Player {
	return r.players[i]
}

// Players copies the players in turn order.
func (r *Registry) Players() []domain.Player {
	out := make([]domain.Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}
