package game

import "trivia-service/internal/domain"

// Rank orders players by score, highest first. Equal scores keep their input
// order: an element only moves left past strictly lower scores.
func Rank(players []domain.Player) []domain.Player {
	ranked := make([]domain.Player, len(players))
	copy(ranked, players)

	for i := 1; i < len(ranked); i++ {
		current := ranked[i]
		j := i - 1
		for j >= 0 && ranked[j].Score < current.Score {
			ranked[j+1] = ranked[j]
			j--
		}
		ranked[j+1] = current
	}
	return ranked
}
