package game

import "trivia-service/internal/domain"

// Scheduler walks the registry round-robin and counts completed rounds.
type Scheduler struct {
	size  int
	index int
	round int
}

// NewScheduler starts at round 1 with the first registered player.
func NewScheduler(size int) (*Scheduler, error) {
	if size <= 0 {
		return nil, domain.ErrNoPlayers
	}
	return &Scheduler{size: size, round: 1}, nil
}

// Advance moves to the next player. Wrapping back to the first player starts a new round.
func (s *Scheduler) Advance() {
	s.index = (s.index + 1) % s.size
	if s.index == 0 {
		s.round++
	}
}

func (s *Scheduler) Index() int { return s.index }

func (s *Scheduler) Round() int { return s.round }
