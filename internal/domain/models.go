package domain

import (
	"fmt"
	"strings"
)

// Tier is the difficulty level questions are fetched at for a player.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	// TierHard is accepted by the provider but never assigned to a player.
	TierHard Tier = "hard"
)

// AgeCategory is chosen during setup and fixes the player's tier.
type AgeCategory string

const (
	CategoryChild AgeCategory = "child"
	CategoryAdult AgeCategory = "adult"
)

// ParseAgeCategory accepts "child" or "adult" in any case.
func ParseAgeCategory(raw string) (AgeCategory, error) {
	switch AgeCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryChild:
		return CategoryChild, nil
	case CategoryAdult:
		return CategoryAdult, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

// Tier maps the age category to a difficulty tier.
func (c AgeCategory) Tier() Tier {
	if c == CategoryChild {
		return TierEasy
	}
	return TierMedium
}

// PlayerSetup is what the setup collaborator hands over per player.
type PlayerSetup struct {
	Name     string      `json:"name"`
	Category AgeCategory `json:"category"`
}

// Player is a registered player and their running score.
type Player struct {
	Name  string `json:"name"`
	Tier  Tier   `json:"tier"`
	Score int    `json:"score"`
}

// NewPlayer builds a player with a zero score from its setup entry.
func NewPlayer(setup PlayerSetup) Player {
	return Player{Name: setup.Name, Tier: setup.Category.Tier()}
}

// Question is a single fetched question. Options are already shuffled.
type Question struct {
	Category      string   `json:"category"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Public strips the correct answer so the question can be shown to players.
func (q Question) Public() PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{Category: q.Category, Prompt: q.Prompt, Options: options}
}

// PublicQuestion is the presentation view of a question.
type PublicQuestion struct {
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
}

// Turn describes whose turn it is and what they were asked.
type Turn struct {
	Round    int            `json:"round"`
	Player   string         `json:"player"`
	Question PublicQuestion `json:"question"`
}

// AnswerResult summarizes the outcome of a submission for the current player.
type AnswerResult struct {
	Player        string `json:"player"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	TotalScore    int    `json:"totalScore"`
}

// EventType names the kind of TurnEvent pushed to subscribers.
type EventType string

const (
	EventTurn       EventType = "turn"
	EventFetchError EventType = "fetch_error"
	EventAnswer     EventType = "answer"
	EventGameOver   EventType = "game_over"
)

// TurnEvent is pushed to the presentation layer whenever the game moves.
type TurnEvent struct {
	Type        EventType       `json:"type"`
	GameID      string          `json:"gameId"`
	Round       int             `json:"round"`
	Player      string          `json:"player,omitempty"`
	Question    *PublicQuestion `json:"question,omitempty"`
	Failure     *FetchError     `json:"failure,omitempty"`
	Result      *AnswerResult   `json:"result,omitempty"`
	Leaderboard []Player        `json:"leaderboard,omitempty"`
}

// Snapshot is a read-only view of a game's position.
type Snapshot struct {
	GameID   string          `json:"gameId"`
	Round    int             `json:"round"`
	Player   string          `json:"player"`
	Question *PublicQuestion `json:"question,omitempty"`
	Players  []Player        `json:"players"`
	Over     bool            `json:"over"`
}
