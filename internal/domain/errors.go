package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGameNotFound is returned when a game id is unknown to the store.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameOver is returned for any turn operation after the game was ended.
	ErrGameOver = errors.New("game is over")
	// ErrNoPlayers is returned when a game is set up without players.
	ErrNoPlayers = errors.New("at least one player is required")
	// ErrEmptyName is returned when a player is set up without a name.
	ErrEmptyName = errors.New("player name must not be empty")
	// ErrUnknownCategory is returned for categories other than child or adult.
	ErrUnknownCategory = errors.New("unknown player category")
	// ErrInvalidSelection is returned when no option or an out-of-range option is submitted.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNoActiveQuestion is returned when an answer arrives before a question was asked.
	ErrNoActiveQuestion = errors.New("no question is awaiting an answer")
	// ErrNetwork matches fetch failures caused by the transport or an HTTP status.
	ErrNetwork = errors.New("network error")
	// ErrNoQuestions matches fetch failures where the provider had nothing to return.
	ErrNoQuestions = errors.New("no questions available")
	// ErrProviderUnavailable is returned when the configured skip bound is exhausted.
	ErrProviderUnavailable = errors.New("question provider unavailable")
)

// FailureKind classifies a failed question fetch.
type FailureKind string

const (
	FailureNetwork     FailureKind = "network_error"
	FailureNoQuestions FailureKind = "no_questions_available"
)

// FetchError is the typed failure returned by question sources.
type FetchError struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// NewNetworkError wraps a transport level failure.
func NewNetworkError(err error, format string, args ...any) *FetchError {
	return &FetchError{Kind: FailureNetwork, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewNoQuestionsError reports an empty result from the provider.
func NewNoQuestionsError(format string, args ...any) *FetchError {
	return &FetchError{Kind: FailureNoQuestions, Message: fmt.Sprintf(format, args...)}
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets callers match on ErrNetwork or ErrNoQuestions.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == FailureNetwork
	case ErrNoQuestions:
		return e.Kind == FailureNoQuestions
	}
	return false
}
