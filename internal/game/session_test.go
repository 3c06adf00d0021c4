package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"trivia-service/internal/domain"
)

// scriptedSource replays responses in order and repeats the last one.
type scriptedSource struct {
	mu        sync.Mutex
	responses []response
	tiers     []domain.Tier
}

type response struct {
	question domain.Question
	err      error
}

func (s *scriptedSource) FetchQuestion(_ context.Context, tier domain.Tier) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = append(s.tiers, tier)
	r := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return r.question, r.err
}

func (s *scriptedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiers)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		Category:      "Math",
		Prompt:        "What is 2 + 2?",
		Options:       []string{"3", "4", "5", "22"},
		CorrectAnswer: "4",
	}
}

func okResponse() response { return response{question: sampleQuestion()} }

func threePlayers() []domain.PlayerSetup {
	return []domain.PlayerSetup{
		{Name: "Alice", Category: domain.CategoryAdult},
		{Name: "Bob", Category: domain.CategoryChild},
		{Name: "Carol", Category: domain.CategoryAdult},
	}
}

func newTestSession(t *testing.T, source QuestionSource, maxSkips int) *Session {
	t.Helper()
	session, err := NewSession("game-1", threePlayers(), source, SessionOptions{
		MaxConsecutiveSkips: maxSkips,
		Logger:              zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return session
}

func scores(s *Session) map[string]int {
	out := map[string]int{}
	for _, p := range s.Snapshot().Players {
		out[p.Name] = p.Score
	}
	return out
}

func TestStartTurnAsksCurrentPlayerAtTheirTier(t *testing.T) {
	source := &scriptedSource{responses: []response{okResponse()}}
	session := newTestSession(t, source, 0)

	turn, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, turn.Round)
	assert.Equal(t, "Alice", turn.Player)
	assert.Equal(t, sampleQuestion().Options, turn.Question.Options)
	assert.Equal(t, []domain.Tier{domain.TierMedium}, source.tiers)
}

func TestStartTurnIsIdempotentWhileQuestionPending(t *testing.T) {
	source := &scriptedSource{responses: []response{okResponse()}}
	session := newTestSession(t, source, 0)

	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)
	_, err = session.StartTurn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls())
}

func TestCorrectAnswerScoresOnlyCurrentPlayer(t *testing.T) {
	source := &scriptedSource{responses: []response{okResponse()}}
	session := newTestSession(t, source, 0)
	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	// "4" is the second option
	result, err := session.SubmitAnswer(context.Background(), 2)
	require.NoError(t, err)

	assert.True(t, result.Correct)
	assert.Empty(t, result.CorrectAnswer)
	assert.Equal(t, 1, result.TotalScore)
	assert.Equal(t, map[string]int{"Alice": 1, "Bob": 0, "Carol": 0}, scores(session))

	snap := session.Snapshot()
	assert.Equal(t, "Bob", snap.Player)
	require.NotNil(t, snap.Question, "next turn should have started")
	assert.Equal(t, []domain.Tier{domain.TierMedium, domain.TierEasy}, source.tiers)
}

func TestWrongAnswerReportsCorrectText(t *testing.T) {
	source := &scriptedSource{responses: []response{okResponse()}}
	session := newTestSession(t, source, 0)
	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	result, err := session.SubmitAnswer(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, result.Correct)
	assert.Equal(t, "4", result.CorrectAnswer)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0, "Carol": 0}, scores(session))
	assert.Equal(t, "Bob", session.Snapshot().Player)
}

func TestInvalidSelectionChangesNothing(t *testing.T) {
	source := &scriptedSource{responses: []response{okResponse()}}
	session := newTestSession(t, source, 0)
	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)
	before := session.Snapshot()

	for _, selected := range []int{0, -1, 5} {
		_, err := session.SubmitAnswer(context.Background(), selected)
		require.ErrorIs(t, err, domain.ErrInvalidSelection, "selected %d", selected)
	}

	assert.Equal(t, before, session.Snapshot())
	assert.Equal(t, 1, source.calls())

	// The pending question can still be answered afterwards.
	_, err = session.SubmitAnswer(context.Background(), 2)
	require.NoError(t, err)
}

func TestSubmitWithoutQuestion(t *testing.T) {
	session := newTestSession(t, &scriptedSource{responses: []response{okResponse()}}, 0)

	_, err := session.SubmitAnswer(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrNoActiveQuestion)
}

func TestNothingSelectedIsInvalidEvenWithoutQuestion(t *testing.T) {
	session := newTestSession(t, &scriptedSource{responses: []response{okResponse()}}, 0)
	before := session.Snapshot()

	_, err := session.SubmitAnswer(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.Equal(t, before, session.Snapshot())
}

func TestFetchFailureSkipsPlayerWithoutScoring(t *testing.T) {
	source := &scriptedSource{responses: []response{
		{err: domain.NewNetworkError(errors.New("dial tcp: refused"), "request failed")},
		okResponse(),
	}}
	session := newTestSession(t, source, 0)
	events, cancel := session.Subscribe()
	defer cancel()

	turn, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bob", turn.Player)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0, "Carol": 0}, scores(session))

	failure := <-events
	require.Equal(t, domain.EventFetchError, failure.Type)
	assert.Equal(t, "Alice", failure.Player)
	assert.Equal(t, domain.FailureNetwork, failure.Failure.Kind)

	next := <-events
	assert.Equal(t, domain.EventTurn, next.Type)
	assert.Equal(t, "Bob", next.Player)
}

func TestNonTypedSourceErrorsCountAsNetworkFailures(t *testing.T) {
	source := &scriptedSource{responses: []response{{err: errors.New("boom")}, okResponse()}}
	session := newTestSession(t, source, 0)
	events, cancel := session.Subscribe()
	defer cancel()

	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	failure := <-events
	assert.Equal(t, domain.FailureNetwork, failure.Failure.Kind)
}

func TestSkipsWrapIntoNextRound(t *testing.T) {
	noQuestions := response{err: domain.NewNoQuestionsError("response_code=1")}
	source := &scriptedSource{responses: []response{noQuestions, noQuestions, noQuestions, noQuestions, okResponse()}}
	session := newTestSession(t, source, 0)

	turn, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bob", turn.Player)
	assert.Equal(t, 2, turn.Round)
	assert.Equal(t, 5, source.calls())
}

func TestSkipBoundStopsUnreachableProvider(t *testing.T) {
	source := &scriptedSource{responses: []response{{err: domain.NewNetworkError(nil, "status 503")}}}
	session := newTestSession(t, source, 4)

	_, err := session.StartTurn(context.Background())
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 4, source.calls())
	assert.Equal(t, "Bob", session.Snapshot().Player)
}

func TestUnboundedSkippingStopsWithContext(t *testing.T) {
	source := &scriptedSource{responses: []response{{err: domain.NewNetworkError(nil, "status 503")}}}
	// Nop logger: this loop spins until the deadline.
	session, err := NewSession("game-1", threePlayers(), source, SessionOptions{Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = session.StartTurn(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, source.calls(), 3)
}

func TestEndGameRanksAndRejectsFurtherTurns(t *testing.T) {
	source := &scriptedSource{responses: []response{okResponse()}}
	session := newTestSession(t, source, 0)
	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	// Alice wrong, Bob right, Carol right.
	_, err = session.SubmitAnswer(context.Background(), 1)
	require.NoError(t, err)
	_, err = session.SubmitAnswer(context.Background(), 2)
	require.NoError(t, err)
	_, err = session.SubmitAnswer(context.Background(), 2)
	require.NoError(t, err)

	ranked := session.EndGame()
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"Bob", "Carol", "Alice"}, []string{ranked[0].Name, ranked[1].Name, ranked[2].Name})
	assert.Equal(t, ranked, session.EndGame())

	_, err = session.StartTurn(context.Background())
	require.ErrorIs(t, err, domain.ErrGameOver)
	_, err = session.SubmitAnswer(context.Background(), 2)
	require.ErrorIs(t, err, domain.ErrGameOver)
	assert.Equal(t, 2, session.Snapshot().Round)
}

func TestSubscribeReplaysLatestEvent(t *testing.T) {
	session := newTestSession(t, &scriptedSource{responses: []response{okResponse()}}, 0)
	_, err := session.StartTurn(context.Background())
	require.NoError(t, err)

	events, cancel := session.Subscribe()
	defer cancel()

	event := <-events
	assert.Equal(t, domain.EventTurn, event.Type)
	assert.Equal(t, "game-1", event.GameID)
	require.NotNil(t, event.Question)
	assert.Equal(t, "What is 2 + 2?", event.Question.Prompt)
}
