package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	pgbank "trivia-service/internal/infra/postgres"
	"trivia-service/internal/infra/postgres/migrations"
	infraredis "trivia-service/internal/infra/redis"
	"trivia-service/internal/opentdb"
)

func TestGameAgainstPostgresBankAndRedisStore(t *testing.T) {
	ctx := context.Background()

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if _, err := migrations.Apply(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	bank := pgbank.NewQuestionSource(pool)
	inserted, err := bank.Store(ctx, domain.TierMedium, sampleQuestions())
	if err != nil {
		t.Fatalf("store questions: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 inserted question, got %d", inserted)
	}
	// Re-importing the same question is a no-op.
	if again, err := bank.Store(ctx, domain.TierMedium, sampleQuestions()); err != nil || again != 0 {
		t.Fatalf("expected duplicate to be skipped, got %d, %v", again, err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	logger := zaptest.NewLogger(t)
	store := infraredis.NewGameStore(redisClient, 5*time.Minute, logger)
	service := game.NewService(store, bank, logger, 3)

	snap, err := service.Create(ctx, []domain.PlayerSetup{
		{Name: "Alice", Category: domain.CategoryAdult},
		{Name: "Bob", Category: domain.CategoryChild},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	turn, err := service.StartTurn(ctx, snap.GameID)
	if err != nil {
		t.Fatalf("start turn: %v", err)
	}
	if turn.Player != "Alice" || turn.Question.Prompt != "What is 2 + 2?" {
		t.Fatalf("unexpected turn %+v", turn)
	}

	selected := 0
	for i, option := range turn.Question.Options {
		if option == "4" {
			selected = i + 1
		}
	}

	// Bob is a child and the bank has no easy questions, so after Alice
	// answers Bob is skipped and Alice plays again in round 2.
	result, err := service.SubmitAnswer(ctx, snap.GameID, selected)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.TotalScore != 1 {
		t.Fatalf("expected correct answer with 1 point, got %+v", result)
	}

	published, err := store.Snapshot(ctx, snap.GameID)
	if err != nil {
		t.Fatalf("redis snapshot: %v", err)
	}
	if published.Round != 2 || published.Player != "Alice" {
		t.Fatalf("expected Alice up in round 2, got %+v", published)
	}

	ranked, err := service.EndGame(ctx, snap.GameID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ranked[0].Name != "Alice" || ranked[0].Score != 1 {
		t.Fatalf("expected Alice leading, got %+v", ranked)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "trivia"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/trivia?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuestions() []opentdb.RawQuestion {
	return []opentdb.RawQuestion{{
		Category:         "Math",
		Question:         "What is 2 + 2?",
		CorrectAnswer:    "4",
		IncorrectAnswers: []string{"3", "5", "22"},
	}}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}
