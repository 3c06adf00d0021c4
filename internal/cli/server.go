package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-service/internal/config"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
	redisstore "trivia-service/internal/infra/redis"
	"trivia-service/internal/logger"
	transport "trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve games over HTTP and websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, source)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "port to listen on")
	cmd.Flags().StringVar(&source, "source", sourceOpenTDB, "question source: opentdb, postgres or memory")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag, sourceName string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	source, closeSource, err := newQuestionSource(ctx, cfg, sourceName, log)
	if err != nil {
		return err
	}
	defer closeSource()

	var store game.GameRepository
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		store = redisstore.NewGameStore(redisClient, config.TTLDuration(cfg.Redis.TTL, time.Hour), log.Named("redis"))
	} else {
		store = memory.NewGameStore()
	}

	service := game.NewService(store, source, log.Named("game"), cfg.Game.MaxConsecutiveSkips)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, log.Named("http")),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting trivia service", zap.String("addr", server.Addr), zap.String("source", sourceName))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
