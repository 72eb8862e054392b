package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/config"
	"github.com/rocketscienceinc/rota-backend/internal/repository"
	"github.com/rocketscienceinc/rota-backend/internal/repository/storage"
	"github.com/rocketscienceinc/rota-backend/internal/service"
	"github.com/rocketscienceinc/rota-backend/internal/transport/redis"
	"github.com/rocketscienceinc/rota-backend/internal/usecase"
	"github.com/rocketscienceinc/rota-backend/transport/rest"
	"github.com/rocketscienceinc/rota-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	difficulty := service.Difficulty(conf.Bot.Difficulty)
	if !difficulty.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, difficulty)
	}

	if conf.Redis.Host == "" || conf.Redis.Port == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     conf.Redis.GetRedisAddr(),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	presence := repository.NewPresenceRepository(redisStorage.Connection, conf.Room.KeyPrefix, conf.Room.PresenceTTL)
	channel := redis.NewChannel(logger, redisStorage.Connection, presence, conf.Room.KeyPrefix)
	sessions := usecase.NewSessionFactory(logger, channel, conf.Bot.RandomMoveChance)

	wsServer := websocket.New(logger, sessions, websocket.Options{
		PingInterval:      conf.WebSocket.PingInterval,
		ClicksPerSecond:   conf.WebSocket.ClicksPerSecond,
		ClickBurst:        conf.WebSocket.ClickBurst,
		DefaultDifficulty: difficulty,
	})

	httpServer := rest.New(logger, presence, wsServer)

	if err = httpServer.Start(ctx, conf.HTTPPort); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
