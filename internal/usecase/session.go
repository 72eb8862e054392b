package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/service"
)

type SessionOptions struct {
	Mode       entity.GameMode
	Room       string
	Difficulty service.Difficulty
}

// Session is one client's game: its manager plus the search worker behind it.
type Session struct {
	manager *GameManager
	worker  *service.BotWorker
}

// Run - serves the session until ctx is done.
func (that *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go that.worker.Run(ctx)

	return that.manager.Run(ctx)
}

func (that *Session) Dispatch(ctx context.Context, command Command) error {
	return that.manager.Dispatch(ctx, command)
}

func (that *Session) Updates() <-chan Snapshot {
	return that.manager.Updates()
}

type SessionFactory struct {
	logger           *slog.Logger
	channel          peer.Channel
	randomMoveChance float64
}

// NewSessionFactory - channel may be nil when online play is not available.
func NewSessionFactory(logger *slog.Logger, channel peer.Channel, randomMoveChance float64) *SessionFactory {
	return &SessionFactory{
		logger:           logger,
		channel:          channel,
		randomMoveChance: randomMoveChance,
	}
}

func (that *SessionFactory) NewSession(opts SessionOptions) (*Session, error) {
	logger := that.logger.With("mode", opts.Mode)

	var sessionRelay relay

	if opts.Mode == entity.ModeOnline {
		if that.channel == nil {
			return nil, fmt.Errorf("%w: online play is not available", apperror.ErrNotConnected)
		}

		if err := ValidateRoom(opts.Room); err != nil {
			return nil, err
		}

		sessionRelay = peer.NewRelay(logger, that.channel, opts.Room)
	}

	bot := service.NewBot(service.WithRandomMoveChance(that.randomMoveChance))
	worker := service.NewBotWorker(logger, bot)

	manager, err := NewGameManager(logger, worker, sessionRelay, GameManagerOptions{
		Mode:       opts.Mode,
		Difficulty: opts.Difficulty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game manager: %w", err)
	}

	return &Session{manager: manager, worker: worker}, nil
}

// ValidateRoom - room ids are UUIDs.
func ValidateRoom(room string) error {
	if _, err := uuid.Parse(room); err != nil {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidRoom, room)
	}

	return nil
}
