package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/usecase"
)

var (
	ErrRateLimited   = errors.New("too many clicks, slow down")
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidCell   = errors.New("invalid cell")
)

func (that *Server) handleCellClick(ctx context.Context, conn *connection, msg *Message) error {
	if !conn.clicks.Allow() {
		return ErrRateLimited
	}

	var payload ClickPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if payload.Position == nil || !payload.Position.IsValid() {
		return ErrInvalidCell
	}

	return conn.session.Dispatch(ctx, usecase.Command{
		Kind:     usecase.CommandClick,
		Position: *payload.Position,
	})
}

func (that *Server) handleGameReset(ctx context.Context, conn *connection, _ *Message) error {
	return conn.session.Dispatch(ctx, usecase.Command{Kind: usecase.CommandReset})
}

func (that *Server) handleGameMode(ctx context.Context, conn *connection, msg *Message) error {
	var payload ModePayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if !payload.Mode.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMode, payload.Mode)
	}

	return conn.session.Dispatch(ctx, usecase.Command{
		Kind: usecase.CommandSetMode,
		Mode: payload.Mode,
	})
}

func (that *Server) handleBotDifficulty(ctx context.Context, conn *connection, msg *Message) error {
	var payload DifficultyPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if !payload.Difficulty.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, payload.Difficulty)
	}

	return conn.session.Dispatch(ctx, usecase.Command{
		Kind:       usecase.CommandSetDifficulty,
		Difficulty: payload.Difficulty,
	})
}
