package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/service"
)

type idleChannel struct{}

func (idleChannel) Join(context.Context, string, entity.Participant) (<-chan peer.Event, error) {
	return make(chan peer.Event), nil
}

func (idleChannel) Broadcast(context.Context, string, peer.Envelope) error {
	return nil
}

func (idleChannel) Leave(context.Context, string, entity.Participant) error {
	return nil
}

func TestValidateRoom(t *testing.T) {
	require.NoError(t, ValidateRoom(uuid.NewString()))
	require.ErrorIs(t, ValidateRoom("room-1"), apperror.ErrInvalidRoom)
	require.ErrorIs(t, ValidateRoom(""), apperror.ErrInvalidRoom)
}

func TestSessionFactory_NewSession(t *testing.T) {
	t.Run("Online without a channel is unavailable", func(t *testing.T) {
		factory := NewSessionFactory(discardLogger(), nil, 0)

		_, err := factory.NewSession(SessionOptions{
			Mode:       entity.ModeOnline,
			Room:       uuid.NewString(),
			Difficulty: service.DifficultyEasy,
		})

		require.ErrorIs(t, err, apperror.ErrNotConnected)
	})

	t.Run("Online needs a valid room", func(t *testing.T) {
		factory := NewSessionFactory(discardLogger(), idleChannel{}, 0)

		_, err := factory.NewSession(SessionOptions{
			Mode:       entity.ModeOnline,
			Room:       "not-a-uuid",
			Difficulty: service.DifficultyEasy,
		})

		require.ErrorIs(t, err, apperror.ErrInvalidRoom)
	})

	t.Run("Online session starts connecting", func(t *testing.T) {
		// Given: an online session on a channel that never confirms
		factory := NewSessionFactory(discardLogger(), idleChannel{}, 0)
		session, err := factory.NewSession(SessionOptions{
			Mode:       entity.ModeOnline,
			Room:       uuid.NewString(),
			Difficulty: service.DifficultyEasy,
		})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// When: running it
		go func() {
			_ = session.Run(ctx)
		}()

		// Then: the first snapshot shows it connecting without a seat
		select {
		case snapshot := <-session.Updates():
			assert.Equal(t, peer.StatusConnecting, snapshot.Status)
			assert.Equal(t, peer.RoleNone, snapshot.Role)
		case <-time.After(time.Second):
			t.Fatal("no snapshot")
		}
	})

	t.Run("Bot session answers a move", func(t *testing.T) {
		factory := NewSessionFactory(discardLogger(), nil, 0)
		session, err := factory.NewSession(SessionOptions{Mode: entity.ModeBot, Difficulty: service.DifficultyHard})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			_ = session.Run(ctx)
		}()

		require.NoError(t, session.Dispatch(ctx, Command{Kind: CommandClick, Position: 0}))

		require.Eventually(t, func() bool {
			select {
			case snapshot := <-session.Updates():
				return snapshot.State.Board.Count(entity.MachinePlayer) == 1
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond)
	})
}
