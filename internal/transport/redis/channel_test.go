package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/repository"
	"github.com/rocketscienceinc/rota-backend/testing/suite"
)

const waitFor = 5 * time.Second

func newTestChannel(st *suite.Suite, client *redis.Client) *Channel {
	presenceRepo := repository.NewPresenceRepository(client, "rota", time.Minute)
	return NewChannel(st.Logger, client, presenceRepo, "rota")
}

// next - the next event of kind, skipping others.
func next(t *testing.T, events <-chan peer.Event, kind peer.EventKind) peer.Event {
	t.Helper()

	timeout := time.After(waitFor)
	for {
		select {
		case event, ok := <-events:
			require.True(t, ok, "events closed while waiting for %s", kind)
			if event.Kind == kind {
				return event
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
		}
	}
}

// presenceOf - waits for a presence event listing exactly count members.
func presenceOf(t *testing.T, events <-chan peer.Event, count int) []entity.Participant {
	t.Helper()

	for {
		event := next(t, events, peer.EventPresence)
		if len(event.Members) == count {
			return event.Members
		}
	}
}

func TestChannel_Join(t *testing.T) {
	ctx, st := suite.New(t)

	// Given: two service instances with their own connections
	first := newTestChannel(st, st.Storage)
	second := newTestChannel(st, st.NewClient())

	alice := entity.Participant{SessionID: "alice", JoinedAt: time.UnixMilli(1_700_000_000_000).UTC()}
	bob := entity.Participant{SessionID: "bob", JoinedAt: alice.JoinedAt.Add(time.Second)}

	// When: alice joins
	aliceEvents, err := first.Join(ctx, "room-1", alice)
	require.NoError(t, err)

	// Then: the subscription is confirmed and alice sees herself
	next(t, aliceEvents, peer.EventSubscribed)
	assert.Equal(t, []entity.Participant{alice}, presenceOf(t, aliceEvents, 1))

	// When: bob joins through the other instance
	bobEvents, err := second.Join(ctx, "room-1", bob)
	require.NoError(t, err)
	next(t, bobEvents, peer.EventSubscribed)

	// Then: both see both, in join order
	assert.Equal(t, []entity.Participant{alice, bob}, presenceOf(t, aliceEvents, 2))
	assert.Equal(t, []entity.Participant{alice, bob}, presenceOf(t, bobEvents, 2))

	// When: alice leaves
	require.NoError(t, first.Leave(ctx, "room-1", alice))

	// Then: bob sees only himself and alice's events end
	assert.Equal(t, []entity.Participant{bob}, presenceOf(t, bobEvents, 1))

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-aliceEvents:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, waitFor, 10*time.Millisecond)
}

func TestChannel_Broadcast(t *testing.T) {
	ctx, st := suite.New(t)

	first := newTestChannel(st, st.Storage)
	second := newTestChannel(st, st.NewClient())

	alice := entity.Participant{SessionID: "alice", JoinedAt: time.Now().UTC()}
	bob := entity.Participant{SessionID: "bob", JoinedAt: time.Now().UTC()}

	aliceEvents, err := first.Join(ctx, "room-1", alice)
	require.NoError(t, err)
	next(t, aliceEvents, peer.EventSubscribed)

	bobEvents, err := second.Join(ctx, "room-1", bob)
	require.NoError(t, err)
	next(t, bobEvents, peer.EventSubscribed)

	// When: alice broadcasts a move
	envelope := peer.Envelope{Action: entity.OpponentMove(entity.Slide(0, 8)), SenderID: alice.SessionID}
	require.NoError(t, first.Broadcast(ctx, "room-1", envelope))

	// Then: both subscribers get it, the sender included
	assert.Equal(t, envelope, next(t, bobEvents, peer.EventBroadcast).Envelope)
	assert.Equal(t, envelope, next(t, aliceEvents, peer.EventBroadcast).Envelope)
}

func TestChannel_MalformedEnvelopeIsDropped(t *testing.T) {
	ctx, st := suite.New(t)

	channel := newTestChannel(st, st.Storage)
	alice := entity.Participant{SessionID: "alice", JoinedAt: time.Now().UTC()}

	events, err := channel.Join(ctx, "room-1", alice)
	require.NoError(t, err)
	next(t, events, peer.EventSubscribed)

	// Given: garbage published on the room channel, followed by a valid envelope
	require.NoError(t, st.Storage.Publish(ctx, "rota:room:room-1", "{not json").Err())
	envelope := peer.Envelope{Action: entity.Reset(), SenderID: "bob"}
	require.NoError(t, channel.Broadcast(ctx, "room-1", envelope))

	// Then: only the valid one arrives
	assert.Equal(t, envelope, next(t, events, peer.EventBroadcast).Envelope)
}

func TestChannel_JoinTwiceFails(t *testing.T) {
	ctx, st := suite.New(t)

	channel := newTestChannel(st, st.Storage)
	alice := entity.Participant{SessionID: "alice", JoinedAt: time.Now().UTC()}

	_, err := channel.Join(ctx, "room-1", alice)
	require.NoError(t, err)

	_, err = channel.Join(ctx, "room-1", alice)
	require.Error(t, err)

	require.NoError(t, channel.Leave(context.Background(), "room-1", alice))
}
