package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/repository"
)

const eventsBufferSize = 16

type presenceRepo interface {
	Track(ctx context.Context, room string, participant entity.Participant) error
	Untrack(ctx context.Context, room, sessionID string) error
	List(ctx context.Context, room string) ([]entity.Participant, error)
}

// Channel is a peer.Channel over Redis pub/sub. Every room has a broadcast channel and a presence
// channel; a message on the latter tells subscribers to re-read the presence set.
type Channel struct {
	logger   *slog.Logger
	client   *redis.Client
	presence presenceRepo
	prefix   string

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

func NewChannel(logger *slog.Logger, client *redis.Client, presence presenceRepo, prefix string) *Channel {
	return &Channel{
		logger:   logger.With("component", "redis_channel"),
		client:   client,
		presence: presence,
		prefix:   prefix,
		subs:     make(map[string]*redis.PubSub),
	}
}

func (that *Channel) roomChannel(room string) string {
	return that.prefix + ":room:" + room
}

func (that *Channel) presenceChannel(room string) string {
	return that.roomChannel(room) + ":presence"
}

func subscriptionKey(room, sessionID string) string {
	return room + "/" + sessionID
}

// Join - subscribes self to room and to its session channel, which keeps it listed as live.
// Self is tracked in presence once the subscription is confirmed.
func (that *Channel) Join(ctx context.Context, room string, self entity.Participant) (<-chan peer.Event, error) {
	key := subscriptionKey(room, self.SessionID)

	that.mu.Lock()
	if _, ok := that.subs[key]; ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("session %s already joined room %s", self.SessionID, room)
	}

	pubsub := that.client.Subscribe(ctx)
	that.subs[key] = pubsub
	that.mu.Unlock()

	sessionChannel := repository.SessionChannel(that.prefix, self.SessionID)

	// the presence channel goes last, see pump
	if err := pubsub.Subscribe(ctx, that.roomChannel(room), sessionChannel, that.presenceChannel(room)); err != nil {
		that.forget(key)
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	events := make(chan peer.Event, eventsBufferSize)

	go that.pump(ctx, room, self, pubsub, events)

	return events, nil
}

func (that *Channel) Broadcast(ctx context.Context, room string, envelope peer.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err = that.client.Publish(ctx, that.roomChannel(room), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}

	return nil
}

// Leave - untracks self, tells the room and closes the subscription.
func (that *Channel) Leave(ctx context.Context, room string, self entity.Participant) error {
	key := subscriptionKey(room, self.SessionID)

	that.mu.Lock()
	pubsub, ok := that.subs[key]
	that.mu.Unlock()

	if !ok {
		return nil
	}

	that.forget(key)

	if err := that.presence.Untrack(ctx, room, self.SessionID); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to leave room: %w", err)
	}

	if err := that.announce(ctx, room, self.SessionID); err != nil {
		_ = pubsub.Close()
		return err
	}

	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}

	return nil
}

func (that *Channel) forget(key string) {
	that.mu.Lock()
	delete(that.subs, key)
	that.mu.Unlock()
}

func (that *Channel) announce(ctx context.Context, room, sessionID string) error {
	if err := that.client.Publish(ctx, that.presenceChannel(room), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to announce presence change: %w", err)
	}

	return nil
}

func (that *Channel) pump(
	ctx context.Context,
	room string,
	self entity.Participant,
	pubsub *redis.PubSub,
	events chan<- peer.Event,
) {
	log := that.logger.With("method", "pump", "room", room, "session_id", self.SessionID)

	defer close(events)

	emit := func(event peer.Event) bool {
		select {
		case <-ctx.Done():
			return false
		case events <- event:
			return true
		}
	}

	messages := pubsub.ChannelWithSubscriptions()

	for {
		var received any
		var ok bool

		select {
		case <-ctx.Done():
			return
		case received, ok = <-messages:
		}

		if !ok {
			emit(peer.Event{Kind: peer.EventClosed})
			return
		}

		switch msg := received.(type) {
		case *redis.Subscription:
			// the presence channel is confirmed last; after it every channel is live
			if msg.Kind != "subscribe" || msg.Channel != that.presenceChannel(room) {
				continue
			}

			if err := that.presence.Track(ctx, room, self); err != nil {
				log.Error("failed to track participant", "error", err)
			}

			if !emit(peer.Event{Kind: peer.EventSubscribed}) {
				return
			}

			if err := that.announce(ctx, room, self.SessionID); err != nil {
				log.Error("failed to announce join", "error", err)
			}
		case *redis.Message:
			event, ok := that.decode(ctx, room, msg)
			if !ok {
				continue
			}

			if !emit(event) {
				return
			}
		}
	}
}

func (that *Channel) decode(ctx context.Context, room string, msg *redis.Message) (peer.Event, bool) {
	log := that.logger.With("method", "decode", "room", room, "channel", msg.Channel)

	switch msg.Channel {
	case that.presenceChannel(room):
		members, err := that.presence.List(ctx, room)
		if err != nil {
			log.Error("failed to list participants", "error", err)
			return peer.Event{}, false
		}

		return peer.Event{Kind: peer.EventPresence, Members: members}, true
	case that.roomChannel(room):
		var envelope peer.Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			log.Warn("dropped malformed envelope", "error", err)
			return peer.Event{}, false
		}

		return peer.Event{Kind: peer.EventBroadcast, Envelope: envelope}, true
	default:
		return peer.Event{}, false
	}
}
