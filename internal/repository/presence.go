package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
)

type PresenceRepository interface {
	Track(ctx context.Context, room string, participant entity.Participant) error
	Untrack(ctx context.Context, room, sessionID string) error
	List(ctx context.Context, room string) ([]entity.Participant, error)
}

type dbPresence struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPresenceRepository - room members live in a sorted set scored by join time.
// The set expires ttl after the last join.
func NewPresenceRepository(client *redis.Client, prefix string, ttl time.Duration) PresenceRepository {
	return &dbPresence{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (that *dbPresence) key(room string) string {
	return that.prefix + ":presence:" + room
}

// SessionChannel - the channel a live session keeps subscribed while it is in a room.
// Members without a subscriber on theirs are left over from a crashed process.
func SessionChannel(prefix, sessionID string) string {
	return prefix + ":session:" + sessionID
}

func (that *dbPresence) Track(ctx context.Context, room string, participant entity.Participant) error {
	key := that.key(room)

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(participant.JoinedAt.UnixMilli()),
			Member: participant.SessionID,
		})

		if that.ttl > 0 {
			pipe.Expire(ctx, key, that.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to track participant: %w", err)
	}

	return nil
}

func (that *dbPresence) Untrack(ctx context.Context, room, sessionID string) error {
	if err := that.client.ZRem(ctx, that.key(room), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to untrack participant: %w", err)
	}

	return nil
}

// List - live members ordered by join time, then session id. Members whose session channel has no
// subscriber are dropped from the set.
func (that *dbPresence) List(ctx context.Context, room string) ([]entity.Participant, error) {
	members, err := that.client.ZRangeWithScores(ctx, that.key(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	participants := make([]entity.Participant, 0, len(members))
	for _, member := range members {
		sessionID, ok := member.Member.(string)
		if !ok {
			continue
		}

		participants = append(participants, entity.Participant{
			SessionID: sessionID,
			JoinedAt:  time.UnixMilli(int64(member.Score)).UTC(),
		})
	}

	if len(participants) == 0 {
		return participants, nil
	}

	return that.live(ctx, room, participants)
}

func (that *dbPresence) live(ctx context.Context, room string, participants []entity.Participant) ([]entity.Participant, error) {
	channels := make([]string, len(participants))
	for i, participant := range participants {
		channels[i] = SessionChannel(that.prefix, participant.SessionID)
	}

	subscribers, err := that.client.PubSubNumSub(ctx, channels...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count session subscribers: %w", err)
	}

	live := participants[:0]
	var stale []any

	for i, participant := range participants {
		if subscribers[channels[i]] > 0 {
			live = append(live, participant)
			continue
		}

		stale = append(stale, participant.SessionID)
	}

	if len(stale) > 0 {
		if err = that.client.ZRem(ctx, that.key(room), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to drop stale participants: %w", err)
		}
	}

	return live, nil
}
