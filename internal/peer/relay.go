package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/entity"
)

const (
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusDisconnected Status = "DISCONNECTED"
)

const (
	EventSubscribed EventKind = "subscribed"
	EventClosed     EventKind = "closed"
	EventPresence   EventKind = "presence"
	EventBroadcast  EventKind = "broadcast"
)

const inboundBufferSize = 32

type Status string

type EventKind string

// Envelope is the broadcast payload exchanged by peers.
type Envelope struct {
	Action   entity.Action `json:"action"`
	SenderID string        `json:"senderId"`
}

// Event is delivered by a Channel. Members is set for EventPresence, Envelope for EventBroadcast.
type Event struct {
	Kind     EventKind
	Members  []entity.Participant
	Envelope Envelope
}

// Channel is a room scoped pub/sub transport with presence.
// The events channel is closed when the subscription ends.
type Channel interface {
	Join(ctx context.Context, room string, self entity.Participant) (<-chan Event, error)
	Broadcast(ctx context.Context, room string, envelope Envelope) error
	Leave(ctx context.Context, room string, self entity.Participant) error
}

// Inbound is a remote action attributed to the role of its sender.
type Inbound struct {
	Action entity.Action
	From   entity.Player
}

// Relay connects one local participant to a room.
type Relay struct {
	logger  *slog.Logger
	channel Channel
	room    string
	self    entity.Participant

	mu     sync.RWMutex
	status Status
	roster Roster

	inbound chan Inbound
	changes chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(logger *slog.Logger, channel Channel, room string) *Relay {
	self := entity.Participant{
		SessionID: uuid.NewString(),
		JoinedAt:  time.Now().UTC(),
	}

	return &Relay{
		logger:  logger.With("component", "relay", "room", room, "session_id", self.SessionID),
		channel: channel,
		room:    room,
		self:    self,
		status:  StatusDisconnected,
		inbound: make(chan Inbound, inboundBufferSize),
		changes: make(chan struct{}, 1),
	}
}

func (that *Relay) Self() entity.Participant {
	return that.self
}

// Inbound - admitted-by-role remote actions, in arrival order.
func (that *Relay) Inbound() <-chan Inbound {
	return that.inbound
}

// Changes - signalled whenever status, role or membership may have changed. Signals coalesce.
func (that *Relay) Changes() <-chan struct{} {
	return that.changes
}

func (that *Relay) Status() Status {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.status
}

func (that *Relay) Role() Role {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.roster.RoleOf(that.self.SessionID)
}

func (that *Relay) OnlineCount() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.roster.Count()
}

// Freeze - keeps the current players seated until Unfreeze.
func (that *Relay) Freeze() {
	that.mu.Lock()
	changed := !that.roster.IsFrozen()
	that.roster.Freeze()
	that.mu.Unlock()

	if changed {
		that.notify()
	}
}

func (that *Relay) Unfreeze() {
	that.mu.Lock()
	changed := that.roster.IsFrozen()
	that.roster.Unfreeze()
	that.mu.Unlock()

	if changed {
		that.notify()
	}
}

// Connect - joins the room and starts consuming its events until ctx is done or Disconnect.
func (that *Relay) Connect(ctx context.Context) error {
	log := that.logger.With("method", "Connect")

	that.setStatus(StatusConnecting)

	ctx, cancel := context.WithCancel(ctx)

	events, err := that.channel.Join(ctx, that.room, that.self)
	if err != nil {
		cancel()
		that.setStatus(StatusDisconnected)
		return fmt.Errorf("failed to join room %s: %w", that.room, err)
	}

	that.cancel = cancel
	that.done = make(chan struct{})

	go that.consume(ctx, events)

	log.Debug("joined room")

	return nil
}

// Send - broadcasts action to the room. Only allowed while connected.
func (that *Relay) Send(ctx context.Context, action entity.Action) error {
	if that.Status() != StatusConnected {
		return apperror.ErrNotConnected
	}

	envelope := Envelope{Action: action, SenderID: that.self.SessionID}
	if err := that.channel.Broadcast(ctx, that.room, envelope); err != nil {
		return fmt.Errorf("failed to broadcast action: %w", err)
	}

	return nil
}

// Disconnect - leaves the room and stops consuming events.
func (that *Relay) Disconnect(ctx context.Context) error {
	err := that.channel.Leave(ctx, that.room, that.self)

	if that.cancel != nil {
		that.cancel()
		<-that.done
	}

	that.setStatus(StatusDisconnected)

	if err != nil {
		return fmt.Errorf("failed to leave room %s: %w", that.room, err)
	}

	return nil
}

func (that *Relay) consume(ctx context.Context, events <-chan Event) {
	defer close(that.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				that.setStatus(StatusDisconnected)
				return
			}

			that.handle(ctx, event)
		}
	}
}

func (that *Relay) handle(ctx context.Context, event Event) {
	switch event.Kind {
	case EventSubscribed:
		that.setStatus(StatusConnected)
	case EventClosed:
		that.setStatus(StatusDisconnected)
	case EventPresence:
		that.mu.Lock()
		that.roster.Update(event.Members)
		that.mu.Unlock()

		that.notify()
	case EventBroadcast:
		that.receive(ctx, event.Envelope)
	}
}

func (that *Relay) receive(ctx context.Context, envelope Envelope) {
	log := that.logger.With("method", "receive", "sender", envelope.SenderID, "action", envelope.Action.Type)

	if envelope.SenderID == that.self.SessionID {
		return
	}

	that.mu.RLock()
	role := that.roster.RoleOf(envelope.SenderID)
	that.mu.RUnlock()

	from, ok := role.Player()
	if !ok {
		log.Warn("dropped remote action", "role", role, "error", apperror.ErrUnknownSender)
		return
	}

	select {
	case <-ctx.Done():
	case that.inbound <- Inbound{Action: envelope.Action, From: from}:
	}
}

func (that *Relay) setStatus(status Status) {
	that.mu.Lock()
	changed := that.status != status
	that.status = status
	that.mu.Unlock()

	if changed {
		that.notify()
	}
}

func (that *Relay) notify() {
	select {
	case that.changes <- struct{}{}:
	default:
	}
}
