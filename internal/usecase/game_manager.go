package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/rota"
	"github.com/rocketscienceinc/rota-backend/internal/service"
)

const (
	CommandClick         CommandKind = "click"
	CommandReset         CommandKind = "reset"
	CommandSetMode       CommandKind = "set_mode"
	CommandSetDifficulty CommandKind = "set_difficulty"
)

const (
	commandBufferSize = 16
	disconnectTimeout = 5 * time.Second
)

type CommandKind string

// Command is a local user intent. Only the field matching Kind is used.
type Command struct {
	Kind       CommandKind
	Position   entity.Position
	Mode       entity.GameMode
	Difficulty service.Difficulty
}

// Snapshot is everything a client needs to render the session.
type Snapshot struct {
	State       entity.GameState   `json:"state"`
	Role        peer.Role          `json:"role,omitempty"`
	Status      peer.Status        `json:"status,omitempty"`
	Difficulty  service.Difficulty `json:"difficulty"`
	Thinking    bool               `json:"thinking"`
	OnlineCount int                `json:"online_count"`
}

type relay interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, action entity.Action) error

	Inbound() <-chan peer.Inbound
	Changes() <-chan struct{}

	Status() peer.Status
	Role() peer.Role
	OnlineCount() int

	Freeze()
	Unfreeze()
}

type searcher interface {
	Submit(request service.SearchRequest)
	Results() <-chan service.SearchResponse
}

type GameManagerOptions struct {
	Mode       entity.GameMode
	Difficulty service.Difficulty
}

// GameManager owns the game state of one participant. All state changes happen on the goroutine
// running Run; the Handle methods are that goroutine's handlers.
type GameManager struct {
	logger   *slog.Logger
	searcher searcher
	relay    relay

	state      entity.GameState
	difficulty service.Difficulty
	searchID   uint64
	thinking   bool

	commands chan Command
	updates  chan Snapshot
	done     chan struct{}
}

// NewGameManager - relay is required for online mode and ignored otherwise.
func NewGameManager(logger *slog.Logger, searcher searcher, relay relay, opts GameManagerOptions) (*GameManager, error) {
	if !opts.Mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidMode, opts.Mode)
	}

	if !opts.Difficulty.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, opts.Difficulty)
	}

	if opts.Mode == entity.ModeOnline && relay == nil {
		return nil, fmt.Errorf("%w: online mode needs a room", apperror.ErrInvalidRoom)
	}

	if opts.Mode != entity.ModeOnline {
		relay = nil
	}

	return &GameManager{
		logger:     logger.With("component", "game_manager", "mode", opts.Mode),
		searcher:   searcher,
		relay:      relay,
		state:      entity.NewGameState(opts.Mode),
		difficulty: opts.Difficulty,
		commands:   make(chan Command, commandBufferSize),
		updates:    make(chan Snapshot, 1),
		done:       make(chan struct{}),
	}, nil
}

// Updates - the latest snapshot after every change. Intermediate snapshots may be skipped.
func (that *GameManager) Updates() <-chan Snapshot {
	return that.updates
}

// Dispatch - hands a command to the running session.
func (that *GameManager) Dispatch(ctx context.Context, command Command) error {
	select {
	case <-that.done:
		return apperror.ErrSessionClosed
	default:
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to dispatch command: %w", ctx.Err())
	case <-that.done:
		return apperror.ErrSessionClosed
	case that.commands <- command:
		return nil
	}
}

// Run - connects the relay (online mode) and serves the session until ctx is done.
func (that *GameManager) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	defer close(that.done)

	var inbound <-chan peer.Inbound
	var changes <-chan struct{}

	if that.relay != nil {
		if err := that.relay.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect relay: %w", err)
		}

		defer that.disconnect(ctx)

		inbound = that.relay.Inbound()
		changes = that.relay.Changes()
	}

	var results <-chan service.SearchResponse
	if that.searcher != nil {
		results = that.searcher.Results()
	}

	that.publish()

	for {
		select {
		case <-ctx.Done():
			log.Debug("session closed")
			return nil
		case command := <-that.commands:
			if err := that.handleCommand(ctx, command); err != nil {
				log.Warn("command rejected", "command", command.Kind, "error", err)
			}
		case response := <-results:
			that.HandleSearchResult(ctx, response)
		case in := <-inbound:
			that.HandleRemote(in)
		case <-changes:
			that.HandleRelayChange()
		}
	}
}

func (that *GameManager) disconnect(ctx context.Context) {
	log := that.logger.With("method", "disconnect")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()

	if err := that.relay.Disconnect(ctx); err != nil {
		log.Error("failed to disconnect relay", "error", err)
	}
}

func (that *GameManager) handleCommand(ctx context.Context, command Command) error {
	switch command.Kind {
	case CommandClick:
		that.HandleClick(ctx, command.Position)
	case CommandReset:
		that.HandleReset(ctx)
	case CommandSetMode:
		return that.HandleSetMode(ctx, command.Mode)
	case CommandSetDifficulty:
		return that.HandleSetDifficulty(command.Difficulty)
	default:
		return fmt.Errorf("unknown command %q", command.Kind)
	}

	return nil
}

// Snapshot - the current session as clients see it.
func (that *GameManager) Snapshot() Snapshot {
	snapshot := Snapshot{
		State:      that.state.Clone(),
		Difficulty: that.difficulty,
		Thinking:   that.thinking,
	}

	if that.relay != nil {
		snapshot.Role = that.relay.Role()
		snapshot.Status = that.relay.Status()
		snapshot.OnlineCount = that.relay.OnlineCount()
	}

	return snapshot
}

// HandleClick - a click on position by the local user, subject to whose turn it is.
func (that *GameManager) HandleClick(ctx context.Context, position entity.Position) {
	log := that.logger.With("method", "HandleClick", "position", position)

	switch that.state.Mode {
	case entity.ModeBot:
		if that.state.CurrentPlayer == entity.MachinePlayer {
			log.Debug("click ignored, machine to move")
			return
		}
	case entity.ModeOnline:
		if status := that.relay.Status(); status != peer.StatusConnected {
			log.Debug("click ignored, not connected", "status", status)
			return
		}

		if player, ok := that.relay.Role().Player(); !ok || player != that.state.CurrentPlayer {
			log.Debug("click ignored, not our turn", "role", that.relay.Role())
			return
		}
	}

	action, ok := rota.ClickAction(that.state, position)
	if !ok {
		return
	}

	that.apply(ctx, action)
}

// HandleReset - back to the initial state. Online, only a finished game may be reset.
func (that *GameManager) HandleReset(ctx context.Context) {
	if that.state.Mode == entity.ModeOnline && !that.state.IsFinished() {
		that.logger.Debug("reset ignored, game in progress", "method", "HandleReset")
		return
	}

	that.apply(ctx, entity.Reset())
}

// HandleSetMode - restarts the game in mode. Online sessions are bound to their room.
func (that *GameManager) HandleSetMode(ctx context.Context, mode entity.GameMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMode, mode)
	}

	current := that.state.Mode
	if current == entity.ModeOnline || mode == entity.ModeOnline {
		if current == mode {
			return nil
		}
		return fmt.Errorf("%w: from %s to %s", apperror.ErrModeLocked, current, mode)
	}

	that.apply(ctx, entity.SetGameMode(mode))

	return nil
}

func (that *GameManager) HandleSetDifficulty(difficulty service.Difficulty) error {
	if !difficulty.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, difficulty)
	}

	that.difficulty = difficulty
	that.publish()

	return nil
}

// HandleRemote - an action received from the other player. Inadmissible actions are dropped.
func (that *GameManager) HandleRemote(in peer.Inbound) {
	log := that.logger.With("method", "HandleRemote", "action", in.Action.Type, "from", in.From)

	if err := rota.Admit(that.state, in.Action, in.From); err != nil {
		log.Warn("dropped remote action", "error", err)
		return
	}

	next, accepted := rota.Apply(that.state, in.Action)
	if !accepted {
		log.Warn("dropped illegal remote action")
		return
	}

	that.state = next
	that.afterReduce()
}

// HandleSearchResult - plays the machine's move if response answers the latest search.
func (that *GameManager) HandleSearchResult(ctx context.Context, response service.SearchResponse) {
	log := that.logger.With("method", "HandleSearchResult", "id", response.ID)

	if !that.thinking || response.ID != that.searchID {
		log.Debug("stale search result ignored")
		return
	}

	that.thinking = false

	if response.Error != "" {
		log.Warn("search failed", "error", response.Error)
	}

	if response.Move == nil {
		that.publish()
		return
	}

	that.apply(ctx, entity.OpponentMove(*response.Move))
}

// HandleRelayChange - status, role or membership changed.
func (that *GameManager) HandleRelayChange() {
	that.publish()
}

func (that *GameManager) apply(ctx context.Context, action entity.Action) {
	log := that.logger.With("method", "apply", "action", action.Type)

	before := that.state

	next, accepted := rota.Apply(before, action)
	if !accepted {
		return
	}

	that.state = next

	if that.relay != nil {
		if relayed, ok := rota.RelayAction(before, action); ok {
			if err := that.relay.Send(ctx, relayed); err != nil {
				log.Warn("failed to relay action", "error", err)
			}
		}
	}

	that.afterReduce()
}

// afterReduce - seats, machine turn, then a fresh snapshot.
func (that *GameManager) afterReduce() {
	if that.relay != nil {
		if that.state.IsDeployment() {
			that.relay.Unfreeze()
		} else {
			that.relay.Freeze()
		}
	}

	// any search in flight now answers an outdated state
	that.searchID++
	that.thinking = false

	if that.isMachineTurn() && that.searcher != nil {
		that.thinking = true
		that.searcher.Submit(service.SearchRequest{
			ID:         that.searchID,
			State:      that.state,
			Difficulty: that.difficulty,
		})
	}

	that.publish()
}

func (that *GameManager) isMachineTurn() bool {
	return that.state.Mode == entity.ModeBot &&
		!that.state.IsFinished() &&
		that.state.CurrentPlayer == entity.MachinePlayer
}

// publish - replaces any unread snapshot with the current one.
func (that *GameManager) publish() {
	snapshot := that.Snapshot()

	select {
	case <-that.updates:
	default:
	}

	select {
	case that.updates <- snapshot:
	default:
	}
}
