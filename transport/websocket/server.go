package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/service"
	"github.com/rocketscienceinc/rota-backend/internal/usecase"
)

const (
	defaultPingInterval    = 25 * time.Second
	defaultClicksPerSecond = 5
	defaultClickBurst      = 10
)

type sessionFactory interface {
	NewSession(opts usecase.SessionOptions) (*usecase.Session, error)
}

type Options struct {
	PingInterval      time.Duration
	ClicksPerSecond   float64
	ClickBurst        int
	DefaultDifficulty service.Difficulty
}

type handler func(ctx context.Context, conn *connection, msg *Message) error

type Server struct {
	logger   *slog.Logger
	sessions sessionFactory
	opts     Options

	upgrader websocket.Upgrader
	handlers map[string]handler

	// live counts sessions that have not finished leaving their room.
	live sync.WaitGroup
}

func New(logger *slog.Logger, sessions sessionFactory, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}

	if opts.ClicksPerSecond <= 0 {
		opts.ClicksPerSecond = defaultClicksPerSecond
	}

	if opts.ClickBurst <= 0 {
		opts.ClickBurst = defaultClickBurst
	}

	if !opts.DefaultDifficulty.IsValid() {
		opts.DefaultDifficulty = service.DifficultyMedium
	}

	server := &Server{
		logger:   logger.With("component", "websocket"),
		sessions: sessions,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		handlers: make(map[string]handler),
	}

	server.handlers[actionCellClick] = server.handleCellClick
	server.handlers[actionGameReset] = server.handleGameReset
	server.handlers[actionGameMode] = server.handleGameMode
	server.handlers[actionBotDifficulty] = server.handleBotDifficulty

	return server
}

// ServeHTTP - validates the query, opens a session and upgrades the connection.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	opts, err := that.sessionOptions(req.URL.Query())
	if err != nil {
		log.Debug("rejected session options", "error", err)
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := that.sessions.NewSession(opts)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, apperror.ErrNotConnected) {
			status = http.StatusServiceUnavailable
		}

		log.Warn("failed to create session", "error", err)
		http.Error(writer, err.Error(), status)
		return
	}

	// counted before the hijack, so http.Server.Shutdown can't miss it
	that.live.Add(1)
	defer that.live.Done()

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	defer ws.Close()

	log.Info("WebSocket connection established", "mode", opts.Mode, "room", opts.Room)

	that.serve(req.Context(), ws, session)
}

// Wait - blocks until every session served so far has stopped and left its room, or ctx is done.
// http.Server.Shutdown does not wait for hijacked connections; call Wait after it.
func (that *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		that.live.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sessions still running: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (that *Server) sessionOptions(query url.Values) (usecase.SessionOptions, error) {
	opts := usecase.SessionOptions{
		Mode:       entity.GameMode(query.Get("mode")),
		Room:       query.Get("room"),
		Difficulty: service.Difficulty(query.Get("difficulty")),
	}

	if opts.Mode == "" {
		opts.Mode = entity.ModeLocal
	}

	if !opts.Mode.IsValid() {
		return opts, fmt.Errorf("%w: %q", apperror.ErrInvalidMode, opts.Mode)
	}

	if opts.Difficulty == "" {
		opts.Difficulty = that.opts.DefaultDifficulty
	}

	if !opts.Difficulty.IsValid() {
		return opts, fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, opts.Difficulty)
	}

	if opts.Mode == entity.ModeOnline {
		if err := usecase.ValidateRoom(opts.Room); err != nil {
			return opts, err
		}
	}

	return opts, nil
}
