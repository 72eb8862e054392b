package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// sessionHandler serves the websocket route and can wait for its sessions to wind down.
type sessionHandler interface {
	http.Handler
	Wait(ctx context.Context) error
}

type Server struct {
	logger   *slog.Logger
	router   chi.Router
	sessions sessionHandler
}

// New - ws serves the /ws route; presence backs the room member listing.
func New(logger *slog.Logger, presence presenceLister, ws sessionHandler) *Server {
	handlers := newRoomHandlers(logger, presence)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/ping", pingHandler)

	router.Route("/rooms", func(r chi.Router) {
		r.Post("/", handlers.CreateRoom)
		r.Get("/{room}/members", handlers.RoomMembers)
	})

	router.Handle("/ws", ws)

	return &Server{
		logger:   logger.With("component", "rest"),
		router:   router,
		sessions: ws,
	}
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start - serves on port until ctx is done, then shuts down gracefully.
// Connection contexts derive from ctx so open websocket sessions stop with it; Start returns only
// after they have left their rooms.
func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("http server started", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if err := that.sessions.Wait(shutdownCtx); err != nil {
		return fmt.Errorf("failed to wait for sessions: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}

	log.Info("http server stopped")

	return nil
}
