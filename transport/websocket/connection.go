package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/usecase"
)

const (
	sendBufferSize = 16
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

type connection struct {
	logger       *slog.Logger
	ws           *websocket.Conn
	session      *usecase.Session
	clicks       *rate.Limiter
	send         chan []byte
	pingInterval time.Duration
}

// serve - runs the session and pumps messages until either side goes away.
// The writer owns the socket: it flushes what is queued and closes it on the way out.
func (that *Server) serve(ctx context.Context, ws *websocket.Conn, session *usecase.Session) {
	log := that.logger.With("method", "serve")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := &connection{
		logger:       that.logger,
		ws:           ws,
		session:      session,
		clicks:       rate.NewLimiter(rate.Limit(that.opts.ClicksPerSecond), that.opts.ClickBurst),
		send:         make(chan []byte, sendBufferSize),
		pingInterval: that.opts.PingInterval,
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		defer cancel()

		if err := session.Run(ctx); err != nil {
			log.Error("session stopped", "error", err)
			conn.sendError(ctx, "", err)
		}
	}()

	go func() {
		defer wg.Done()
		defer cancel()

		conn.forwardUpdates(ctx)
	}()

	go func() {
		defer wg.Done()
		defer cancel()

		if err := conn.writePump(ctx); err != nil {
			log.Debug("writer stopped", "error", err)
		}
	}()

	if err := that.readPump(ctx, conn); err != nil {
		log.Debug("connection closed", "error", err)
	}

	cancel()
	wg.Wait()
}

func (that *Server) readPump(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "readPump")

	conn.ws.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			conn.sendError(ctx, "", err)
			continue
		}

		handle, ok := that.handlers[message.Action]
		if !ok {
			conn.sendError(ctx, message.Action, ErrUnknownAction)
			continue
		}

		if err = handle(ctx, conn, &message); err != nil {
			if errors.Is(err, apperror.ErrSessionClosed) {
				return err
			}

			log.Debug("error processing message", "action", message.Action, "error", err)
			conn.sendError(ctx, message.Action, err)
		}
	}
}

// forwardUpdates - every snapshot of the session becomes a game:state message.
func (that *connection) forwardUpdates(ctx context.Context) {
	log := that.logger.With("method", "forwardUpdates")

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-that.session.Updates():
			data, err := encodeMessage(actionGameState, snapshot)
			if err != nil {
				log.Error("failed to encode snapshot", "error", err)
				continue
			}

			if err = that.enqueue(ctx, data); err != nil {
				return
			}
		}
	}
}

// writePump - writes queued messages, pinging the client when the connection has been idle.
func (that *connection) writePump(ctx context.Context) error {
	ticker := time.NewTicker(that.pingInterval)
	defer ticker.Stop()

	defer that.close()

	ping, err := encodeMessage(actionPing, nil)
	if err != nil {
		return err
	}

	lastWrite := time.Now()

	for {
		select {
		case <-ctx.Done():
			return that.flush()
		case data := <-that.send:
			if err = that.write(data); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < that.pingInterval {
				continue
			}
			if err = that.write(ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

func (that *connection) flush() error {
	for {
		select {
		case data := <-that.send:
			if err := that.write(data); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (that *connection) write(data []byte) error {
	if err := that.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *connection) close() {
	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = that.ws.WriteControl(websocket.CloseMessage, closing, time.Now().Add(writeWait))
	_ = that.ws.Close()
}

func (that *connection) enqueue(ctx context.Context, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case that.send <- data:
		return nil
	}
}

func (that *connection) sendError(ctx context.Context, action string, cause error) {
	data, err := encodeMessage(actionError, ErrorPayload{Action: action, Error: cause.Error()})
	if err != nil {
		that.logger.Error("failed to encode error", "error", err)
		return
	}

	_ = that.enqueue(ctx, data)
}
