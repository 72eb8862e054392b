package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
)

type SearchRequest struct {
	ID         uint64
	State      entity.GameState
	Difficulty Difficulty
}

// SearchResponse carries a move, or a nil Move when there is none. Error is set only when the search failed.
type SearchResponse struct {
	ID    uint64       `json:"id"`
	Move  *entity.Move `json:"move"`
	Error string       `json:"error,omitempty"`
}

type moveChooser interface {
	ChooseMove(state entity.GameState, difficulty Difficulty) (entity.Move, bool)
}

// BotWorker runs searches off the caller's goroutine. Only the latest submitted request is kept:
// a request submitted while another is waiting replaces it.
type BotWorker struct {
	logger *slog.Logger
	bot    moveChooser

	mu      sync.Mutex
	pending *SearchRequest

	wake    chan struct{}
	results chan SearchResponse
}

func NewBotWorker(logger *slog.Logger, bot moveChooser) *BotWorker {
	return &BotWorker{
		logger:  logger.With("component", "bot_worker"),
		bot:     bot,
		wake:    make(chan struct{}, 1),
		results: make(chan SearchResponse, 1),
	}
}

// Submit - queues request without blocking. The state is cloned before it leaves the caller.
func (that *BotWorker) Submit(request SearchRequest) {
	request.State = request.State.Clone()

	that.mu.Lock()
	that.pending = &request
	that.mu.Unlock()

	select {
	case that.wake <- struct{}{}:
	default:
	}
}

func (that *BotWorker) Results() <-chan SearchResponse {
	return that.results
}

// Run - processes requests until ctx is done.
func (that *BotWorker) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")

	for {
		select {
		case <-ctx.Done():
			return
		case <-that.wake:
		}

		request, ok := that.take()
		if !ok {
			continue
		}

		response := that.Search(request)
		if response.Error != "" {
			log.Warn("search failed", "id", response.ID, "error", response.Error)
		}

		select {
		case <-ctx.Done():
			return
		case that.results <- response:
		}
	}
}

func (that *BotWorker) take() (SearchRequest, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.pending == nil {
		return SearchRequest{}, false
	}

	request := *that.pending
	that.pending = nil

	return request, true
}

// Search - runs one request synchronously. Only a panic in the search is reported as an error.
func (that *BotWorker) Search(request SearchRequest) (response SearchResponse) {
	response.ID = request.ID

	defer func() {
		if r := recover(); r != nil {
			response.Move = nil
			response.Error = fmt.Sprintf("search panicked: %v", r)
		}
	}()

	move, ok := that.bot.ChooseMove(request.State, request.Difficulty)
	if !ok {
		return response
	}

	response.Move = &move

	return response
}
