package service

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/rota"
)

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DefaultRandomMoveChance is how often an easy bot plays a uniformly random legal move.
const DefaultRandomMoveChance = 0.4

const (
	winScore       = 10000
	hubScore       = 10
	openTwoScore   = 50
	threatTwoScore = 80
)

type Difficulty string

func (that Difficulty) IsValid() bool {
	switch that {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Depth - search depth in plies. Unknown difficulties search like medium.
func (that Difficulty) Depth() int {
	switch that {
	case DifficultyEasy:
		return 1
	case DifficultyHard:
		return 4
	default:
		return 2
	}
}

// Bot picks moves with a depth limited minimax search with alpha-beta pruning.
// A Bot is not safe for concurrent use: it owns its random source.
type Bot struct {
	rnd              *rand.Rand
	randomMoveChance float64
}

type BotOption func(*Bot)

func WithRand(rnd *rand.Rand) BotOption {
	return func(bot *Bot) {
		bot.rnd = rnd
	}
}

func WithRandomMoveChance(chance float64) BotOption {
	return func(bot *Bot) {
		bot.randomMoveChance = min(max(chance, 0), 1)
	}
}

func NewBot(opts ...BotOption) *Bot {
	seed := uint64(time.Now().UnixNano())

	bot := &Bot{
		rnd:              rand.New(rand.NewPCG(seed, seed>>1|1)), //nolint: gosec // it's ok
		randomMoveChance: DefaultRandomMoveChance,
	}

	for _, opt := range opts {
		opt(bot)
	}

	return bot
}

// ChooseMove - the best move for the current player of state. False only when there is no legal move.
func (that *Bot) ChooseMove(state entity.GameState, difficulty Difficulty) (entity.Move, bool) {
	moves := that.candidates(state)
	if len(moves) == 0 {
		return entity.Move{}, false
	}

	if difficulty == DifficultyEasy && that.rnd.Float64() < that.randomMoveChance {
		return moves[0], true
	}

	me := state.CurrentPlayer
	depth := difficulty.Depth()

	best := moves[0]
	bestScore := math.MinInt
	alpha := math.MinInt

	for _, move := range moves {
		score := minimax(rota.Play(state, move), depth-1, alpha, math.MaxInt, me)

		// strictly greater: among equal scores the first move after shuffling wins
		if score > bestScore {
			bestScore = score
			best = move
		}

		alpha = max(alpha, score)
	}

	return best, true
}

// candidates - legal moves in random order.
func (that *Bot) candidates(state entity.GameState) []entity.Move {
	moves := rota.LegalMoves(state)
	that.rnd.Shuffle(len(moves), func(i, j int) {
		moves[i], moves[j] = moves[j], moves[i]
	})

	return moves
}

func minimax(state entity.GameState, depth, alpha, beta int, me entity.Player) int {
	if state.IsFinished() || depth == 0 {
		return evaluate(state, me)
	}

	maximizing := state.CurrentPlayer == me

	moves := rota.LegalMoves(state)
	if len(moves) == 0 {
		// stuck in movement loses for the side to move
		if !state.IsMovement() {
			return 0
		}
		if maximizing {
			return -winScore
		}
		return winScore
	}

	if maximizing {
		value := math.MinInt
		for _, move := range moves {
			value = max(value, minimax(rota.Play(state, move), depth-1, alpha, beta, me))
			alpha = max(alpha, value)
			if beta <= alpha {
				break
			}
		}
		return value
	}

	value := math.MaxInt
	for _, move := range moves {
		value = min(value, minimax(rota.Play(state, move), depth-1, alpha, beta, me))
		beta = min(beta, value)
		if beta <= alpha {
			break
		}
	}
	return value
}

// evaluate - static score of state from me's point of view.
func evaluate(state entity.GameState, me entity.Player) int {
	switch state.Winner {
	case entity.WinnerDraw:
		return 0
	case entity.WinnerOf(me):
		return winScore
	case entity.WinnerOf(me.Opponent()):
		return -winScore
	}

	score := 0

	switch state.Board[entity.Hub] {
	case me:
		score += hubScore
	case me.Opponent():
		score -= hubScore
	}

	for _, line := range entity.WinLines {
		var own, other, empty int
		for _, p := range line {
			switch state.Board[p] {
			case me:
				own++
			case entity.NoPlayer:
				empty++
			default:
				other++
			}
		}

		if empty != 1 {
			continue
		}

		switch {
		case own == 2:
			score += openTwoScore
		case other == 2:
			score -= threatTwoScore
		}
	}

	return score
}
