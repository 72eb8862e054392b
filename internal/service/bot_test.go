package service

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/rota"
)

const (
	x = entity.Player1
	o = entity.Player2
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func deploymentState(board entity.Board, current entity.Player) entity.GameState {
	state := entity.NewGameState(entity.ModeBot)
	state.Board = board
	state.CurrentPlayer = current
	state.PiecesPlaced = entity.PieceCount{Player1: board.Count(x), Player2: board.Count(o)}

	return state
}

// plainMinimax - the same search without pruning.
func plainMinimax(state entity.GameState, depth int, me entity.Player) int {
	if state.IsFinished() || depth == 0 {
		return evaluate(state, me)
	}

	maximizing := state.CurrentPlayer == me

	moves := rota.LegalMoves(state)
	if len(moves) == 0 {
		if !state.IsMovement() {
			return 0
		}
		if maximizing {
			return -winScore
		}
		return winScore
	}

	best := math.MaxInt
	if maximizing {
		best = math.MinInt
	}

	for _, move := range moves {
		value := plainMinimax(rota.Play(state, move), depth-1, me)
		if maximizing {
			best = max(best, value)
		} else {
			best = min(best, value)
		}
	}

	return best
}

// randomPlayout - a reachable state after n random legal moves (or earlier if the game ends).
func randomPlayout(rnd *rand.Rand, n int) entity.GameState {
	state := entity.NewGameState(entity.ModeBot)
	for i := 0; i < n && !state.IsFinished(); i++ {
		moves := rota.LegalMoves(state)
		state = rota.Play(state, moves[rnd.IntN(len(moves))])
	}

	return state
}

func TestDifficulty_Depth(t *testing.T) {
	assert.Equal(t, 1, DifficultyEasy.Depth())
	assert.Equal(t, 2, DifficultyMedium.Depth())
	assert.Equal(t, 4, DifficultyHard.Depth())

	assert.True(t, DifficultyHard.IsValid())
	assert.False(t, Difficulty("impossible").IsValid())
}

func TestEvaluate(t *testing.T) {
	t.Run("Terminal states", func(t *testing.T) {
		state := entity.NewGameState(entity.ModeBot)

		state.Winner = entity.WinnerOf(o)
		assert.Equal(t, winScore, evaluate(state, o))
		assert.Equal(t, -winScore, evaluate(state, x))

		state.Winner = entity.WinnerDraw
		assert.Equal(t, 0, evaluate(state, o))
	})

	t.Run("Hub is worth holding", func(t *testing.T) {
		state := deploymentState(entity.Board{entity.Hub: o}, x)

		assert.Equal(t, hubScore, evaluate(state, o))
		assert.Equal(t, -hubScore, evaluate(state, x))
	})

	t.Run("Two in an open line", func(t *testing.T) {
		// Given: PLAYER2 holds 0 and 1 with 2 empty; line 7-0-1 is open as well
		state := deploymentState(entity.Board{0: o, 1: o}, x)

		// Then: both open lines count for PLAYER2 and against PLAYER1
		assert.Equal(t, 2*openTwoScore, evaluate(state, o))
		assert.Equal(t, -2*threatTwoScore, evaluate(state, x))
	})

	t.Run("Closed line is not counted", func(t *testing.T) {
		state := deploymentState(entity.Board{0: o, 1: o, 2: x, 7: x}, o)

		assert.Equal(t, 0, evaluate(state, o))
	})
}

func TestBot_ChooseMove(t *testing.T) {
	t.Run("Takes an immediate win", func(t *testing.T) {
		// Given: PLAYER2 to place with 0 and 1 already held
		state := deploymentState(entity.Board{0: o, 1: o, 3: x, 4: x, 6: x}, o)
		bot := NewBot(WithRand(seeded(7)))

		// When: choosing a move
		move, ok := bot.ChooseMove(state, DifficultyMedium)

		// Then: it wins on the spot
		require.True(t, ok)
		assert.Equal(t, entity.WinnerOf(o), rota.Play(state, move).Winner)
	})

	t.Run("Easy without randomness still takes an immediate win", func(t *testing.T) {
		state := deploymentState(entity.Board{0: o, 1: o, 3: x, 4: x, 6: x}, o)
		bot := NewBot(WithRand(seeded(3)), WithRandomMoveChance(0))

		move, ok := bot.ChooseMove(state, DifficultyEasy)

		require.True(t, ok)
		assert.Equal(t, entity.WinnerOf(o), rota.Play(state, move).Winner)
	})

	t.Run("Medium blocks a threat", func(t *testing.T) {
		// Given: PLAYER1 holds 0 and 2, only 1 completes their line
		state := deploymentState(entity.Board{0: x, 2: x, 4: o}, o)
		bot := NewBot(WithRand(seeded(11)))

		// When: choosing a move at depth 2
		move, ok := bot.ChooseMove(state, DifficultyMedium)

		// Then: PLAYER2 places on 1
		require.True(t, ok)
		assert.Equal(t, entity.Placement(1), move)
	})

	t.Run("No legal moves", func(t *testing.T) {
		// Given: PLAYER1 in movement with the only piece boxed in
		state := deploymentState(entity.Board{0: x, 1: o, 7: o, 8: o}, x)
		state.Phase = entity.PhaseMovement

		_, ok := NewBot().ChooseMove(state, DifficultyHard)

		assert.False(t, ok)
	})

	t.Run("Easy with certain randomness plays a legal move", func(t *testing.T) {
		state := deploymentState(entity.Board{0: x, 3: x, 5: x, 1: o, 2: o, 6: o}, x)
		state.Phase = entity.PhaseMovement
		bot := NewBot(WithRand(seeded(5)), WithRandomMoveChance(1))

		for i := 0; i < 20; i++ {
			move, ok := bot.ChooseMove(state, DifficultyEasy)

			require.True(t, ok)
			assert.True(t, rota.IsLegal(state, move))
		}
	})

	t.Run("Does not modify the given state", func(t *testing.T) {
		state := randomPlayout(seeded(9), 7)
		before := state.Clone()

		_, _ = NewBot().ChooseMove(state, DifficultyHard)

		assert.Equal(t, before, state)
	})
}

func TestBot_PruningMatchesPlainMinimax(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		state := randomPlayout(seeded(seed), int(seed%12))
		if state.IsFinished() {
			continue
		}

		for _, difficulty := range []Difficulty{DifficultyMedium, DifficultyHard} {
			// Given: the bot and a reference with the same random source
			bot := NewBot(WithRand(seeded(seed * 100)))
			reference := NewBot(WithRand(seeded(seed * 100)))

			// When: the bot searches with pruning
			move, ok := bot.ChooseMove(state, difficulty)
			require.True(t, ok)

			// Then: it picks the first best move of the unpruned search over the same ordering
			var expected entity.Move
			bestScore := math.MinInt
			for _, candidate := range reference.candidates(state) {
				score := plainMinimax(rota.Play(state, candidate), difficulty.Depth()-1, state.CurrentPlayer)
				if score > bestScore {
					bestScore = score
					expected = candidate
				}
			}

			require.Equal(t, expected, move, "seed %d difficulty %s", seed, difficulty)
		}
	}
}
