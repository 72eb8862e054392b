package rota

import (
	"fmt"

	"github.com/rocketscienceinc/rota-backend/internal/apperror"
	"github.com/rocketscienceinc/rota-backend/internal/entity"
)

// Reduce - returns the state produced by action. Invalid actions return state unchanged.
func Reduce(state entity.GameState, action entity.Action) entity.GameState {
	next, _ := Apply(state, action)
	return next
}

// Apply - like Reduce, also reports whether the action was accepted.
func Apply(state entity.GameState, action entity.Action) (entity.GameState, bool) {
	switch action.Type {
	case entity.ActionReset:
		return entity.NewGameState(state.Mode), true
	case entity.ActionSetGameMode:
		if !action.Mode.IsValid() {
			return state, false
		}
		return entity.NewGameState(action.Mode), true
	}

	if state.IsFinished() {
		return state, false
	}

	var move entity.Move

	switch action.Type {
	case entity.ActionPlacePiece:
		move = entity.Placement(action.Position)
	case entity.ActionSelectPiece:
		if !state.IsMovement() || state.Board.Owner(action.Position) != state.CurrentPlayer {
			return state, false
		}
		state.SelectedOrigin = action.Position
		return state, true
	case entity.ActionMovePiece:
		if state.SelectedOrigin == entity.NoPosition {
			return state, false
		}
		move = entity.Slide(state.SelectedOrigin, action.Destination)
	case entity.ActionOpponentMove:
		move = entity.Move{Origin: action.Origin, Destination: action.Destination}
	default:
		return state, false
	}

	if !IsLegal(state, move) {
		return state, false
	}

	return Play(state, move), true
}

// IsLegal - checks move against the phase, the current player and the board.
func IsLegal(state entity.GameState, move entity.Move) bool {
	if move.IsPlacement() {
		return state.IsDeployment() &&
			state.PiecesPlaced.Of(state.CurrentPlayer) < entity.PiecesPerPlayer &&
			IsValidPlacement(state.Board, move.Destination)
	}

	return state.IsMovement() &&
		state.Board.Owner(move.Origin) == state.CurrentPlayer &&
		IsValidMovement(state.Board, move.Origin, move.Destination)
}

// Play - applies a legal move for the current player and resolves the phase transition.
// The caller guarantees legality (see IsLegal).
func Play(state entity.GameState, move entity.Move) entity.GameState {
	mover := state.CurrentPlayer

	next := state
	next.SelectedOrigin = entity.NoPosition

	if move.IsPlacement() {
		next.Board[move.Destination] = mover
		next.PiecesPlaced = next.PiecesPlaced.Inc(mover)
	} else {
		next.Board[move.Origin] = entity.NoPlayer
		next.Board[move.Destination] = mover
	}

	return resolve(next, mover)
}

// resolve - win, then repetition, then block; otherwise hand the turn over and record history.
func resolve(next entity.GameState, mover entity.Player) entity.GameState {
	nextPhase := next.Phase
	if nextPhase == entity.PhaseDeployment && next.PiecesPlaced.DeploymentDone() {
		nextPhase = entity.PhaseMovement
	}

	next.CurrentPlayer = mover.Opponent()

	if winner := CheckWin(next.Board); winner != entity.NoPlayer {
		next.Phase = entity.PhaseGameOver
		next.Winner = entity.WinnerOf(winner)
		return next
	}

	if nextPhase == entity.PhaseMovement {
		if CheckRepetition(next.History, next.Board, mover) {
			next.Phase = entity.PhaseGameOver
			next.Winner = entity.WinnerDraw
			return next
		}

		next.Phase = entity.PhaseMovement
		if IsBlocked(next) {
			next.Phase = entity.PhaseGameOver
			next.Winner = entity.WinnerOf(mover)
			return next
		}
	}

	next.Phase = nextPhase
	next.History = next.History.Append(next.Board, mover)

	return next
}

// Admit - decides whether an action received from a remote role may be applied.
func Admit(state entity.GameState, action entity.Action, from entity.Player) error {
	switch action.Type {
	case entity.ActionReset:
		if !state.IsFinished() {
			return fmt.Errorf("%w: phase %s", apperror.ErrGameInProgress, state.Phase)
		}
		return nil
	case entity.ActionPlacePiece, entity.ActionOpponentMove:
	default:
		return fmt.Errorf("%w: %s", apperror.ErrNotRelayable, action.Type)
	}

	if state.IsFinished() {
		return apperror.ErrGameFinished
	}

	if from != state.CurrentPlayer {
		return fmt.Errorf("%w: from %s, current %s", apperror.ErrNotYourTurn, from, state.CurrentPlayer)
	}

	return nil
}

// ClickAction - translates a click on position into the action it means in state.
func ClickAction(state entity.GameState, position entity.Position) (entity.Action, bool) {
	if !position.IsValid() {
		return entity.Action{}, false
	}

	switch state.Phase {
	case entity.PhaseDeployment:
		return entity.PlacePiece(position), true
	case entity.PhaseMovement:
		if state.Board[position] == state.CurrentPlayer {
			return entity.SelectPiece(position), true
		}

		if state.SelectedOrigin != entity.NoPosition && state.Board.IsEmpty(position) {
			return entity.MovePiece(position), true
		}

		return entity.Action{}, false
	default:
		return entity.Action{}, false
	}
}

// RelayAction - the self-contained form of an accepted local action for a peer,
// which knows nothing about local selection. before is the state the action was applied to.
func RelayAction(before entity.GameState, action entity.Action) (entity.Action, bool) {
	switch action.Type {
	case entity.ActionPlacePiece, entity.ActionOpponentMove, entity.ActionReset:
		return action, true
	case entity.ActionMovePiece:
		return entity.OpponentMove(entity.Slide(before.SelectedOrigin, action.Destination)), true
	default:
		return entity.Action{}, false
	}
}
