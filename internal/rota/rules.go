package rota

import (
	"github.com/rocketscienceinc/rota-backend/internal/entity"
)

// IsValidPlacement - checks that the cell exists and is empty.
func IsValidPlacement(board entity.Board, position entity.Position) bool {
	return board.IsEmpty(position)
}

// IsValidMovement - checks that origin holds a piece and destination is an empty neighbor.
func IsValidMovement(board entity.Board, origin, destination entity.Position) bool {
	if board.Owner(origin) == entity.NoPlayer {
		return false
	}

	if !board.IsEmpty(destination) {
		return false
	}

	return entity.IsAdjacent(origin, destination)
}

// LegalMoves - every move the current player may make, in ascending position order.
func LegalMoves(state entity.GameState) []entity.Move {
	switch state.Phase {
	case entity.PhaseDeployment:
		if state.PiecesPlaced.Of(state.CurrentPlayer) >= entity.PiecesPerPlayer {
			return nil
		}

		moves := make([]entity.Move, 0, entity.BoardSize)
		for p := entity.Position(0); p < entity.BoardSize; p++ {
			if IsValidPlacement(state.Board, p) {
				moves = append(moves, entity.Placement(p))
			}
		}

		return moves
	case entity.PhaseMovement:
		var moves []entity.Move
		for p := entity.Position(0); p < entity.BoardSize; p++ {
			if state.Board[p] != state.CurrentPlayer {
				continue
			}

			for _, neighbor := range entity.Neighbors(p) {
				if IsValidMovement(state.Board, p, neighbor) {
					moves = append(moves, entity.Slide(p, neighbor))
				}
			}
		}

		return moves
	default:
		return nil
	}
}

// CheckWin - returns the owner of a fully occupied line, or NoPlayer.
func CheckWin(board entity.Board) entity.Player {
	for _, line := range entity.WinLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != entity.NoPlayer && a == b && b == c {
			return a
		}
	}

	return entity.NoPlayer
}

// CheckRepetition - true when (board, mover) is about to occur for the third time.
func CheckRepetition(history entity.History, board entity.Board, mover entity.Player) bool {
	return history.Count(board, mover) >= 2
}

// IsBlocked - the current player cannot slide any piece.
func IsBlocked(state entity.GameState) bool {
	if state.Phase != entity.PhaseMovement {
		return false
	}

	return len(LegalMoves(state)) == 0
}
