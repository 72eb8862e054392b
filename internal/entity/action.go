package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActionPlacePiece   ActionType = "PLACE_PIECE"
	ActionSelectPiece  ActionType = "SELECT_PIECE"
	ActionMovePiece    ActionType = "MOVE_PIECE"
	ActionOpponentMove ActionType = "OPPONENT_MOVE"
	ActionSetGameMode  ActionType = "SET_GAME_MODE"
	ActionReset        ActionType = "RESET"
)

type ActionType string

// Action is the only way to transform a GameState. Fields not used by Type are NoPosition / empty.
type Action struct {
	Type        ActionType `json:"type"`
	Position    Position   `json:"position"`
	Origin      Position   `json:"origin"`
	Destination Position   `json:"destination"`
	Mode        GameMode   `json:"mode,omitempty"`
}

func newAction(actionType ActionType) Action {
	return Action{
		Type:        actionType,
		Position:    NoPosition,
		Origin:      NoPosition,
		Destination: NoPosition,
	}
}

func PlacePiece(position Position) Action {
	action := newAction(ActionPlacePiece)
	action.Position = position

	return action
}

func SelectPiece(position Position) Action {
	action := newAction(ActionSelectPiece)
	action.Position = position

	return action
}

func MovePiece(destination Position) Action {
	action := newAction(ActionMovePiece)
	action.Destination = destination

	return action
}

func OpponentMove(move Move) Action {
	action := newAction(ActionOpponentMove)
	action.Origin = move.Origin
	action.Destination = move.Destination

	return action
}

func SetGameMode(mode GameMode) Action {
	action := newAction(ActionSetGameMode)
	action.Mode = mode

	return action
}

func Reset() Action {
	return newAction(ActionReset)
}

func (that *Action) UnmarshalJSON(data []byte) error {
	type plain Action

	action := plain(newAction(""))
	if err := json.Unmarshal(data, &action); err != nil {
		return fmt.Errorf("failed to unmarshal action: %w", err)
	}

	*that = Action(action)

	return nil
}

// Move is the unit of play for the search and the legal move generator.
// Origin is NoPosition for a placement.
type Move struct {
	Origin      Position `json:"origin"`
	Destination Position `json:"destination"`
}

func Placement(destination Position) Move {
	return Move{Origin: NoPosition, Destination: destination}
}

func Slide(origin, destination Position) Move {
	return Move{Origin: origin, Destination: destination}
}

func (that Move) IsPlacement() bool {
	return that.Origin == NoPosition
}

func (that *Move) UnmarshalJSON(data []byte) error {
	type plain Move

	move := plain{Origin: NoPosition, Destination: NoPosition}
	if err := json.Unmarshal(data, &move); err != nil {
		return fmt.Errorf("failed to unmarshal move: %w", err)
	}

	*that = Move(move)

	return nil
}

// Participant is a member of a room as seen through presence.
type Participant struct {
	SessionID string    `json:"sessionId"`
	JoinedAt  time.Time `json:"joinedAt"`
}
