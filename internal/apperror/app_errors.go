package apperror

import "errors"

var (
	ErrGameFinished      = errors.New("game is already finished")
	ErrGameInProgress    = errors.New("game is still in progress")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrNotRelayable      = errors.New("action is not accepted from a peer")
	ErrUnknownSender     = errors.New("sender is not a player in this room")
	ErrNotConnected      = errors.New("channel is not connected")
	ErrInvalidRoom       = errors.New("invalid room id")
	ErrInvalidMode       = errors.New("invalid game mode")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrModeLocked        = errors.New("online mode can't be entered or left from a running session")
	ErrSessionClosed     = errors.New("game session is closed")
)
