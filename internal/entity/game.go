package entity

const PiecesPerPlayer = 3

const (
	PhaseDeployment Phase = "DEPLOYMENT"
	PhaseMovement   Phase = "MOVEMENT"
	PhaseGameOver   Phase = "GAME_OVER"
)

const (
	NoWinner   Winner = ""
	WinnerDraw Winner = "DRAW"
)

const (
	ModeLocal  GameMode = "local"
	ModeBot    GameMode = "bot"
	ModeOnline GameMode = "online"
)

// MachinePlayer is the side played by the search opponent in ModeBot.
const MachinePlayer = Player2

type Phase string

// Winner is a Player, WinnerDraw or NoWinner.
type Winner string

func WinnerOf(player Player) Winner {
	return Winner(player)
}

type GameMode string

func (that GameMode) IsValid() bool {
	switch that {
	case ModeLocal, ModeBot, ModeOnline:
		return true
	default:
		return false
	}
}

type PieceCount struct {
	Player1 int `json:"PLAYER1"`
	Player2 int `json:"PLAYER2"`
}

func (that PieceCount) Of(player Player) int {
	switch player {
	case Player1:
		return that.Player1
	case Player2:
		return that.Player2
	default:
		return 0
	}
}

func (that PieceCount) Inc(player Player) PieceCount {
	switch player {
	case Player1:
		that.Player1++
	case Player2:
		that.Player2++
	}

	return that
}

// DeploymentDone - both players have placed all their pieces.
func (that PieceCount) DeploymentDone() bool {
	return that.Player1 >= PiecesPerPlayer && that.Player2 >= PiecesPerPlayer
}

// GameState is an immutable snapshot of one game. Reducers build new values from old ones.
type GameState struct {
	Board          Board      `json:"board"`
	CurrentPlayer  Player     `json:"current_player"`
	Phase          Phase      `json:"phase"`
	Winner         Winner     `json:"winner"`
	PiecesPlaced   PieceCount `json:"pieces_placed"`
	SelectedOrigin Position   `json:"selected_origin"`
	History        History    `json:"history"`
	Mode           GameMode   `json:"game_mode"`
}

func NewGameState(mode GameMode) GameState {
	if !mode.IsValid() {
		mode = ModeLocal
	}

	return GameState{
		CurrentPlayer:  Player1,
		Phase:          PhaseDeployment,
		Winner:         NoWinner,
		SelectedOrigin: NoPosition,
		Mode:           mode,
	}
}

func (that GameState) IsFinished() bool {
	return that.Phase == PhaseGameOver
}

func (that GameState) IsDeployment() bool {
	return that.Phase == PhaseDeployment
}

func (that GameState) IsMovement() bool {
	return that.Phase == PhaseMovement
}

// Clone - deep copy, safe to hand to another goroutine.
func (that GameState) Clone() GameState {
	that.History = that.History.Clone()
	return that
}
