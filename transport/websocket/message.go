package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/service"
)

const (
	actionCellClick     = "cell:click"
	actionGameReset     = "game:reset"
	actionGameMode      = "game:mode"
	actionBotDifficulty = "bot:difficulty"

	actionGameState = "game:state"
	actionError     = "error"
	actionPing      = "ping"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ClickPayload struct {
	Position *entity.Position `json:"position"`
}

type ModePayload struct {
	Mode entity.GameMode `json:"mode"`
}

type DifficultyPayload struct {
	Difficulty service.Difficulty `json:"difficulty"`
}

type ErrorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

func encodeMessage(action string, payload any) ([]byte, error) {
	message := Message{Action: action}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}

		message.Payload = raw
	}

	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}

func decodePayload(message *Message, target any) error {
	if len(message.Payload) == 0 {
		return fmt.Errorf("%s: payload is required", message.Action)
	}

	if err := json.Unmarshal(message.Payload, target); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}
