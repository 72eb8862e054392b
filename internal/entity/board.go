package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

const (
	BoardSize = 9
	RimSize   = 8

	Hub        Position = 8
	NoPosition Position = -1
)

const (
	NoPlayer Player = ""
	Player1  Player = "PLAYER1"
	Player2  Player = "PLAYER2"
)

var (
	// adjacency - rim positions form a cycle, the hub touches every rim position.
	adjacency = [BoardSize][]Position{
		0: {1, 7, 8},
		1: {0, 2, 8},
		2: {1, 3, 8},
		3: {2, 4, 8},
		4: {3, 5, 8},
		5: {4, 6, 8},
		6: {5, 7, 8},
		7: {6, 0, 8},
		8: {0, 1, 2, 3, 4, 5, 6, 7},
	}

	WinLines = [12][3]Position{
		// rim
		{0, 1, 2},
		{1, 2, 3},
		{2, 3, 4},
		{3, 4, 5},
		{4, 5, 6},
		{5, 6, 7},
		{6, 7, 0},
		{7, 0, 1},
		// diameters through the hub
		{0, 8, 4},
		{1, 8, 5},
		{2, 8, 6},
		{3, 8, 7},
	}
)

// Position is a cell index, 0-7 on the rim and 8 for the hub.
type Position int

func (that Position) IsValid() bool {
	return that >= 0 && that < BoardSize
}

func (that Position) MarshalJSON() ([]byte, error) {
	if !that.IsValid() {
		return []byte("null"), nil
	}

	return []byte(strconv.Itoa(int(that))), nil
}

func (that *Position) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*that = NoPosition
		return nil
	}

	var value int
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to unmarshal position: %w", err)
	}

	*that = Position(value)

	return nil
}

// Neighbors - returns the positions adjacent to p, or nil for an invalid position.
func Neighbors(p Position) []Position {
	if !p.IsValid() {
		return nil
	}

	return slices.Clone(adjacency[p])
}

func IsAdjacent(a, b Position) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}

	return slices.Contains(adjacency[a], b)
}

type Player string

func (that Player) IsValid() bool {
	return that == Player1 || that == Player2
}

func (that Player) Opponent() Player {
	switch that {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

// Board holds one owner (or NoPlayer) per position.
type Board [BoardSize]Player

func (that Board) IsEmpty(p Position) bool {
	return p.IsValid() && that[p] == NoPlayer
}

func (that Board) Owner(p Position) Player {
	if !p.IsValid() {
		return NoPlayer
	}

	return that[p]
}

func (that Board) Count(player Player) int {
	count := 0
	for _, cell := range that {
		if cell == player {
			count++
		}
	}

	return count
}

// SnapshotKey is the canonical compact encoding of a (board, mover) pair.
type SnapshotKey uint32

// Key - packs two bits per cell plus one bit for the mover.
func (that Board) Key(mover Player) SnapshotKey {
	var key SnapshotKey
	for i, cell := range that {
		var bits SnapshotKey
		switch cell {
		case Player1:
			bits = 1
		case Player2:
			bits = 2
		}
		key |= bits << (2 * i)
	}

	if mover == Player2 {
		key |= 1 << (2 * BoardSize)
	}

	return key
}
