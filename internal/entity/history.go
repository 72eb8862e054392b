package entity

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Snapshot is a board as it was left by mover.
type Snapshot struct {
	Board Board  `json:"board"`
	Mover Player `json:"mover"`
}

// History is an append-only log of snapshots with an occurrence counter per snapshot key.
// Append returns a new History; the receiver is never modified.
type History struct {
	entries []Snapshot
	counts  map[SnapshotKey]int
}

func NewHistory(snapshots ...Snapshot) History {
	var history History
	for _, snapshot := range snapshots {
		history = history.Append(snapshot.Board, snapshot.Mover)
	}

	return history
}

func (that History) Len() int {
	return len(that.entries)
}

func (that History) Entries() []Snapshot {
	return slices.Clone(that.entries)
}

// Count - how many times (board, mover) was recorded.
func (that History) Count(board Board, mover Player) int {
	return that.counts[board.Key(mover)]
}

func (that History) Append(board Board, mover Player) History {
	entries := make([]Snapshot, len(that.entries), len(that.entries)+1)
	copy(entries, that.entries)

	counts := make(map[SnapshotKey]int, len(that.counts)+1)
	maps.Copy(counts, that.counts)

	counts[board.Key(mover)]++

	return History{
		entries: append(entries, Snapshot{Board: board, Mover: mover}),
		counts:  counts,
	}
}

func (that History) Clone() History {
	if len(that.entries) == 0 {
		return History{}
	}

	return History{
		entries: slices.Clone(that.entries),
		counts:  maps.Clone(that.counts),
	}
}

func (that History) MarshalJSON() ([]byte, error) {
	entries := that.entries
	if entries == nil {
		entries = []Snapshot{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	return data, nil
}

func (that *History) UnmarshalJSON(data []byte) error {
	var entries []Snapshot
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	*that = NewHistory(entries...)

	return nil
}
