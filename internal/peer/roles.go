package peer

import (
	"cmp"
	"slices"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
)

const (
	RoleNone      Role = ""
	RolePlayer1   Role = "PLAYER1"
	RolePlayer2   Role = "PLAYER2"
	RoleSpectator Role = "SPECTATOR"
)

// Role is what a participant may do in a room. RoleNone means the participant is not present yet.
type Role string

// Player - the side played by this role, if any.
func (that Role) Player() (entity.Player, bool) {
	switch that {
	case RolePlayer1:
		return entity.Player1, true
	case RolePlayer2:
		return entity.Player2, true
	default:
		return entity.NoPlayer, false
	}
}

func (that Role) IsPlayer() bool {
	_, ok := that.Player()
	return ok
}

// SortParticipants - earliest joiner first, ties broken by session id.
func SortParticipants(members []entity.Participant) []entity.Participant {
	sorted := slices.Clone(members)
	slices.SortFunc(sorted, func(a, b entity.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.SessionID, b.SessionID)
	})

	return sorted
}

// AssignRoles - the first two participants by join order play, everyone else watches.
func AssignRoles(members []entity.Participant) map[string]Role {
	roles := make(map[string]Role, len(members))
	for i, member := range SortParticipants(members) {
		roles[member.SessionID] = roleAt(i)
	}

	return roles
}

func roleAt(index int) Role {
	switch index {
	case 0:
		return RolePlayer1
	case 1:
		return RolePlayer2
	default:
		return RoleSpectator
	}
}

// Roster tracks room membership and the roles derived from it.
// While frozen the two player seats keep their session ids whatever presence says.
// The zero value is an empty, unfrozen roster.
type Roster struct {
	members []entity.Participant
	seats   [2]string
	frozen  bool
}

func (that *Roster) Update(members []entity.Participant) {
	that.members = SortParticipants(members)
}

func (that *Roster) Count() int {
	return len(that.members)
}

// Freeze - pins the current players. No-op if already frozen.
func (that *Roster) Freeze() {
	if that.frozen {
		return
	}

	that.seats = [2]string{}
	for i := 0; i < len(that.seats) && i < len(that.members); i++ {
		that.seats[i] = that.members[i].SessionID
	}

	that.frozen = true
}

func (that *Roster) Unfreeze() {
	that.frozen = false
	that.seats = [2]string{}
}

func (that *Roster) IsFrozen() bool {
	return that.frozen
}

func (that *Roster) RoleOf(sessionID string) Role {
	if sessionID == "" {
		return RoleNone
	}

	if that.frozen {
		for i, seat := range that.seats {
			if seat == sessionID {
				return roleAt(i)
			}
		}
	}

	index := slices.IndexFunc(that.members, func(member entity.Participant) bool {
		return member.SessionID == sessionID
	})
	if index < 0 {
		return RoleNone
	}

	if that.frozen {
		return RoleSpectator
	}

	return roleAt(index)
}
