package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/usecase"
)

type presenceLister interface {
	List(ctx context.Context, room string) ([]entity.Participant, error)
}

type RoomResponse struct {
	Room string `json:"room"`
}

type Member struct {
	SessionID string    `json:"sessionId"`
	JoinedAt  time.Time `json:"joinedAt"`
	Role      peer.Role `json:"role"`
}

type MembersResponse struct {
	Room    string   `json:"room"`
	Members []Member `json:"members"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type roomHandlers struct {
	logger   *slog.Logger
	presence presenceLister
}

func newRoomHandlers(logger *slog.Logger, presence presenceLister) *roomHandlers {
	return &roomHandlers{
		logger:   logger.With("component", "rooms"),
		presence: presence,
	}
}

// CreateRoom - hands out a fresh room id. Rooms exist once somebody joins them.
func (that *roomHandlers) CreateRoom(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, RoomResponse{Room: uuid.NewString()})
}

// RoomMembers - who is in the room, in join order, with the role each one gets.
func (that *roomHandlers) RoomMembers(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "RoomMembers")

	room := chi.URLParam(r, "room")
	if err := usecase.ValidateRoom(room); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	participants, err := that.presence.List(r.Context(), room)
	if err != nil {
		log.Error("failed to list room members", "room", room, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list room members"})
		return
	}

	roles := peer.AssignRoles(participants)

	members := make([]Member, 0, len(participants))
	for _, participant := range peer.SortParticipants(participants) {
		members = append(members, Member{
			SessionID: participant.SessionID,
			JoinedAt:  participant.JoinedAt,
			Role:      roles[participant.SessionID],
		})
	}

	writeJSON(w, http.StatusOK, MembersResponse{Room: room, Members: members})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
