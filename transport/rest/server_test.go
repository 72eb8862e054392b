package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
)

type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) List(ctx context.Context, room string) ([]entity.Participant, error) {
	args := m.Called(ctx, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Participant), args.Error(1)
}

// teapotSessions answers every websocket request itself and has nothing to wait for.
type teapotSessions struct{}

func (teapotSessions) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func (teapotSessions) Wait(context.Context) error {
	return nil
}

func newTestServer(presence presenceLister) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(logger, presence, teapotSessions{})
}

func serve(server *Server, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(method, target, nil))

	return recorder
}

func TestServer_Ping(t *testing.T) {
	recorder := serve(newTestServer(new(MockPresence)), http.MethodGet, "/ping")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "pong", recorder.Body.String())
}

func TestServer_WebSocketRoute(t *testing.T) {
	recorder := serve(newTestServer(new(MockPresence)), http.MethodGet, "/ws?mode=local")

	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func TestServer_CreateRoom(t *testing.T) {
	recorder := serve(newTestServer(new(MockPresence)), http.MethodPost, "/rooms")

	require.Equal(t, http.StatusCreated, recorder.Code)

	var response RoomResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

	_, err := uuid.Parse(response.Room)
	assert.NoError(t, err)
}

func TestServer_RoomMembers(t *testing.T) {
	room := uuid.NewString()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Lists members in join order with roles", func(t *testing.T) {
		// Given: three participants returned out of order
		presence := new(MockPresence)
		presence.On("List", mock.Anything, room).Return([]entity.Participant{
			{SessionID: "c", JoinedAt: base.Add(2 * time.Second)},
			{SessionID: "a", JoinedAt: base},
			{SessionID: "b", JoinedAt: base.Add(time.Second)},
		}, nil)

		// When: listing the room
		recorder := serve(newTestServer(presence), http.MethodGet, "/rooms/"+room+"/members")

		// Then: the earliest two play and the third watches
		require.Equal(t, http.StatusOK, recorder.Code)

		var response MembersResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

		assert.Equal(t, room, response.Room)
		require.Len(t, response.Members, 3)
		assert.Equal(t, Member{SessionID: "a", JoinedAt: base, Role: peer.RolePlayer1}, response.Members[0])
		assert.Equal(t, Member{SessionID: "b", JoinedAt: base.Add(time.Second), Role: peer.RolePlayer2}, response.Members[1])
		assert.Equal(t, peer.RoleSpectator, response.Members[2].Role)

		presence.AssertExpectations(t)
	})

	t.Run("Empty room", func(t *testing.T) {
		presence := new(MockPresence)
		presence.On("List", mock.Anything, room).Return(nil, nil)

		recorder := serve(newTestServer(presence), http.MethodGet, "/rooms/"+room+"/members")

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"room":"`+room+`","members":[]}`, recorder.Body.String())
	})

	t.Run("Malformed room id", func(t *testing.T) {
		presence := new(MockPresence)

		recorder := serve(newTestServer(presence), http.MethodGet, "/rooms/not-a-room/members")

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		presence.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("Presence failure", func(t *testing.T) {
		presence := new(MockPresence)
		presence.On("List", mock.Anything, room).Return(nil, errors.New("connection refused"))

		recorder := serve(newTestServer(presence), http.MethodGet, "/rooms/"+room+"/members")

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}
