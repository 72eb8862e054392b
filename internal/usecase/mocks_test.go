package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/rota-backend/internal/entity"
	"github.com/rocketscienceinc/rota-backend/internal/peer"
	"github.com/rocketscienceinc/rota-backend/internal/service"
)

// --- relay ---

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRelay) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRelay) Send(ctx context.Context, action entity.Action) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockRelay) Inbound() <-chan peer.Inbound {
	args := m.Called()
	return args.Get(0).(chan peer.Inbound)
}

func (m *MockRelay) Changes() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(chan struct{})
}

func (m *MockRelay) Status() peer.Status {
	args := m.Called()
	return args.Get(0).(peer.Status)
}

func (m *MockRelay) Role() peer.Role {
	args := m.Called()
	return args.Get(0).(peer.Role)
}

func (m *MockRelay) OnlineCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockRelay) Freeze() {
	m.Called()
}

func (m *MockRelay) Unfreeze() {
	m.Called()
}

// --- searcher ---

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Submit(request service.SearchRequest) {
	m.Called(request)
}

func (m *MockSearcher) Results() <-chan service.SearchResponse {
	args := m.Called()
	return args.Get(0).(chan service.SearchResponse)
}
