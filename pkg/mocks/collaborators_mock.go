package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/events"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// MockEventBus is a mock implementation of eventbus.EventBus.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// MockTaskStore is a mock implementation of protocol.TaskStore.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) CreateTask(ctx context.Context, req protocol.CreateTaskRequest) (string, error) {
	args := m.Called(ctx, req)

	return args.String(0), args.Error(1)
}

// MockNotifier is a mock implementation of protocol.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n protocol.Notification) error {
	args := m.Called(ctx, n)

	return args.Error(0)
}

// MockEventRules is a mock implementation of protocol.EventRules.
type MockEventRules struct {
	mock.Mock
}

func (m *MockEventRules) Fire(ctx context.Context, eventName string, payload map[string]any) {
	m.Called(ctx, eventName, payload)
}

// MockHTTPCaller is a mock implementation of protocol.HTTPCaller.
type MockHTTPCaller struct {
	mock.Mock
}

func (m *MockHTTPCaller) Call(ctx context.Context, req protocol.CallRequest) (*protocol.CallResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.CallResponse), args.Error(1)
}
