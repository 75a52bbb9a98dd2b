package app

import (
	"context"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// EnsureIndexes mock ensure indexes
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindConversation mock find conversation
func (m *MockMessageRepository) FindConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockLastSeenStore Mock LastSeenStore
type MockLastSeenStore struct {
	mock.Mock
}

// UpdateLastSeen mock update last seen
func (m *MockLastSeenStore) UpdateLastSeen(ctx context.Context, memberID string, seenAt time.Time) error {
	args := m.Called(ctx, memberID, seenAt)
	return args.Error(0)
}

// FindLastSeen mock find last seen
func (m *MockLastSeenStore) FindLastSeen(ctx context.Context, memberID string) (time.Time, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(time.Time), args.Error(1)
}

// MockPublisher Mock Publisher
type MockPublisher struct {
	mock.Mock
}

// Publish mock publish
func (m *MockPublisher) Publish(channel string, message interface{}) error {
	args := m.Called(channel, message)
	return args.Error(0)
}
