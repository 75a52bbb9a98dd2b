package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"

	"github.com/google/uuid"
)

// MessageStore 私訊的持久化: 驗證, 配發 id 與時間, 寫入 repository
type MessageStore struct {
	repo  repository.MessageRepository
	now   func() time.Time
	newID func() string
}

// NewMessageStore create MessageStore
func NewMessageStore(repo repository.MessageRepository) *MessageStore {
	return &MessageStore{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Append validate and persist one message; on error nothing was stored
func (s *MessageStore) Append(ctx context.Context, senderID, receiverID, text, imageURL string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:         s.newID(),
		SenderID:   strings.TrimSpace(senderID),
		ReceiverID: strings.TrimSpace(receiverID),
		Text:       text,
		ImageURL:   strings.TrimSpace(imageURL),
		// mongo 只保存到毫秒, 回傳值要跟 History 讀到的一致
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: insert message: %w", domain.ErrTransientStore, err)
	}
	return msg, nil
}

// History every message between userA and userB in either direction, oldest first
func (s *MessageStore) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("%w: both user ids are required", domain.ErrValidation)
	}

	messages, err := s.repo.FindConversation(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("%w: find conversation: %w", domain.ErrTransientStore, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}
