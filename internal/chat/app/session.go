package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	memberdomain "realtime_chat_service/internal/member/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// LastSeenStore the user directory fields the coordinator writes and reads
type LastSeenStore interface {
	UpdateLastSeen(ctx context.Context, memberID string, seenAt time.Time) error
	FindLastSeen(ctx context.Context, memberID string) (time.Time, error)
}

// Publisher mirrors presence changes to other processes
type Publisher interface {
	Publish(channel string, message interface{}) error
}

// SessionCoordinator 連線生命週期 (attach → active → detach) 的入口
// websocket 與 REST 都透過它操作 registry, broadcaster 與 message store
type SessionCoordinator struct {
	registry    *ConnectionRegistry
	broadcaster *PresenceBroadcaster
	messages    *MessageStore
	lastSeen    LastSeenStore

	mirror        Publisher
	mirrorChannel string

	users           userLocks
	now             func() time.Time
	lastSeenTimeout time.Duration
}

// DefaultLastSeenTimeout upper bound of the last seen write while the user lock is held
const DefaultLastSeenTimeout = 5 * time.Second

// CoordinatorOption configure SessionCoordinator
type CoordinatorOption func(*SessionCoordinator)

// WithPresenceMirror publish online / offline changes to channel
func WithPresenceMirror(p Publisher, channel string) CoordinatorOption {
	return func(c *SessionCoordinator) {
		c.mirror = p
		c.mirrorChannel = channel
	}
}

// WithClock override time source
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *SessionCoordinator) {
		c.now = now
	}
}

// WithLastSeenTimeout bound the last seen write on disconnect
func WithLastSeenTimeout(d time.Duration) CoordinatorOption {
	return func(c *SessionCoordinator) {
		if d > 0 {
			c.lastSeenTimeout = d
		}
	}
}

// NewSessionCoordinator create SessionCoordinator
func NewSessionCoordinator(
	registry *ConnectionRegistry,
	broadcaster *PresenceBroadcaster,
	messages *MessageStore,
	lastSeen LastSeenStore,
	opts ...CoordinatorOption,
) *SessionCoordinator {
	c := &SessionCoordinator{
		registry:    registry,
		broadcaster: broadcaster,
		messages:    messages,
		lastSeen:    lastSeen,
		now:         time.Now,

		lastSeenTimeout: DefaultLastSeenTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect 登記連線並廣播 online-users. Connecting → Active
func (c *SessionCoordinator) Connect(conn *domain.Connection) error {
	if strings.TrimSpace(conn.UserID) == "" || conn.ConnectionID == "" {
		return fmt.Errorf("%w: connection needs a user id and a connection id", domain.ErrValidation)
	}
	if conn.State() != domain.StateConnecting {
		return fmt.Errorf("%w: connection %s is %s", domain.ErrValidation, conn.ConnectionID, conn.State())
	}

	// 同一 user 的 connect / disconnect 依序處理, 避免離線公告蓋掉重連
	unlock := c.users.lock(conn.UserID)
	defer unlock()

	first, err := c.registry.Add(conn)
	if err != nil {
		return err
	}
	conn.Transition(domain.StateConnecting, domain.StateActive)
	c.broadcaster.BroadcastOnlineUsers()

	logger.Log.Info("connection attached",
		zap.String("userID", conn.UserID),
		zap.String("connectionID", conn.ConnectionID),
		zap.Bool("firstConnection", first),
		zap.Int("connections", c.registry.ConnectionCount()),
	)
	if first {
		c.publishPresence(domain.OnlineUsersEvent(c.registry.OnlineUserIDs()))
	}
	return nil
}

// Disconnect 移除連線; user 完全離線時寫入 last seen 並公告. Active → Disconnected
// 連線不存在 (重複的斷線訊號) 為 no-op
func (c *SessionCoordinator) Disconnect(ctx context.Context, userID, connectionID string) error {
	unlock := c.users.lock(userID)
	defer unlock()

	conn, offline, typingTargets := c.registry.Detach(userID, connectionID)
	if conn == nil {
		return nil
	}
	conn.Transition(domain.StateActive, domain.StateDisconnected)

	if !offline {
		logger.Log.Info("connection detached, user still online",
			zap.String("userID", userID),
			zap.String("connectionID", connectionID),
		)
		return nil
	}

	// 離線時還在輸入中的對象要收到 stop-typing
	for _, to := range typingTargets {
		c.broadcaster.RelayTyping(userID, to, false)
	}

	seenAt := c.now().UTC().Truncate(time.Millisecond)
	var writeErr error
	// 持有 user lock, 寫入不可無限等待, 否則同一 user 的重連會卡住
	writeCtx, cancel := context.WithTimeout(ctx, c.lastSeenTimeout)
	err := c.lastSeen.UpdateLastSeen(writeCtx, userID, seenAt)
	cancel()
	if err != nil {
		// presence 仍要公告, 錯誤交給呼叫端記錄
		writeErr = errprocess.Wrap(err, "record last seen", zap.String("userID", userID))
	}
	c.broadcaster.AnnounceDisconnected(userID, seenAt)
	c.publishPresence(domain.UserDisconnectedEvent(userID, seenAt))

	logger.Log.Info("user offline",
		zap.String("userID", userID),
		zap.String("connectionID", connectionID),
		zap.Time("lastSeen", seenAt),
	)
	return writeErr
}

// SendMessage 寫入後推送 new-message 給收件人的所有連線; 寄件人由回傳值取得
func (c *SessionCoordinator) SendMessage(ctx context.Context, senderID, receiverID, text, imageURL string) (*domain.Message, error) {
	msg, err := c.messages.Append(ctx, senderID, receiverID, text, imageURL)
	if err != nil {
		return nil, err
	}

	delivered := c.broadcaster.PushTo(msg.ReceiverID, domain.NewMessageEvent(msg))
	logger.Log.Debug("message sent",
		zap.String("messageID", msg.ID),
		zap.String("senderID", msg.SenderID),
		zap.String("receiverID", msg.ReceiverID),
		zap.Int("livePushes", delivered),
	)
	return msg, nil
}

// SendTyping fire-and-forget typing relay
func (c *SessionCoordinator) SendTyping(senderID, receiverID string, isStarting bool) {
	if senderID == "" || receiverID == "" {
		return
	}
	if isStarting {
		c.registry.StartTyping(senderID, receiverID)
	} else {
		c.registry.StopTyping(senderID, receiverID)
	}
	c.broadcaster.RelayTyping(senderID, receiverID, isStarting)
}

// GetHistory conversation between userA and userB, oldest first
func (c *SessionCoordinator) GetHistory(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	return c.messages.History(ctx, userA, userB)
}

// GetLastSeen last time userID's last connection closed
func (c *SessionCoordinator) GetLastSeen(ctx context.Context, userID string) (time.Time, error) {
	seenAt, err := c.lastSeen.FindLastSeen(ctx, userID)
	switch {
	case err == nil:
		return seenAt, nil
	case errors.Is(err, memberdomain.ErrMemberNotFound), errors.Is(err, memberdomain.ErrNeverSeen):
		return time.Time{}, fmt.Errorf("%w: last seen of %s: %w", domain.ErrNotFound, userID, err)
	default:
		return time.Time{}, fmt.Errorf("%w: last seen of %s: %w", domain.ErrTransientStore, userID, err)
	}
}

// OnlineUserIDs derived view of the registry
func (c *SessionCoordinator) OnlineUserIDs() []string {
	return c.registry.OnlineUserIDs()
}

// IsOnline user has a live connection
func (c *SessionCoordinator) IsOnline(userID string) bool {
	return c.registry.IsOnline(userID)
}

func (c *SessionCoordinator) publishPresence(event domain.Event) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Publish(c.mirrorChannel, event); err != nil {
		logger.Log.Warn("presence mirror publish", zap.String("channel", c.mirrorChannel), zap.Error(err))
	}
}

// userLocks per-user mutex, entries are dropped when nobody holds them
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
