package app

import (
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PresenceBroadcaster 把 presence / typing 事件推給 registry 中的連線
// 只讀 registry, 不碰任何儲存; 每個 push 各自獨立, 失敗只記 debug
type PresenceBroadcaster struct {
	registry *ConnectionRegistry
	// 保證 online-users 快照送出的順序與 registry 變化順序一致
	fanout sync.Mutex
}

// NewPresenceBroadcaster create PresenceBroadcaster
func NewPresenceBroadcaster(registry *ConnectionRegistry) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry}
}

// BroadcastOnlineUsers 推送 online-users 給所有連線, 回傳成功數
func (b *PresenceBroadcaster) BroadcastOnlineUsers() int {
	b.fanout.Lock()
	defer b.fanout.Unlock()
	return b.broadcastOnlineUsersLocked()
}

func (b *PresenceBroadcaster) broadcastOnlineUsersLocked() int {
	event := domain.OnlineUsersEvent(b.registry.OnlineUserIDs())
	return push(b.registry.AllConnections(), event)
}

// RelayTyping 只推給 toUserID 的連線; 對方離線時什麼都不做
func (b *PresenceBroadcaster) RelayTyping(fromUserID, toUserID string, isStarting bool) int {
	return push(b.registry.ConnectionsFor(toUserID), domain.TypingEvent(fromUserID, isStarting))
}

// AnnounceDisconnected 推送 user-disconnected, 接著推送更新後的 online-users
func (b *PresenceBroadcaster) AnnounceDisconnected(userID string, lastSeen time.Time) {
	b.fanout.Lock()
	defer b.fanout.Unlock()

	push(b.registry.AllConnections(), domain.UserDisconnectedEvent(userID, lastSeen))
	b.broadcastOnlineUsersLocked()
}

// PushTo targeted delivery to every connection of one user
func (b *PresenceBroadcaster) PushTo(userID string, event domain.Event) int {
	return push(b.registry.ConnectionsFor(userID), event)
}

func push(conns []*domain.Connection, event domain.Event) int {
	delivered := 0
	for _, c := range conns {
		if err := c.Send(event); err != nil {
			// 連線剛好斷開或 buffer 滿, 正常流動中會發生
			logger.Log.Debug("push dropped",
				zap.String("type", string(event.Type)),
				zap.String("userID", c.UserID),
				zap.String("connectionID", c.ConnectionID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}
