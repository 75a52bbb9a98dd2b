package app

import (
	"fmt"
	"sort"
	"sync"

	"realtime_chat_service/internal/chat/domain"
)

// ConnectionRegistry 誰在線上的唯一來源
// userID → connectionID → connection, 集合為空時刪除 key
// typing 記錄 typer → 正在對誰輸入, 與連線共用同一把鎖
type ConnectionRegistry struct {
	mu     sync.RWMutex
	conns  map[string]map[string]*domain.Connection
	owners map[string]string
	typing map[string]map[string]struct{}
}

// NewConnectionRegistry create an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:  make(map[string]map[string]*domain.Connection),
		owners: make(map[string]string),
		typing: make(map[string]map[string]struct{}),
	}
}

// Add 登記連線, 回傳是否為該 user 的第一條連線 (offline → online)
// connection id 全域唯一, 已登記的 id 一律拒絕, 不覆蓋也不搬移
func (r *ConnectionRegistry) Add(conn *domain.Connection) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[conn.ConnectionID]; ok {
		return false, fmt.Errorf("%w: connection %s already registered to %s", domain.ErrValidation, conn.ConnectionID, owner)
	}

	set, ok := r.conns[conn.UserID]
	if !ok {
		set = make(map[string]*domain.Connection)
		r.conns[conn.UserID] = set
	}
	set[conn.ConnectionID] = conn
	r.owners[conn.ConnectionID] = conn.UserID
	return !ok, nil
}

// Remove 移除一條連線, 回傳 user 是否因此完全離線; 連線不存在時為 no-op
func (r *ConnectionRegistry) Remove(userID, connectionID string) bool {
	_, offline, _ := r.Detach(userID, connectionID)
	return offline
}

// Detach 同 Remove, 另外回傳被移除的連線與離線時清掉的 typing 對象
func (r *ConnectionRegistry) Detach(userID, connectionID string) (*domain.Connection, bool, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detachLocked(userID, connectionID)
}

func (r *ConnectionRegistry) detachLocked(userID, connectionID string) (*domain.Connection, bool, []string) {
	set, ok := r.conns[userID]
	if !ok {
		return nil, false, nil
	}
	conn, ok := set[connectionID]
	if !ok {
		return nil, false, nil
	}
	delete(set, connectionID)
	delete(r.owners, connectionID)
	if len(set) > 0 {
		return conn, false, nil
	}

	delete(r.conns, userID)
	targets := sortedKeys(r.typing[userID])
	delete(r.typing, userID)
	return conn, true, targets
}

// ConnectionsFor snapshot of one user's connections, empty when offline
func (r *ConnectionRegistry) ConnectionsFor(userID string) []*domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	out := make([]*domain.Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// AllConnections snapshot of every registered connection
func (r *ConnectionRegistry) AllConnections() []*domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Connection, 0, len(r.owners))
	for _, set := range r.conns {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

// OnlineUserIDs sorted ids of users with at least one connection
func (r *ConnectionRegistry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsOnline user has at least one connection
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// ConnectionCount total live connections
func (r *ConnectionRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// StartTyping 記錄 from 正在對 to 輸入; from 不在線上時不記錄
func (r *ConnectionRegistry) StartTyping(from, to string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, online := r.conns[from]; !online {
		return false
	}
	targets, ok := r.typing[from]
	if !ok {
		targets = make(map[string]struct{})
		r.typing[from] = targets
	}
	targets[to] = struct{}{}
	return true
}

// StopTyping 清除 from → to, 回傳先前是否存在
func (r *ConnectionRegistry) StopTyping(from, to string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, ok := r.typing[from]
	if !ok {
		return false
	}
	if _, ok := targets[to]; !ok {
		return false
	}
	delete(targets, to)
	if len(targets) == 0 {
		delete(r.typing, from)
	}
	return true
}

// TypingTargets sorted users from is currently typing to
func (r *ConnectionRegistry) TypingTargets(from string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.typing[from])
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
