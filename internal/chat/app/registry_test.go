package app

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(userID, connectionID string) *domain.Connection {
	return domain.NewConnection(userID, connectionID, &recordingSender{})
}

func mustAdd(t *testing.T, r *ConnectionRegistry, conn *domain.Connection) bool {
	t.Helper()
	first, err := r.Add(conn)
	require.NoError(t, err)
	return first
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewConnectionRegistry()

	assert.True(t, mustAdd(t, r, newConn("alice", "c1")), "first connection brings alice online")
	assert.False(t, mustAdd(t, r, newConn("alice", "c2")), "second device")
	assert.Equal(t, []string{"alice"}, r.OnlineUserIDs())
	assert.Len(t, r.ConnectionsFor("alice"), 2)

	assert.False(t, r.Remove("alice", "c1"), "alice still has c2")
	assert.True(t, r.IsOnline("alice"))
	assert.True(t, r.Remove("alice", "c2"))
	assert.False(t, r.IsOnline("alice"))
	assert.Empty(t, r.OnlineUserIDs())
	assert.Empty(t, r.ConnectionsFor("alice"))
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewConnectionRegistry()
	r.Add(newConn("alice", "c1"))

	assert.True(t, r.Remove("alice", "c1"))
	assert.False(t, r.Remove("alice", "c1"))
	assert.False(t, r.Remove("bob", "c9"))
	assert.Equal(t, 0, r.ConnectionCount())
}

func TestRegistry_RemoveWrongUserIsNoop(t *testing.T) {
	r := NewConnectionRegistry()
	r.Add(newConn("alice", "c1"))

	assert.False(t, r.Remove("bob", "c1"))
	assert.True(t, r.IsOnline("alice"))
}

func TestRegistry_DuplicateIDRejected(t *testing.T) {
	r := NewConnectionRegistry()
	original := &recordingSender{}
	mustAdd(t, r, domain.NewConnection("alice", "c1", original))

	// 同 user 重複登記不可換掉原本的 sender
	first, err := r.Add(newConn("alice", "c1"))
	assert.False(t, first)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	require.Len(t, r.ConnectionsFor("alice"), 1)
	assert.Same(t, original, r.ConnectionsFor("alice")[0].Sender)

	// 別的 user 拿同一個 id 也不能把 alice 擠下線
	first, err = r.Add(newConn("bob", "c1"))
	assert.False(t, first)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, []string{"alice"}, r.OnlineUserIDs())
	assert.Equal(t, 1, r.ConnectionCount())

	assert.True(t, r.Remove("alice", "c1"))
}

func TestRegistry_OnlineUserIDsSorted(t *testing.T) {
	r := NewConnectionRegistry()
	for _, u := range []string{"carol", "alice", "bob"} {
		r.Add(newConn(u, "conn-"+u))
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, r.OnlineUserIDs())
	assert.Len(t, r.AllConnections(), 3)
}

func TestRegistry_Typing(t *testing.T) {
	r := NewConnectionRegistry()

	assert.False(t, r.StartTyping("alice", "bob"), "offline typer is not recorded")

	r.Add(newConn("alice", "c1"))
	r.Add(newConn("alice", "c2"))
	assert.True(t, r.StartTyping("alice", "carol"))
	assert.True(t, r.StartTyping("alice", "bob"))
	assert.Equal(t, []string{"bob", "carol"}, r.TypingTargets("alice"))

	assert.True(t, r.StopTyping("alice", "carol"))
	assert.False(t, r.StopTyping("alice", "carol"))
	assert.Equal(t, []string{"bob"}, r.TypingTargets("alice"))

	conn, offline, targets := r.Detach("alice", "c1")
	require.NotNil(t, conn)
	assert.False(t, offline)
	assert.Nil(t, targets, "typing survives while another device is open")

	conn, offline, targets = r.Detach("alice", "c2")
	require.NotNil(t, conn)
	assert.True(t, offline)
	assert.Equal(t, []string{"bob"}, targets)
	assert.Empty(t, r.TypingTargets("alice"))
}

// 隨機操作序列與簡單模型比對: key 存在 ⇔ 集合非空, offline 只回報一次
func TestRegistry_RandomOpsMatchModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	users := []string{"u1", "u2", "u3", "u4"}

	for round := 0; round < 50; round++ {
		r := NewConnectionRegistry()
		model := map[string]map[string]bool{}

		for step := 0; step < 200; step++ {
			u := users[rng.Intn(len(users))]
			c := fmt.Sprintf("%s-c%d", u, rng.Intn(4))

			if rng.Intn(2) == 0 {
				wasOffline := len(model[u]) == 0
				_, existed := model[u][c]
				first, err := r.Add(newConn(u, c))
				if existed {
					assert.Error(t, err, "duplicate add %s/%s", u, c)
				} else {
					assert.NoError(t, err, "add %s/%s", u, c)
				}
				if model[u] == nil {
					model[u] = map[string]bool{}
				}
				model[u][c] = true
				assert.Equal(t, wasOffline && !existed, first, "add %s/%s", u, c)
			} else {
				_, existed := model[u][c]
				offline := r.Remove(u, c)
				if existed {
					delete(model[u], c)
				}
				expected := existed && len(model[u]) == 0
				if len(model[u]) == 0 {
					delete(model, u)
				}
				assert.Equal(t, expected, offline, "remove %s/%s", u, c)
			}

			var online []string
			total := 0
			for u, set := range model {
				online = append(online, u)
				total += len(set)
			}
			sort.Strings(online)
			if online == nil {
				online = []string{}
			}
			require.Equal(t, online, r.OnlineUserIDs())
			require.Equal(t, total, r.ConnectionCount())
		}
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewConnectionRegistry()
	const workers = 16

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			u := fmt.Sprintf("user-%d", w%4)
			for i := 0; i < 100; i++ {
				c := fmt.Sprintf("w%d-c%d", w, i)
				r.Add(newConn(u, c))
				r.StartTyping(u, "peer")
				_ = r.OnlineUserIDs()
				_ = r.AllConnections()
				r.Remove(u, c)
			}
		}(w)
	}
	wg.Wait()

	assert.Empty(t, r.OnlineUserIDs())
	assert.Equal(t, 0, r.ConnectionCount())
	for w := 0; w < 4; w++ {
		assert.Empty(t, r.TypingTargets(fmt.Sprintf("user-%d", w)))
	}
}
