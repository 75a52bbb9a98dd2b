package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"realtime_chat_service/internal/member/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

func setupMemberRepo(t *testing.T) MemberRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "members.db")), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)

	repo := NewMemberRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func seedMembers(t *testing.T, repo MemberRepository, members ...domain.Member) {
	t.Helper()
	for i := range members {
		require.NoError(t, repo.CreateMember(context.Background(), &members[i]))
	}
}

func TestMemberRepository_LastSeenRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupMemberRepo(t)
	seedMembers(t, repo, domain.Member{MemberID: "b", Email: "b@example.com", FullName: "Bob"})

	_, err := repo.FindLastSeen(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNeverSeen)

	seenAt := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastSeen(ctx, "b", seenAt))

	got, err := repo.FindLastSeen(ctx, "b")
	require.NoError(t, err)
	assert.True(t, seenAt.Equal(got), "want %v got %v", seenAt, got)
}

func TestMemberRepository_UnknownMember(t *testing.T) {
	ctx := context.Background()
	repo := setupMemberRepo(t)

	assert.ErrorIs(t, repo.UpdateLastSeen(ctx, "ghost", time.Now()), domain.ErrMemberNotFound)

	_, err := repo.FindLastSeen(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	_, err = repo.FindByMemberID(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestMemberRepository_ListExcept(t *testing.T) {
	ctx := context.Background()
	repo := setupMemberRepo(t)
	seedMembers(t, repo,
		domain.Member{MemberID: "a", Email: "a@example.com", FullName: "Alice"},
		domain.Member{MemberID: "c", Email: "c@example.com", FullName: "Carol"},
		domain.Member{MemberID: "b", Email: "b@example.com", FullName: "Bob"},
	)

	members, err := repo.ListExcept(ctx, "a")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Bob", members[0].FullName)
	assert.Equal(t, "Carol", members[1].FullName)
}
