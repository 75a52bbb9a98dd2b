package repository

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/member/domain"

	"gorm.io/gorm"
)

// MemberRepository definition get Member info
type MemberRepository interface {
	AutoMigrate() error
	CreateMember(ctx context.Context, member *domain.Member) error
	FindByMemberID(ctx context.Context, memberID string) (*domain.Member, error)
	// ListExcept 側欄聯絡人, 排除自己
	ListExcept(ctx context.Context, memberID string) ([]domain.Member, error)
	UpdateLastSeen(ctx context.Context, memberID string, seenAt time.Time) error
	FindLastSeen(ctx context.Context, memberID string) (time.Time, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// AutoMigrate 建立或補齊 members 表, 不會刪除欄位
func (r *memberRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Member{})
}

func (r *memberRepository) CreateMember(ctx context.Context, member *domain.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepository) FindByMemberID(ctx context.Context, memberID string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) ListExcept(ctx context.Context, memberID string) ([]domain.Member, error) {
	members := make([]domain.Member, 0)
	err := r.db.WithContext(ctx).
		Where("member_id <> ?", memberID).
		Order("full_name ASC").
		Find(&members).Error
	return members, err
}

// UpdateLastSeen 只更新 last_seen 欄位
func (r *memberRepository) UpdateLastSeen(ctx context.Context, memberID string, seenAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("member_id = ?", memberID).
		Update("last_seen", seenAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *memberRepository) FindLastSeen(ctx context.Context, memberID string) (time.Time, error) {
	m, err := r.FindByMemberID(ctx, memberID)
	if err != nil {
		return time.Time{}, err
	}
	if m.LastSeen == nil {
		return time.Time{}, domain.ErrNeverSeen
	}
	return *m.LastSeen, nil
}
