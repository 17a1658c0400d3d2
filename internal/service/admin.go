package service

import (
	"context"
	"errors"
	"fmt"

	"choco-chat/internal/model"

	"gorm.io/gorm"
)

// ErrSelfRevoke 管理员不能撤销自己的权限
var ErrSelfRevoke = errors.New("cannot revoke your own admin status")

type AdminService struct{ db *gorm.DB }

func NewAdminService(db *gorm.DB) *AdminService { return &AdminService{db: db} }

func (s *AdminService) Dashboard(ctx context.Context, qna *QnAService) (*model.AdminDashboard, error) {
	var d model.AdminDashboard
	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&d.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.ChatHistory{}).Count(&d.TotalChats).Error; err != nil {
		return nil, fmt.Errorf("count chats: %w", err)
	}
	qnas, err := qna.List(ctx)
	if err != nil {
		return nil, err
	}
	d.QnAs = qnas
	err = s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(20).
		Find(&d.EmojiReactions).Error
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	return &d, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return users, nil
}

// SetLevel 等级是自由文本，不做校验
func (s *AdminService) SetLevel(ctx context.Context, userID int, level string) (*model.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("level", level).Error; err != nil {
		return nil, fmt.Errorf("update level: %w", err)
	}
	u.Level = level
	return u, nil
}

func (s *AdminService) GrantAdmin(ctx context.Context, userID int) (*model.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("is_admin", true).Error; err != nil {
		return nil, fmt.Errorf("grant admin: %w", err)
	}
	u.IsAdmin = true
	return u, nil
}

func (s *AdminService) RevokeAdmin(ctx context.Context, actorID, userID int) (*model.User, error) {
	if actorID == userID {
		return nil, ErrSelfRevoke
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("is_admin", false).Error; err != nil {
		return nil, fmt.Errorf("revoke admin: %w", err)
	}
	u.IsAdmin = false
	return u, nil
}

func (s *AdminService) user(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
