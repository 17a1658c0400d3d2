package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"choco-chat/internal/model"

	"gorm.io/gorm"
)

type HistoryService struct{ db *gorm.DB }

func NewHistoryService(db *gorm.DB) *HistoryService { return &HistoryService{db: db} }

// Save 每次调用都插入一条新记录，延续对话也不更新旧行
func (s *HistoryService) Save(ctx context.Context, userID int, modelLabel string, prior []model.Turn, prompt, response string) (int, error) {
	turns := append(append([]model.Turn{}, prior...),
		model.Turn{Role: "user", Content: prompt},
		model.Turn{Role: "assistant", Content: response},
	)
	data, err := json.Marshal(turns)
	if err != nil {
		return 0, fmt.Errorf("marshal conversation: %w", err)
	}

	rec := model.ChatHistory{UserID: userID, Model: modelLabel, Conversation: string(data)}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return rec.ID, nil
}

func (s *HistoryService) List(ctx context.Context, userID int) ([]model.ChatListItem, error) {
	var recs []model.ChatHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	items := make([]model.ChatListItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, model.ChatListItem{ID: r.ID, Title: title(r.Conversation), IsFavorite: r.IsFavorite})
	}
	return items, nil
}

func (s *HistoryService) Get(ctx context.Context, userID, chatID int) ([]model.Turn, error) {
	rec, err := s.owned(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	var turns []model.Turn
	if err := json.Unmarshal([]byte(rec.Conversation), &turns); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return turns, nil
}

func (s *HistoryService) Delete(ctx context.Context, userID, chatID int) error {
	rec, err := s.owned(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(rec).Error; err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

func (s *HistoryService) ToggleFavorite(ctx context.Context, userID, chatID int) (bool, error) {
	rec, err := s.owned(ctx, userID, chatID)
	if err != nil {
		return false, err
	}
	if err := s.db.WithContext(ctx).Model(rec).Update("is_favorite", !rec.IsFavorite).Error; err != nil {
		return false, fmt.Errorf("update favorite: %w", err)
	}
	return !rec.IsFavorite, nil
}

func (s *HistoryService) SaveReaction(ctx context.Context, userID, chatID int, emoji, responseText string) error {
	if emoji == "" {
		return ErrValidation
	}
	r := model.EmojiReaction{ChatID: chatID, UserID: userID, Reaction: emoji, ResponseText: responseText}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

// owned 查不到或属于别人都返回 ErrNotFound，不泄露内容
func (s *HistoryService) owned(ctx context.Context, userID, chatID int) (*model.ChatHistory, error) {
	var rec model.ChatHistory
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query history: %w", err)
	}
	return &rec, nil
}

func title(conversation string) string {
	var turns []model.Turn
	if json.Unmarshal([]byte(conversation), &turns) != nil || len(turns) == 0 {
		return "Conversation"
	}
	runes := []rune(turns[0].Content)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return turns[0].Content
}
