package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"choco-chat/internal/model"

	"gorm.io/gorm"
)

type QnAService struct{ db *gorm.DB }

func NewQnAService(db *gorm.DB) *QnAService { return &QnAService{db: db} }

// Match 按主键顺序线性扫描，命中条件是问题串（忽略大小写）出现在提问里。
// 多条同时命中时取最先的一条，不做排序。
func (s *QnAService) Match(ctx context.Context, prompt string) (*model.CustomQA, error) {
	var qnas []model.CustomQA
	if err := s.db.WithContext(ctx).Order("id").Find(&qnas).Error; err != nil {
		return nil, fmt.Errorf("query qna: %w", err)
	}

	lower := strings.ToLower(prompt)
	for i := range qnas {
		if q := strings.ToLower(qnas[i].Question); q != "" && strings.Contains(lower, q) {
			return &qnas[i], nil
		}
	}
	return nil, nil
}

func (s *QnAService) List(ctx context.Context) ([]model.CustomQA, error) {
	var qnas []model.CustomQA
	if err := s.db.WithContext(ctx).Order("id").Find(&qnas).Error; err != nil {
		return nil, fmt.Errorf("query qna: %w", err)
	}
	return qnas, nil
}

func (s *QnAService) Add(ctx context.Context, question, answer string) (*model.CustomQA, error) {
	question = strings.TrimSpace(question)
	if question == "" || answer == "" {
		return nil, ErrValidation
	}
	q := model.CustomQA{Question: question, Answer: answer}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, fmt.Errorf("insert qna: %w", err)
	}
	return &q, nil
}

func (s *QnAService) Delete(ctx context.Context, id int) error {
	var q model.CustomQA
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("query qna: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&q).Error; err != nil {
		return fmt.Errorf("delete qna: %w", err)
	}
	return nil
}
