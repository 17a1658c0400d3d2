package database

import (
	"fmt"

	"choco-chat/internal/logger"
	"choco-chat/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate 建表并播种默认管理员
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.ChatHistory{},
		&model.CustomQA{},
		&model.EmojiReaction{},
	)
	if err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}

	return seedDefaultAdmin(db)
}

func seedDefaultAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin := model.User{Username: "admin", IsAdmin: true, Level: "Royal"}
	if err := admin.SetPassword("admin"); err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	logger.Info("default admin created", "username", "admin")
	return nil
}
