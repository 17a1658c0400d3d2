package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int           `gorm:"primaryKey" json:"id"`
	Username  string        `gorm:"uniqueIndex;size:80;not null" json:"username"`
	Password  string        `gorm:"size:120;not null" json:"-"`
	IsAdmin   bool          `gorm:"default:false" json:"is_admin"`
	Level     string        `gorm:"size:50;default:Bronze" json:"level"`
	CreatedAt time.Time     `json:"created_at"`
	Chats     []ChatHistory `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

type ChatHistory struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	UserID       int       `gorm:"index;not null" json:"user_id"`
	Model        string    `gorm:"size:50;not null" json:"model"`
	Conversation string    `gorm:"type:text;not null" json:"conversation"`
	CreatedAt    time.Time `json:"created_at"`
	IsFavorite   bool      `gorm:"default:false" json:"is_favorite"`
}

type CustomQA struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Question string `gorm:"uniqueIndex;size:255;not null" json:"question"`
	Answer   string `gorm:"type:text;not null" json:"answer"`
}

// EmojiReaction 的 chat_id 只做标记，不强制外键
type EmojiReaction struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	ChatID       int       `gorm:"index" json:"chat_id"`
	UserID       int       `gorm:"index;not null" json:"user_id"`
	Reaction     string    `gorm:"size:10;not null" json:"reaction"`
	ResponseText string    `gorm:"type:text;not null" json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string          { return "users" }
func (ChatHistory) TableName() string   { return "chat_histories" }
func (CustomQA) TableName() string      { return "custom_qas" }
func (EmojiReaction) TableName() string { return "emoji_reactions" }

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
