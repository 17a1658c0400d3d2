package model

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
	Version string `json:"version"`
	History []Turn `json:"history"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	ChatID    int    `json:"chat_id"`
	ModelUsed string `json:"model_used"`
}

type ChatListItem struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	IsFavorite bool   `json:"is_favorite"`
}

type EmojiFeedbackRequest struct {
	ChatID       int    `json:"chat_id"`
	Emoji        string `json:"emoji" binding:"required"`
	ResponseText string `json:"response_text"`
}

type AdminDashboard struct {
	TotalUsers     int64           `json:"total_users"`
	TotalChats     int64           `json:"total_chats"`
	QnAs           []CustomQA      `json:"qnas"`
	EmojiReactions []EmojiReaction `json:"emoji_reactions"`
}
