package handler

import (
	"errors"
	"net/http"
	"strconv"

	"choco-chat/internal/logger"
	"choco-chat/internal/model"
	"choco-chat/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	dispatcher *service.Dispatcher
	history    *service.HistoryService
	auth       *service.AuthService
}

func NewChatHandler(dispatcher *service.Dispatcher, history *service.HistoryService, auth *service.AuthService) *ChatHandler {
	return &ChatHandler{dispatcher: dispatcher, history: history, auth: auth}
}

// GET /chat  返回会话列表和用户等级，标题截断到50个字符
func (h *ChatHandler) ChatPage(c *gin.Context) {
	uid := c.GetInt("user_id")

	items, err := h.history.List(c.Request.Context(), uid)
	if err != nil {
		logger.Error("chat.list failed", "uid", uid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	level := ""
	if u, err := h.auth.GetUser(c.Request.Context(), uid); err == nil {
		level = u.Level
	}
	c.JSON(http.StatusOK, gin.H{"history": items, "user_level": level})
}

// POST /api/chat  body: {prompt, model, version, history}
func (h *ChatHandler) APIChat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Model == "" {
		req.Model = string(service.ModelChoco)
	}

	uid := c.GetInt("user_id")
	ctx := c.Request.Context()

	text, label, err := h.dispatcher.Dispatch(ctx, req.Prompt, service.ModelChoice(req.Model), req.Version)
	switch {
	case errors.Is(err, service.ErrInvalidModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model"})
		return
	case errors.Is(err, service.ErrAIFailure):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The AI ran into a problem. Make sure your API key is valid."})
		return
	case err != nil:
		logger.Error("chat.dispatch failed", "uid", uid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The AI ran into a problem. Make sure your API key is valid."})
		return
	}

	// 回答已经产生，落库失败只记日志，不回滚也不报错
	chatID, err := h.history.Save(ctx, uid, label, req.History, req.Prompt, text)
	if err != nil {
		logger.Error("chat.save failed", "uid", uid, "err", err)
	}
	logger.Info("chat.dispatch", "uid", uid, "model", label, "chat_id", chatID)

	c.JSON(http.StatusOK, model.ChatResponse{Response: text, ChatID: chatID, ModelUsed: label})
}

// GET /api/chat/history/:id
func (h *ChatHandler) History(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	uid := c.GetInt("user_id")

	turns, err := h.history.Get(c.Request.Context(), uid, chatID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		logger.Error("chat.history failed", "uid", uid, "chat_id", chatID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	c.JSON(http.StatusOK, turns)
}

// POST /api/chat/delete/:id
func (h *ChatHandler) Delete(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	uid := c.GetInt("user_id")

	err = h.history.Delete(c.Request.Context(), uid, chatID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		logger.Error("chat.delete failed", "uid", uid, "chat_id", chatID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chat"})
		return
	}
	logger.Info("chat.delete", "uid", uid, "chat_id", chatID)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// POST /api/chat/favorite/:id
func (h *ChatHandler) Favorite(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	uid := c.GetInt("user_id")

	fav, err := h.history.ToggleFavorite(c.Request.Context(), uid, chatID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		logger.Error("chat.favorite failed", "uid", uid, "chat_id", chatID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "is_favorite": fav})
}

// POST /api/feedback/emoji  body: {chat_id, emoji, response_text}
func (h *ChatHandler) EmojiFeedback(c *gin.Context) {
	var req model.EmojiFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	uid := c.GetInt("user_id")

	if err := h.history.SaveReaction(c.Request.Context(), uid, req.ChatID, req.Emoji, req.ResponseText); err != nil {
		logger.Error("feedback.save failed", "uid", uid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
		return
	}
	logger.Info("feedback.emoji", "uid", uid, "chat_id", req.ChatID, "emoji", req.Emoji)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
