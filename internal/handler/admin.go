package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"choco-chat/internal/logger"
	"choco-chat/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin *service.AdminService
	qna   *service.QnAService
}

func NewAdminHandler(admin *service.AdminService, qna *service.QnAService) *AdminHandler {
	return &AdminHandler{admin: admin, qna: qna}
}

// GET /admin  聚合面板：用户数、会话数、全部问答、最近20条表情反馈
func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.admin.Dashboard(c.Request.Context(), h.qna)
	if err != nil {
		logger.Error("admin.dashboard failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /admin/users
func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		logger.Error("admin.users failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// POST /admin/user/level/:id  form: level
func (h *AdminHandler) SetLevel(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		redirectNotice(c, "/admin/users", "Invalid user id.")
		return
	}
	level := c.PostForm("level")

	u, err := h.admin.SetLevel(c.Request.Context(), userID, level)
	if errors.Is(err, service.ErrNotFound) {
		redirectNotice(c, "/admin/users", "User not found.")
		return
	}
	if err != nil {
		logger.Error("admin.level failed", "user_id", userID, "err", err)
		redirectNotice(c, "/admin/users", "Failed to update level.")
		return
	}
	logger.Info("admin.level", "user_id", userID, "level", level)
	redirectNotice(c, "/admin/users", fmt.Sprintf("Level for %s changed to %s.", u.Username, u.Level))
}

// POST /admin/user/grant/:id
func (h *AdminHandler) GrantAdmin(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		redirectNotice(c, "/admin/users", "Invalid user id.")
		return
	}

	u, err := h.admin.GrantAdmin(c.Request.Context(), userID)
	if errors.Is(err, service.ErrNotFound) {
		redirectNotice(c, "/admin/users", "User not found.")
		return
	}
	if err != nil {
		logger.Error("admin.grant failed", "user_id", userID, "err", err)
		redirectNotice(c, "/admin/users", "Failed to grant admin.")
		return
	}
	logger.Info("admin.grant", "user_id", userID)
	redirectNotice(c, "/admin/users", fmt.Sprintf("%s is now an admin.", u.Username))
}

// POST /admin/user/revoke/:id  自己撤自己是 no-op
func (h *AdminHandler) RevokeAdmin(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		redirectNotice(c, "/admin/users", "Invalid user id.")
		return
	}
	actorID := c.GetInt("user_id")

	u, err := h.admin.RevokeAdmin(c.Request.Context(), actorID, userID)
	switch {
	case errors.Is(err, service.ErrSelfRevoke):
		redirectNotice(c, "/admin/users", "You cannot revoke your own admin status.")
	case errors.Is(err, service.ErrNotFound):
		redirectNotice(c, "/admin/users", "User not found.")
	case err != nil:
		logger.Error("admin.revoke failed", "user_id", userID, "err", err)
		redirectNotice(c, "/admin/users", "Failed to revoke admin.")
	default:
		logger.Info("admin.revoke", "user_id", userID, "actor_id", actorID)
		redirectNotice(c, "/admin/users", fmt.Sprintf("Admin status for %s has been revoked.", u.Username))
	}
}

// POST /admin/qna/add  form: question, answer
func (h *AdminHandler) AddQnA(c *gin.Context) {
	question := c.PostForm("question")
	answer := c.PostForm("answer")

	_, err := h.qna.Add(c.Request.Context(), question, answer)
	if errors.Is(err, service.ErrValidation) {
		redirectNotice(c, "/admin", "Question and answer must not be empty.")
		return
	}
	if err != nil {
		logger.Error("admin.qna add failed", "err", err)
		redirectNotice(c, "/admin", "Failed to add custom Q&A.")
		return
	}
	logger.Info("admin.qna add", "question", question)
	redirectNotice(c, "/admin", "Custom Q&A added!")
}

// POST /admin/qna/delete/:id
func (h *AdminHandler) DeleteQnA(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		redirectNotice(c, "/admin", "Invalid Q&A id.")
		return
	}

	err = h.qna.Delete(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		redirectNotice(c, "/admin", "Q&A not found.")
		return
	}
	if err != nil {
		logger.Error("admin.qna delete failed", "qna_id", id, "err", err)
		redirectNotice(c, "/admin", "Failed to delete custom Q&A.")
		return
	}
	logger.Info("admin.qna delete", "qna_id", id)
	redirectNotice(c, "/admin", "Custom Q&A deleted.")
}
