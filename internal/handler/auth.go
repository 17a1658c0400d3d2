package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"choco-chat/internal/logger"
	"choco-chat/internal/middleware"
	"choco-chat/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth   *service.AuthService
	secret []byte
}

func NewAuthHandler(auth *service.AuthService, secret []byte) *AuthHandler {
	return &AuthHandler{auth: auth, secret: secret}
}

// POST /register  form: username, password
func (h *AuthHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	_, err := h.auth.Register(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, service.ErrValidation):
		redirectNotice(c, "/register", "Username and password must not be empty.")
	case errors.Is(err, service.ErrDuplicateUsername):
		logger.Warn("register.duplicate", "username", username)
		redirectNotice(c, "/register", "Username already taken.")
	case err != nil:
		logger.Error("register.failed", "username", username, "err", err)
		redirectNotice(c, "/register", "Registration failed, please try again.")
	default:
		logger.Info("register.ok", "username", username)
		redirectNotice(c, "/login", "Account created! Please log in.")
	}
}

// POST /login  form: username, password, next(optional)
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	u, err := h.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		logger.Warn("login.failed", "username", username)
		redirectNotice(c, "/login", "Login failed. Check your username and password.")
		return
	}

	token, err := middleware.IssueToken(h.secret, u.ID, u.Username)
	if err != nil {
		logger.Error("login.token failed", "uid", u.ID, "err", err)
		redirectNotice(c, "/login", "Login failed, please try again.")
		return
	}
	c.SetCookie(middleware.SessionCookie, token, 7*24*3600, "/", "", false, true)
	logger.Info("login.ok", "uid", u.ID, "username", u.Username)

	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}
	if !strings.HasPrefix(next, "/") {
		next = "/"
	}
	c.Redirect(http.StatusFound, next)
}

// GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func redirectNotice(c *gin.Context, path, notice string) {
	c.Redirect(http.StatusFound, path+"?notice="+url.QueryEscape(notice))
}
