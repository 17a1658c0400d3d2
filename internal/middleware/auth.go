package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"choco-chat/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const SessionCookie = "session"

const tokenTTL = 7 * 24 * time.Hour

// IssueToken 登录成功后签发会话令牌
func IssueToken(secret []byte, uid int, name string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uid,
		"name": name,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}).SignedString(secret)
}

// SessionAuth 从 cookie 读取会话令牌，兼容 Bearer 头。
// 页面请求未登录跳转登录页，API 请求返回 401。
func SessionAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookie)
		if err != nil || raw == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = auth[7:]
			}
		}
		if raw == "" {
			reject(c)
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			reject(c)
			return
		}
		claims := token.Claims.(jwt.MapClaims)
		uid, ok := claims["uid"].(float64)
		if !ok {
			reject(c)
			return
		}
		name, _ := claims["name"].(string)
		c.Set("user_id", int(uid))
		c.Set("user_name", name)

		// 剩余不到1天时自动续期
		if exp, ok := claims["exp"].(float64); ok {
			if time.Until(time.Unix(int64(exp), 0)) < 24*time.Hour {
				if renewed, err := IssueToken(secret, int(uid), name); err == nil {
					c.SetCookie(SessionCookie, renewed, int(tokenTTL.Seconds()), "/", "", false, true)
				}
			}
		}

		c.Next()
	}
}

// AdminRequired 每次请求重查用户行，撤销权限立刻生效
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetInt("user_id")
		var u model.User
		if err := db.WithContext(c.Request.Context()).First(&u, uid).Error; err != nil || !u.IsAdmin {
			c.Redirect(http.StatusFound, "/?notice="+url.QueryEscape("You do not have access to this page."))
			c.Abort()
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}
