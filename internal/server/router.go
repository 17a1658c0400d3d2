package server

import (
	"net/http"

	"choco-chat/internal/config"
	"choco-chat/internal/handler"
	"choco-chat/internal/middleware"
	"choco-chat/internal/service"
	"choco-chat/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// New 组装全部路由。providers 由调用方传入，方便测试时替换成桩实现。
func New(cfg *config.Config, db *gorm.DB, providers map[service.ModelChoice]service.Provider) *gin.Engine {
	secret := []byte(cfg.Auth.SecretKey)

	authSvc := service.NewAuthService(db)
	historySvc := service.NewHistoryService(db)
	qnaSvc := service.NewQnAService(db)
	adminSvc := service.NewAdminService(db)
	dispatcher := service.NewDispatcher(qnaSvc, providers)

	authH := handler.NewAuthHandler(authSvc, secret)
	chatH := handler.NewChatHandler(dispatcher, historySvc, authSvc)
	adminH := handler.NewAdminHandler(adminSvc, qnaSvc)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.POST("/register", authH.Register)
	r.POST("/login", authH.Login)
	r.GET("/logout", authH.Logout)

	session := middleware.SessionAuth(secret)
	r.GET("/chat", session, chatH.ChatPage)

	api := r.Group("/api", session)
	api.POST("/chat", chatH.APIChat)
	api.GET("/chat/history/:id", chatH.History)
	api.POST("/chat/delete/:id", chatH.Delete)
	api.POST("/chat/favorite/:id", chatH.Favorite)
	api.POST("/feedback/emoji", chatH.EmojiFeedback)

	admin := r.Group("/admin", session, middleware.AdminRequired(db))
	admin.GET("", adminH.Dashboard)
	admin.GET("/users", adminH.Users)
	admin.POST("/user/level/:id", adminH.SetLevel)
	admin.POST("/user/grant/:id", adminH.GrantAdmin)
	admin.POST("/user/revoke/:id", adminH.RevokeAdmin)
	admin.POST("/qna/add", adminH.AddQnA)
	admin.POST("/qna/delete/:id", adminH.DeleteQnA)

	if staticFS, err := web.GetFileSystem(); err == nil {
		r.GET("/credit", func(c *gin.Context) {
			c.FileFromFS("credit.html", staticFS)
		})
		r.NoRoute(gin.WrapH(http.FileServer(staticFS)))
	}

	return r
}
