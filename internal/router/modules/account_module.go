package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-notes-api/internal/interface/http"
	"github.com/oksasatya/go-notes-api/internal/interface/middleware"
)

// AccountModule serves sign-up, login and the account endpoints.
// Public: POST /account, POST /login
// Protected: GET /get-user, POST /logout
type AccountModule struct {
	Handler *handlers.AccountHandler
	Auth    gin.HandlerFunc
	Redis   *redis.Client // nil disables rate limiting
}

func NewAccountModule(h *handlers.AccountHandler, auth gin.HandlerFunc, rdb *redis.Client) *AccountModule {
	return &AccountModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	signupLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIP(), nil)
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/account", signupLimiter, m.Handler.CreateAccount)
	rg.POST("/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(m.Auth, middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/get-user", m.Handler.GetUser)
		auth.POST("/logout", m.Handler.Logout)
	}
}
