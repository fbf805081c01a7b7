package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-notes-api/internal/interface/http"
	"github.com/oksasatya/go-notes-api/internal/interface/middleware"
)

// NoteModule serves the notes API. Every route sits behind the auth gate.
type NoteModule struct {
	Handler *handlers.NoteHandler
	Auth    gin.HandlerFunc
	Redis   *redis.Client
}

func NewNoteModule(h *handlers.NoteHandler, auth gin.HandlerFunc, rdb *redis.Client) *NoteModule {
	return &NoteModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *NoteModule) Register(rg *gin.RouterGroup) {
	notes := rg.Group("/notes")
	notes.Use(m.Auth, middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByUserID(), nil))
	{
		notes.POST("", m.Handler.Create)
		notes.GET("", m.Handler.List)
		// static segments before :id
		notes.GET("/search", m.Handler.Search)
		notes.GET("/export", middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByUserID(), nil), m.Handler.Export)
		notes.PUT("/pin/:id", m.Handler.Pin)
		notes.PUT("/unpin/:id", m.Handler.Unpin)
		notes.PUT("/:id", m.Handler.Update)
		notes.DELETE("/:id", m.Handler.Delete)
	}
}
