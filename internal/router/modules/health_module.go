package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-notes-api/internal/interface/http"
)

// HealthModule serves GET /healthz publicly and GET / behind the auth gate.
type HealthModule struct {
	Auth gin.HandlerFunc
}

func NewHealthModule(auth gin.HandlerFunc) *HealthModule { return &HealthModule{Auth: auth} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", handlers.Healthz)
	rg.GET("/", m.Auth, handlers.Hello)
}
