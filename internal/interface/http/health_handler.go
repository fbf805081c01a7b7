package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-notes-api/pkg/response"
)

// Hello answers the protected root, which clients use to check that a token still works.
func Hello(c *gin.Context) {
	response.Success(c, http.StatusOK, "Hello World", "")
}

// Healthz is the public liveness check.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
