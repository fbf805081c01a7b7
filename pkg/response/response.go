package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the success envelope: {"error": false, "data": ..., "message": ...}.
type APIResponse[T any] struct {
	Error       bool   `json:"error"`
	Data        T      `json:"data"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// ErrorResponse is the failure envelope: {"error": "<message>", "details": ...}.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

type messageResponse struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func Success[T any](ctx *gin.Context, status int, data T, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, APIResponse[T]{
		Data:      data,
		Message:   message,
		RequestID: ctx.GetString("request_id"),
	})
}

// WithToken is Success plus the issued access token.
func WithToken[T any](ctx *gin.Context, status int, data T, token, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, APIResponse[T]{
		Data:        data,
		Message:     message,
		AccessToken: token,
		RequestID:   ctx.GetString("request_id"),
	})
}

// Message writes a success envelope without data.
func Message(ctx *gin.Context, status int, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, messageResponse{Message: message, RequestID: ctx.GetString("request_id")})
}

// Error aborts the chain with the failure envelope.
func Error(ctx *gin.Context, status int, message string, details interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: ctx.GetString("request_id"),
	})
}
