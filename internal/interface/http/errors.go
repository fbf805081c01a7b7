package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/internal/application"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
	"github.com/oksasatya/go-notes-api/pkg/response"
	"github.com/oksasatya/go-notes-api/pkg/validation"
)

// ErrorWriter turns application errors into the failure envelope. Diagnostic details of
// internal faults are only attached outside production.
type ErrorWriter struct {
	Logger     *logrus.Logger
	Production bool
}

func statusFor(kind application.Kind) int {
	switch kind {
	case application.KindMissingField, application.KindConflict,
		application.KindInvalidCredential, application.KindInvalidQuery,
		application.KindInvalidInput:
		return http.StatusBadRequest
	case application.KindUnauthenticated:
		return http.StatusUnauthorized
	case application.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Write sends err with the status of its kind.
func (w ErrorWriter) Write(c *gin.Context, err error) {
	w.WriteStatus(c, statusFor(application.KindOf(err)), err)
}

// WriteStatus sends err with an explicit status, for routes whose contract differs from
// the kind's default.
func (w ErrorWriter) WriteStatus(c *gin.Context, status int, err error) {
	var ae *application.Error
	if !errors.As(err, &ae) || ae.Kind == application.KindInternal {
		helpers.LogError(w.Logger, "request failed", err, logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		})
		var details any
		if !w.Production {
			if ae != nil && ae.Err != nil {
				details = ae.Err.Error()
			} else {
				details = err.Error()
			}
		}
		response.Error(c, http.StatusInternalServerError, "Internal server error", details)
		return
	}
	response.Error(c, status, ae.Msg, nil)
}

// Binding reports a request body that failed validation, naming the first bad field.
func (w ErrorWriter) Binding(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, validation.First(err), validation.ToDetails(err))
}
