package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/internal/application"
	"github.com/oksasatya/go-notes-api/internal/interface/middleware"
	"github.com/oksasatya/go-notes-api/pkg/response"
)

type NoteHandler struct {
	Svc    *application.NoteService
	Logger *logrus.Logger
	Errors ErrorWriter
}

func NewNoteHandler(svc *application.NoteService, logger *logrus.Logger, production bool) *NoteHandler {
	return &NoteHandler{Svc: svc, Logger: logger, Errors: ErrorWriter{Logger: logger, Production: production}}
}

type noteRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (r noteRequest) input() application.NoteInput {
	return application.NoteInput{Title: r.Title, Description: r.Description}
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	n, err := h.Svc.Create(c.Request.Context(), middleware.UserID(c), req.input())
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, n, "Note created")
}

func (h *NoteHandler) List(c *gin.Context) {
	notes, err := h.Svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, notes, "")
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	n, err := h.Svc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.input())
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, n, "Note updated")
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Note deleted")
}

func (h *NoteHandler) Pin(c *gin.Context) {
	n, err := h.Svc.Pin(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, n, "Note pinned")
}

func (h *NoteHandler) Unpin(c *gin.Context) {
	n, err := h.Svc.Unpin(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, n, "Note unpinned")
}

// Search handles GET /notes/search?query=.
func (h *NoteHandler) Search(c *gin.Context) {
	// query must be a single value
	if len(c.QueryArray("query")) > 1 {
		h.Errors.Write(c, application.ErrInvalidQuery)
		return
	}
	notes, err := h.Svc.Search(c.Request.Context(), middleware.UserID(c), c.Query("query"))
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, notes, "")
}

// Export handles GET /notes/export.
func (h *NoteHandler) Export(c *gin.Context) {
	res, err := h.Svc.Export(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "Notes exported")
}
