package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/internal/application"
	"github.com/oksasatya/go-notes-api/internal/interface/middleware"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
	"github.com/oksasatya/go-notes-api/pkg/response"
)

type AccountHandler struct {
	Svc     *application.AccountService
	Logger  *logrus.Logger
	Cookies *helpers.Manager // nil disables the access cookie
	Errors  ErrorWriter
}

func NewAccountHandler(svc *application.AccountService, logger *logrus.Logger, cookies *helpers.Manager, production bool) *AccountHandler {
	return &AccountHandler{
		Svc:     svc,
		Logger:  logger,
		Cookies: cookies,
		Errors:  ErrorWriter{Logger: logger, Production: production},
	}
}

// Field order sets which missing field is reported first.
type createAccountRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateAccount handles POST /account.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}

	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	h.setCookie(c, res)
	response.WithToken(c, http.StatusOK, res.User, res.AccessToken, "Account created successfully")
}

// Login handles POST /login.
func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), application.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.GetString("real_ip"),
	})
	if err != nil {
		// an unknown email is a bad request here, not a missing resource
		if errors.Is(err, application.ErrAccountNotFound) {
			h.Errors.WriteStatus(c, http.StatusBadRequest, err)
			return
		}
		h.Errors.Write(c, err)
		return
	}
	h.setCookie(c, res)
	response.WithToken(c, http.StatusOK, res.User, res.AccessToken, "Login successful")
}

// GetUser handles GET /get-user with the account the auth gate resolved.
func (h *AccountHandler) GetUser(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.Errors.Write(c, application.ErrUnauthenticated)
		return
	}
	response.Success(c, http.StatusOK, u, "")
}

// Logout handles POST /logout by revoking the presented token.
func (h *AccountHandler) Logout(c *gin.Context) {
	revoked, err := h.Svc.Logout(c.Request.Context(), middleware.TokenID(c), middleware.TokenExpiry(c))
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	if h.Cookies != nil {
		h.Cookies.Clear(c)
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": revoked}, "Logged out")
}

func (h *AccountHandler) setCookie(c *gin.Context, res *application.AuthResult) {
	if h.Cookies != nil {
		h.Cookies.SetAccess(c, res.AccessToken, res.ExpiresAt)
	}
}
