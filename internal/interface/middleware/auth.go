package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/internal/application"
	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
	"github.com/oksasatya/go-notes-api/pkg/response"
)

// Gin context keys set by Auth.
const (
	CtxUserIDKey      = "userID"
	CtxUserKey        = "user"
	CtxTokenIDKey     = "tokenID"
	CtxTokenExpiryKey = "tokenExpiry"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	ParseAccessToken(token string) (*helpers.Claims, error)
}

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdentityResolver loads the live account behind a token subject.
type IdentityResolver interface {
	CurrentAccount(ctx context.Context, userID string) (*entity.User, error)
}

var errMalformedHeader = errors.New("malformed authorization header")

// bearerToken takes the token from "Authorization: Bearer <token>" and falls back to the
// access cookie when the header is absent. A present but malformed header is an error.
func bearerToken(c *gin.Context) (string, error) {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errMalformedHeader
		}
		return token, nil
	}
	if token, err := c.Cookie(helpers.AccessCookie); err == nil && token != "" {
		return token, nil
	}
	return "", nil
}

// Auth admits a request only when it carries a valid, unexpired, unrevoked token whose
// subject is an existing account. On success it sets the user id, the user record, the
// token id and its expiry in the Gin context. Every rejection is the same 401
// "unauthorized" envelope; the reason only goes to the log. revoked may be nil.
func Auth(tokens TokenVerifier, users IdentityResolver, revoked RevocationChecker, logger *logrus.Logger) gin.HandlerFunc {
	reject := func(c *gin.Context, reason string, err error) {
		if logger != nil {
			entry := logger.WithFields(logrus.Fields{
				"reason":     reason,
				"path":       normalizePath(c),
				"ip":         ipFromCtx(c),
				"request_id": c.GetString("request_id"),
			})
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Warn("request rejected by auth")
		}
		response.Error(c, http.StatusUnauthorized, application.ErrUnauthenticated.Msg, nil)
	}

	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			reject(c, "malformed_header", err)
			return
		}
		if token == "" {
			reject(c, "missing_token", nil)
			return
		}

		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			reason := "invalid_token"
			switch {
			case errors.Is(err, helpers.ErrTokenExpired):
				reason = "expired_token"
			case errors.Is(err, helpers.ErrTokenMalformed):
				reason = "malformed_token"
			}
			reject(c, reason, err)
			return
		}

		ctx := c.Request.Context()
		if revoked != nil && claims.TokenID() != "" {
			isRevoked, err := revoked.IsRevoked(ctx, claims.TokenID())
			if err != nil {
				reject(c, "revocation_check_failed", err)
				return
			}
			if isRevoked {
				reject(c, "revoked_token", nil)
				return
			}
		}

		user, err := users.CurrentAccount(ctx, claims.UserID())
		if err != nil {
			if application.KindOf(err) == application.KindInternal {
				if logger != nil {
					logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("resolve account failed")
				}
				response.Error(c, http.StatusInternalServerError, "Internal server error", nil)
				return
			}
			reject(c, "unknown_subject", err)
			return
		}

		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxUserKey, user)
		c.Set(CtxTokenIDKey, claims.TokenID())
		c.Set(CtxTokenExpiryKey, claims.Expiry())
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside the auth gate.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

// CurrentUser returns the account loaded by Auth.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

// TokenID returns the jti of the token that authenticated the request.
func TokenID(c *gin.Context) string {
	return c.GetString(CtxTokenIDKey)
}

func TokenExpiry(c *gin.Context) time.Time {
	return c.GetTime(CtxTokenExpiryKey)
}
