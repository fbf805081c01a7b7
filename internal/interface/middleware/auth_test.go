package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-notes-api/internal/application"
	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

type fakeAccounts map[string]*entity.User

func (f fakeAccounts) CurrentAccount(_ context.Context, id string) (*entity.User, error) {
	if id == "broken" {
		return nil, application.Internal("find user by id", errors.New("db down"))
	}
	u, ok := f[id]
	if !ok {
		return nil, application.ErrUnauthenticated
	}
	return u, nil
}

type fakeDenylist map[string]bool

func (f fakeDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("no id")
	}
	return f[id], nil
}

type gateResult struct {
	rec    *httptest.ResponseRecorder
	userID string
	jti    string
}

func runGate(t *testing.T, gate gin.HandlerFunc, setup func(r *http.Request)) gateResult {
	t.Helper()
	var res gateResult
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/p", gate, func(c *gin.Context) {
		res.userID = UserID(c)
		res.jti = TokenID(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if setup != nil {
		setup(req)
	}
	res.rec = httptest.NewRecorder()
	r.ServeHTTP(res.rec, req)
	return res
}

func newGate(t *testing.T, deny RevocationChecker) (gin.HandlerFunc, *helpers.JWTManager, *test.Hook) {
	t.Helper()
	tokens, err := helpers.NewJWTManager(testSecret, "go-notes-api", time.Hour)
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	users := fakeAccounts{
		"u1": {ID: "u1", Username: "ann", Email: "a@x.com"},
	}
	return Auth(tokens, users, deny, logger), tokens, hook
}

func bearer(token string) func(r *http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestAuth_AcceptsBearerHeader(t *testing.T) {
	gate, tokens, hook := newGate(t, nil)
	token, _, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)

	res := runGate(t, gate, bearer(token))
	assert.Equal(t, http.StatusOK, res.rec.Code)
	assert.Equal(t, "u1", res.userID)
	assert.NotEmpty(t, res.jti)
	assert.Empty(t, hook.AllEntries())
}

func TestAuth_AcceptsCookie(t *testing.T) {
	gate, tokens, _ := newGate(t, nil)
	token, _, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)

	res := runGate(t, gate, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: token})
	})
	assert.Equal(t, http.StatusOK, res.rec.Code)
	assert.Equal(t, "u1", res.userID)
}

func TestAuth_Rejections(t *testing.T) {
	tokens, err := helpers.NewJWTManager(testSecret, "go-notes-api", time.Hour)
	require.NoError(t, err)
	valid, _, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)
	ghost, _, err := tokens.IssueAccessToken("ghost")
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, helpers.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "go-notes-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	expiredStr, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	other, err := helpers.NewJWTManager("other-secret", "go-notes-api", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.IssueAccessToken("u1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		reason string
	}{
		{"missing", nil, "missing_token"},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+valid) }, "malformed_header"},
		{"empty bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") }, "malformed_header"},
		{"garbage", bearer("not.a.jwt"), "malformed_token"},
		{"expired", bearer(expiredStr), "expired_token"},
		{"bad signature", bearer(forged), "invalid_token"},
		{"deleted account", bearer(ghost), "unknown_subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			gate := Auth(tokens, fakeAccounts{"u1": {ID: "u1"}}, nil, logger)

			res := runGate(t, gate, tt.setup)
			assert.Equal(t, http.StatusUnauthorized, res.rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized","request_id":"`+res.rec.Header().Get(HeaderRequestID)+`"}`, res.rec.Body.String())
			assert.Empty(t, res.userID)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.Equal(t, tt.reason, entry.Data["reason"])
		})
	}
}

func TestAuth_RevokedToken(t *testing.T) {
	tokens, err := helpers.NewJWTManager(testSecret, "go-notes-api", time.Hour)
	require.NoError(t, err)
	token, _, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)
	claims, err := tokens.ParseAccessToken(token)
	require.NoError(t, err)

	deny := fakeDenylist{claims.TokenID(): true}
	logger, hook := test.NewNullLogger()
	gate := Auth(tokens, fakeAccounts{"u1": {ID: "u1"}}, deny, logger)

	res := runGate(t, gate, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, res.rec.Code)
	assert.Equal(t, "revoked_token", hook.LastEntry().Data["reason"])

	// a fresh token for the same account still works
	fresh, _, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)
	res = runGate(t, gate, bearer(fresh))
	assert.Equal(t, http.StatusOK, res.rec.Code)
}

func TestAuth_RedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := helpers.NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rdb.Close() })
	deny := helpers.NewRedisDenylist(rdb)

	gate, tokens, hook := newGate(t, deny)
	token, exp, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)
	claims, err := tokens.ParseAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, runGate(t, gate, bearer(token)).rec.Code)

	require.NoError(t, deny.Revoke(context.Background(), claims.TokenID(), exp))
	res := runGate(t, gate, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, res.rec.Code)
	assert.Equal(t, "revoked_token", hook.LastEntry().Data["reason"])

	// an unreachable denylist rejects rather than admits
	mr.Close()
	res = runGate(t, gate, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, res.rec.Code)
	assert.Equal(t, "revocation_check_failed", hook.LastEntry().Data["reason"])
}

func TestAuth_StoreFailureIsInternal(t *testing.T) {
	gate, tokens, _ := newGate(t, nil)
	token, _, err := tokens.IssueAccessToken("broken")
	require.NoError(t, err)

	res := runGate(t, gate, bearer(token))
	assert.Equal(t, http.StatusInternalServerError, res.rec.Code)
	assert.Contains(t, res.rec.Body.String(), "Internal server error")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	id := rec.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Body.String())

	incoming := "6f1c1c57-6f0e-4a4f-9c1a-0d7c2c3b8a11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(HeaderRequestID))
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	tests := []struct {
		header, value, want string
	}{
		{"CF-Connecting-IP", "203.0.113.9", "203.0.113.9"},
		{"X-Real-IP", "198.51.100.7", "198.51.100.7"},
		{"X-Forwarded-For", "192.0.2.1, 10.0.0.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tt.header, tt.value)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Body.String(), tt.header)
	}
}

func TestAccessLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestIDMiddleware(), AccessLog(logger))
	r.POST("/notes", func(c *gin.Context) {
		c.Set(CtxUserIDKey, "u1")
		c.Status(http.StatusBadRequest)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes", bytes.NewBufferString("{}")))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "/notes", entry.Data["path"])
	assert.Equal(t, http.StatusBadRequest, entry.Data["status"])
	assert.Equal(t, "u1", entry.Data["user_id"])
	assert.NotEmpty(t, entry.Data["request_id"])
}

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
