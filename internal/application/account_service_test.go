package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/internal/infrastructure/memory"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
	"github.com/oksasatya/go-notes-api/pkg/mailer"
	mailtpl "github.com/oksasatya/go-notes-api/pkg/mailer/templates"
)

type recordingJobs struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (r *recordingJobs) PublishJSON(_ context.Context, body any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, body.(mailer.EmailJob))
	return nil
}

type recordingRevoker struct {
	revoked map[string]time.Time
}

func (r *recordingRevoker) Revoke(_ context.Context, tokenID string, exp time.Time) error {
	if r.revoked == nil {
		r.revoked = map[string]time.Time{}
	}
	r.revoked[tokenID] = exp
	return nil
}

func newAccountService(t *testing.T) (*AccountService, *helpers.JWTManager) {
	t.Helper()
	tokens, err := helpers.NewJWTManager("test-secret", "go-notes-api", time.Hour)
	require.NoError(t, err)
	svc := NewAccountService(memory.New(), helpers.NewBcryptHasher(bcrypt.MinCost), tokens, helpers.NewDiscardLogger())
	return svc, tokens
}

func TestRegister_IssuesTokenForNewAccount(t *testing.T) {
	svc, tokens := newAccountService(t)

	res, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: " Alice@X.io ", Password: "pw123"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "alice@x.io", res.User.Email)
	assert.NotEqual(t, "pw123", res.User.Password)

	claims, err := tokens.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID())
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"username", RegisterInput{Email: "a@x.io", Password: "p"}, MissingField("username")},
		{"password", RegisterInput{Username: "a", Email: "a@x.io"}, MissingField("password")},
		{"email", RegisterInput{Username: "a", Password: "p"}, MissingField("email")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@x.io", Password: "p1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice2", Email: "A@x.io", Password: "p2"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "b@x.io", Password: strings.Repeat("p", MaxPasswordBytes+8)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	// the limit is in bytes: 36 two-byte runes still fit
	res, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "b@x.io", Password: strings.Repeat("é", 36)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
}

func TestLogin(t *testing.T) {
	svc, tokens := newAccountService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@x.io", Password: "p1"})
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		res, err := svc.Login(ctx, LoginInput{Email: "a@x.io", Password: "p1"})
		require.NoError(t, err)
		claims, err := tokens.ParseAccessToken(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, claims.UserID())
	})
	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "a@x.io", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "b@x.io", Password: "p1"})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
	t.Run("missing email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Password: "p1"})
		assert.ErrorIs(t, err, MissingField("email"))
	})
	t.Run("missing password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "a@x.io"})
		assert.ErrorIs(t, err, MissingField("password"))
	})
}

func TestCurrentAccount(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@x.io", Password: "p1"})
	require.NoError(t, err)

	u, err := svc.CurrentAccount(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.CurrentAccount(ctx, "deleted-user")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.CurrentAccount(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogout(t *testing.T) {
	svc, _ := newAccountService(t)
	exp := time.Now().Add(time.Hour)

	ok, err := svc.Logout(context.Background(), "jti-1", exp)
	require.NoError(t, err)
	assert.False(t, ok)

	rev := &recordingRevoker{}
	svc.WithRevoker(rev)
	ok, err = svc.Logout(context.Background(), "jti-1", exp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, exp, rev.revoked["jti-1"])
}

func TestNotifications(t *testing.T) {
	svc, _ := newAccountService(t)
	jobs := &recordingJobs{}
	svc.WithNotifications(jobs, "Notes")
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@x.io", Password: "p1"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "a@x.io", Password: "p1", IP: "10.0.0.1"})
	require.NoError(t, err)

	require.Len(t, jobs.jobs, 2)
	assert.Equal(t, mailtpl.Welcome, jobs.jobs[0].Template)
	assert.Equal(t, mailtpl.LoginNotification, jobs.jobs[1].Template)
	assert.Equal(t, "10.0.0.1", jobs.jobs[1].Data["IP"])
	assert.True(t, jobs.jobs[1].Valid())

	// a broken queue never fails the request
	jobs.err = errors.New("channel closed")
	_, err = svc.Login(ctx, LoginInput{Email: "a@x.io", Password: "p1"})
	assert.NoError(t, err)
}

type failingUsers struct{}

func (failingUsers) Create(context.Context, *entity.User) error { return errors.New("db down") }
func (failingUsers) GetByID(context.Context, string) (*entity.User, error) {
	return nil, errors.New("db down")
}
func (failingUsers) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, errors.New("db down")
}

func TestAccountService_StorageFailureIsInternal(t *testing.T) {
	svc, _ := newAccountService(t)
	svc.Repo = failingUsers{}

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@x.io", Password: "p"})
	assert.Equal(t, KindInternal, KindOf(err))
	_, err = svc.CurrentAccount(context.Background(), "u1")
	assert.Equal(t, KindInternal, KindOf(err))
}
