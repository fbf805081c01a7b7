package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	repo "github.com/oksasatya/go-notes-api/internal/domain/repository"
	"github.com/oksasatya/go-notes-api/pkg/mailer"
	mailtpl "github.com/oksasatya/go-notes-api/pkg/mailer/templates"
)

// PasswordHasher is a salted one-way password transform.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer mints bearer tokens for a user id.
type TokenIssuer interface {
	IssueAccessToken(userID string) (string, time.Time, error)
}

// TokenRevoker denylists a token id until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// JobPublisher enqueues background jobs such as notification emails.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type AccountService struct {
	Repo    repo.UserRepository
	Hasher  PasswordHasher
	Tokens  TokenIssuer
	Revoker TokenRevoker // optional
	Jobs    JobPublisher // optional
	AppName string
	Logger  *logrus.Logger
	now     func() time.Time
}

func NewAccountService(users repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *logrus.Logger) *AccountService {
	return &AccountService{
		Repo:   users,
		Hasher: hasher,
		Tokens: tokens,
		Logger: logger,
		now:    time.Now,
	}
}

// WithRevoker enables logout. Without it tokens stay valid until expiry.
func (s *AccountService) WithRevoker(r TokenRevoker) *AccountService {
	s.Revoker = r
	return s
}

// WithNotifications enqueues welcome and sign-in emails through jobs.
func (s *AccountService) WithNotifications(jobs JobPublisher, appName string) *AccountService {
	s.Jobs = jobs
	s.AppName = appName
	return s
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        *entity.User
	AccessToken string
	ExpiresAt   time.Time
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a unique email and signs the user in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	switch {
	case in.Username == "":
		return nil, MissingField("username")
	case in.Password == "":
		return nil, MissingField("password")
	case strings.TrimSpace(in.Email) == "":
		return nil, MissingField("email")
	}
	// bcrypt refuses longer input.
	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	email := normalizeEmail(in.Email)

	existing, err := s.Repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, Internal("find user by email", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, Internal("hash password", err)
	}

	u := &entity.User{Username: in.Username, Email: email, Password: hash}
	if err := s.Repo.Create(ctx, u); err != nil {
		// Lost a race against a concurrent registration with the same email.
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, Internal("create user", err)
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, mailtpl.Welcome, u, "")
	return res, nil
}

// Login verifies email and password and issues a fresh token. Earlier tokens stay valid.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	switch {
	case strings.TrimSpace(in.Email) == "":
		return nil, MissingField("email")
	case in.Password == "":
		return nil, MissingField("password")
	}

	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, Internal("find user by email", err)
	}
	if u == nil {
		return nil, ErrAccountNotFound
	}
	if !s.Hasher.Verify(in.Password, u.Password) {
		return nil, ErrInvalidCredentials
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, mailtpl.LoginNotification, u, in.IP)
	return res, nil
}

// CurrentAccount loads the live record for an authenticated user id. A token whose
// subject no longer exists is treated as unauthenticated.
func (s *AccountService) CurrentAccount(ctx context.Context, userID string) (*entity.User, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, Internal("find user by id", err)
	}
	return u, nil
}

// Logout revokes the presented token. It reports false when no revocation store is
// configured, in which case the token remains valid until it expires.
func (s *AccountService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if s.Revoker == nil {
		return false, nil
	}
	if err := s.Revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
		return false, Internal("revoke token", err)
	}
	return true, nil
}

func (s *AccountService) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.IssueAccessToken(u.ID)
	if err != nil {
		return nil, Internal("issue token", err)
	}
	return &AuthResult{User: u, AccessToken: token, ExpiresAt: exp}, nil
}

func (s *AccountService) notify(ctx context.Context, template string, u *entity.User, ip string) {
	if s.Jobs == nil {
		return
	}
	data := mailtpl.ToMap(mailtpl.EmailData{
		AppName:  s.AppName,
		Username: u.Username,
		Email:    u.Email,
		IP:       ip,
		TimeAt:   s.now(),
	})
	job := mailer.EmailJob{To: u.Email, Template: template, Data: data}
	if err := s.Jobs.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "template": template}).Warn("enqueue email failed")
	}
}
