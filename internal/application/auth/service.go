// Package auth registers users and manages their login sessions. A session
// lives in the session store; the client holds a signed token naming it.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/domain/user"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flame-data/pkg/errors"
)

// SessionStore keeps server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	Lookup(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Session is an opened login session.
type Session struct {
	User      *user.User
	Token     string
	ExpiresAt time.Time
}

// Service defines the account operations.
type Service interface {
	Register(ctx context.Context, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Logout revokes the session named by token. Unknown or invalid tokens
	// are ignored.
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a token to its user, or fails with Unauthorized.
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

type serviceImpl struct {
	users             user.Repository
	sessions          SessionStore
	signer            *TokenSigner
	bcryptCost        int
	defaultCollection string
	metrics           *prometheus.AppMetrics
	logger            logging.Logger
}

// NewService creates the auth service from the auth configuration. metrics
// may be nil.
func NewService(users user.Repository, sessions SessionStore, cfg config.AuthConfig,
	metrics *prometheus.AppMetrics, logger logging.Logger) Service {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &serviceImpl{
		users:             users,
		sessions:          sessions,
		signer:            NewTokenSigner(cfg.SessionSecret, cfg.SessionTTL),
		bcryptCost:        cost,
		defaultCollection: cfg.DefaultCollection,
		metrics:           metrics,
		logger:            logger.Named("auth"),
	}
}

func (s *serviceImpl) Register(ctx context.Context, email, password string) (*Session, error) {
	email, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, errors.New(errors.ErrCodeValidation, "Password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "Password cannot be hashed")
	}

	u := &user.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u, s.defaultCollection); err != nil {
		s.record("register", false)
		return nil, err
	}
	s.record("register", true)
	s.logger.Info("user registered", logging.Int64("user_id", u.ID))
	return s.open(ctx, u)
}

func (s *serviceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := user.NormalizeEmail(email)
	if err != nil {
		s.record("login", false)
		return nil, errors.Unauthorized()
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.IsNotFound(err) {
		s.record("login", false)
		return nil, errors.Unauthorized()
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.record("login", false)
		s.logger.Debug("password mismatch", logging.Int64("user_id", u.ID))
		return nil, errors.Unauthorized()
	}
	s.record("login", true)
	return s.open(ctx, u)
}

func (s *serviceImpl) open(ctx context.Context, u *user.User) (*Session, error) {
	id, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.signer.Sign(id, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func (s *serviceImpl) Logout(ctx context.Context, token string) error {
	sessionID, _, err := s.signer.Parse(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

func (s *serviceImpl) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, errors.Unauthorized()
	}
	sessionID, userID, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	stored, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored != userID {
		s.logger.Warn("session user mismatch", logging.Int64("token_user", userID), logging.Int64("session_user", stored))
		return nil, errors.Unauthorized()
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.IsNotFound(err) {
		return nil, errors.Unauthorized()
	}
	return u, err
}

func (s *serviceImpl) record(action string, ok bool) {
	if s.metrics != nil {
		prometheus.RecordAuthAttempt(s.metrics, action, ok)
	}
}
