package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/cryptox"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/server/models"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/repomanager"
)

// dummyHash is well formed but matches no password. Login checks it for
// unknown usernames so both failure paths cost one key derivation.
var dummyHash = strings.Repeat("0", 128) + "." + strings.Repeat("0", 32)

// comparePassword is a seam for tests.
var comparePassword = cryptox.ComparePassword

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// UserService authenticates users and provisions accounts.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger.With("module", "users"),
	}
}

// Login checks username and password and issues a fresh token. Unknown users
// and wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = comparePassword(password, dummyHash)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "error loading user", "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := comparePassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unusable", "user", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, "error issuing token", "error", err)
		return nil, common.ErrorInternal
	}

	return &LoginResult{User: user, Token: token}, nil
}

// Logout revokes token. An empty or unknown token is not an error.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, token)
}

// Authenticate resolves a bearer token to its user. It returns
// common.ErrorUnauthorized when the token is unknown, expired, or its user
// no longer exists.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, ok, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.GetByID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	return user, err
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// Provision creates an account with a freshly hashed password.
func (s *UserService) Provision(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	if username == "" || password == "" {
		return nil, common.ErrorValidation
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hash, IsAdmin: isAdmin}
	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the admin account unless a user with that name
// already exists. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	if _, err := s.Provision(ctx, username, password, true); err != nil {
		// lost a race with another instance seeding the same account
		if errors.Is(err, common.ErrorConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info(ctx, "admin account created", "username", username)
	return true, nil
}

// RevokeSessions deletes every token of username, logging the user out on
// all devices. It returns common.ErrorNotFound for unknown users.
func (s *UserService) RevokeSessions(ctx context.Context, username string) error {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return fmt.Errorf("error revoking tokens: %w", err)
	}
	s.logger.Info(ctx, "sessions revoked", "user", user.ID)
	return nil
}
