// Package services contains server-side business logic: token issuance and
// resolution, user login and provisioning, and reading and saving the plan.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/repomanager"
)

// tokenBytes is the amount of randomness in an issued token; the token
// string is its hex encoding.
const tokenBytes = 32

// TokenService issues and resolves opaque bearer tokens. Tokens live in the
// database only; every Resolve hits storage.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	ttl         time.Duration
	now         func() time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, ttl time.Duration) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "tokens"),
		ttl:         ttl,
		now:         time.Now,
	}
}

// Issue creates a token for userID valid for the configured TTL.
func (s *TokenService) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}

	repo := s.repomanager.AuthTokens(s.db)
	if err := repo.Create(ctx, userID, token, s.now().Add(s.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the owner of token. ok is false when the token is unknown
// or expired; an expired token is deleted on the way out.
func (s *TokenService) Resolve(ctx context.Context, token string) (userID int64, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}

	repo := s.repomanager.AuthTokens(s.db)

	t, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	if t.Expired(s.now()) {
		if err := repo.Delete(ctx, token); err != nil {
			s.logger.Warn(ctx, "error deleting expired token", "error", err)
		}
		return 0, false, nil
	}

	return t.UserID, true, nil
}

func (s *TokenService) Revoke(ctx context.Context, token string) error {
	return s.repomanager.AuthTokens(s.db).Delete(ctx, token)
}

// RevokeAll logs a user out everywhere.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) error {
	return s.repomanager.AuthTokens(s.db).DeleteByUser(ctx, userID)
}

// Sweep deletes every token that has expired by now.
func (s *TokenService) Sweep(ctx context.Context) (int64, error) {
	return s.repomanager.AuthTokens(s.db).DeleteExpired(ctx, s.now())
}

// RunSweeper calls Sweep every interval until ctx is cancelled. A
// non-positive interval disables sweeping.
func (s *TokenService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error(ctx, "token sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "expired tokens purged", "count", n)
			}
		}
	}
}
