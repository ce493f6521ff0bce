package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

// RevocationStore abstracts where revoked access tokens are kept.
type RevocationStore interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Remove(ctx context.Context, token string) error
	Contains(ctx context.Context, token string) (bool, error)
}

// AccessTokenParser verifies access tokens.
type AccessTokenParser interface {
	ParseAccessToken(raw string) (*models.TokenClaims, error)
}

// RevocationService records logged-out access tokens until they would have
// expired anyway.
type RevocationService struct {
	store   RevocationStore
	tokens  AccessTokenParser
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewRevocationService constructs a revocation service.
func NewRevocationService(store RevocationStore, tokens AccessTokenParser, metrics *MetricsService, logger *zap.Logger) *RevocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationService{store: store, tokens: tokens, metrics: metrics, logger: logger, now: time.Now}
}

// Revoke verifies raw and blocks it for the remainder of its lifetime. A token
// that has already expired leaves no entry behind.
func (s *RevocationService) Revoke(ctx context.Context, raw string) error {
	claims, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		if err := s.store.Remove(ctx, raw); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke token")
		}
		return nil
	}

	if err := s.store.Add(ctx, raw, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke token")
	}
	s.metrics.RecordAuthEvent("revoke", "success")
	s.logger.Debug("access token revoked", zap.String("user_id", claims.UserID), zap.Duration("ttl", ttl))
	return nil
}

// IsRevoked reports whether raw has been revoked and has not yet expired.
func (s *RevocationService) IsRevoked(ctx context.Context, raw string) (bool, error) {
	start := time.Now()
	revoked, err := s.store.Contains(ctx, raw)
	s.metrics.ObserveRevocationCheck(revoked, time.Since(start))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check token revocation")
	}
	return revoked, nil
}
