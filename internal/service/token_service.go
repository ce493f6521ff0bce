package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

// Token lifetimes are fixed and not configurable per call.
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenConfig carries the signing secrets.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
}

// TokenService issues and verifies access and refresh JWTs. Each token class
// has its own secret so one key cannot forge the other class.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	now           func() time.Time
}

// NewTokenService validates the secrets up front; a missing secret is a
// deployment error and must stop the process at startup.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "JWT_SECRET is not configured")
	}
	if cfg.RefreshSecret == "" {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "JWT_REFRESH_SECRET is not configured")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// IssueAccessToken signs a short-lived access token for user.
func (s *TokenService) IssueAccessToken(user *models.User) (string, error) {
	return s.sign(user, s.accessSecret, AccessTokenTTL)
}

// IssueRefreshToken signs a long-lived refresh token for user.
func (s *TokenService) IssueRefreshToken(user *models.User) (string, error) {
	return s.sign(user, s.refreshSecret, RefreshTokenTTL)
}

// ParseAccessToken verifies signature and expiry of an access token.
func (s *TokenService) ParseAccessToken(raw string) (*models.TokenClaims, error) {
	return s.parse(raw, s.accessSecret)
}

// ParseRefreshToken verifies signature and expiry of a refresh token.
func (s *TokenService) ParseRefreshToken(raw string) (*models.TokenClaims, error) {
	return s.parse(raw, s.refreshSecret)
}

func (s *TokenService) sign(user *models.User, secret []byte, ttl time.Duration) (string, error) {
	if user == nil || user.ID == "" {
		return "", appErrors.Clone(appErrors.ErrInternal, "cannot sign token without subject")
	}
	issuedAt := s.now().UTC()
	claims := &models.TokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}

func (s *TokenService) parse(raw string, secret []byte) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, appErrors.ErrInvalidToken
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, appErrors.Wrap(fmt.Errorf("missing subject or role"), appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	return claims, nil
}
