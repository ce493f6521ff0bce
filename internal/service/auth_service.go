package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/validation"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	FindDuplicateField(ctx context.Context, user *models.User) (string, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateProfile(ctx context.Context, id, name string, email *string, updatedAt time.Time) error
	SetRefreshToken(ctx context.Context, id, token string) error
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error)
	ClearRefreshToken(ctx context.Context, id, token string) error
}

type tokenRevoker interface {
	Revoke(ctx context.Context, raw string) error
	IsRevoked(ctx context.Context, raw string) (bool, error)
}

type activityRecorder interface {
	Record(ctx context.Context, entry models.ActivityLog)
}

var (
	errUserNotFound        = appErrors.Clone(appErrors.ErrNotFound, "User not found")
	errInvalidRefreshToken = appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
)

// AuthService provides registration, login and token lifecycle use cases.
type AuthService struct {
	repo        authUserRepository
	tokens      *TokenService
	hasher      *PasswordHasher
	revocations tokenRevoker
	activity    activityRecorder
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, tokens *TokenService, hasher *PasswordHasher, revocations tokenRevoker, activity activityRecorder, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if hasher == nil {
		hasher = NewPasswordHasher(nil)
	}
	return &AuthService{
		repo:        repo,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		activity:    activity,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterUser creates a Nasabah account. Any requested role is ignored.
func (s *AuthService) RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.User, error) {
	if err := validation.Struct(s.validator, req, "invalid registration payload"); err != nil {
		return nil, err
	}
	phone, _ := validation.NormalizePhone(req.Phone)

	user := &models.User{
		NIK:   models.StringPtr(strings.TrimSpace(req.NIK)),
		Name:  strings.TrimSpace(req.Name),
		Email: models.StringPtr(strings.TrimSpace(req.Email)),
		Phone: models.StringPtr(phone),
		Role:  models.RoleNasabah,
	}
	return s.register(ctx, user, req.Password, nil)
}

// RegisterAdmin creates a staff account. actor is the authenticated caller, or
// nil for an anonymous request, which is only accepted while no Admin exists.
func (s *AuthService) RegisterAdmin(ctx context.Context, actor *models.User, req models.RegisterAdminRequest) (*models.User, error) {
	if actor == nil {
		admins, err := s.repo.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count administrators")
		}
		if admins > 0 {
			return nil, appErrors.ErrUnauthorized
		}
	} else if err := Authorize(actor.Role, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := validation.Struct(s.validator, req, "invalid registration payload"); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Username: models.StringPtr(strings.TrimSpace(req.Username)),
		Role:     req.Role,
	}
	return s.register(ctx, user, req.Password, actor)
}

func (s *AuthService) register(ctx context.Context, user *models.User, password string, actor *models.User) (*models.User, error) {
	field, err := s.repo.FindDuplicateField(ctx, user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}
	if field != "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, field+" already exists")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if actor == nil {
		actor = user
	}
	s.record(ctx, models.ActivityActionCreate, user, actor)
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// LoginAdmin authenticates a staff account by username.
func (s *AuthService) LoginAdmin(ctx context.Context, req models.AdminLoginRequest) (*models.LoginResponse, error) {
	if err := validation.Struct(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, s.loginLookupError(err)
	}
	if !user.Role.IsStaff() {
		s.metrics.RecordAuthEvent("login", "not_found")
		return nil, errUserNotFound
	}
	return s.login(ctx, user, req.Password, req.IP)
}

// LoginUser authenticates a Nasabah account by email.
func (s *AuthService) LoginUser(ctx context.Context, req models.UserLoginRequest) (*models.LoginResponse, error) {
	if err := validation.Struct(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, s.loginLookupError(err)
	}
	if user.Role != models.RoleNasabah {
		s.metrics.RecordAuthEvent("login", "not_found")
		return nil, errUserNotFound
	}
	return s.login(ctx, user, req.Password, req.IP)
}

func (s *AuthService) loginLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordAuthEvent("login", "not_found")
		return errUserNotFound
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
}

func (s *AuthService) login(ctx context.Context, user *models.User, password, ip string) (*models.LoginResponse, error) {
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordAuthEvent("login", "invalid_password")
		s.logger.Info("login rejected", zap.String("user_id", user.ID), zap.String("ip", ip))
		return nil, appErrors.ErrInvalidCredentials
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUserNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	user.RefreshToken = &refresh

	s.metrics.RecordAuthEvent("login", "success")
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)), zap.String("ip", ip))
	return &models.LoginResponse{User: user, Token: access, RefreshToken: refresh}, nil
}

// Authenticate resolves the account behind a bearer access token.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, appErrors.ErrUnauthorized
	}

	revoked, err := s.revocations.IsRevoked(ctx, raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, appErrors.ErrTokenRevoked
	}

	claims, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		return nil, appErrors.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Refresh exchanges the refresh token held in the cookie for a new pair. The
// presented token is consumed: replaying it afterwards fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.RefreshTokenResponse, error) {
	if refreshToken == "" {
		return nil, appErrors.ErrUnauthorized
	}

	user, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordAuthEvent("refresh", "unknown_token")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil || claims.UserID != user.ID {
		s.metrics.RecordAuthEvent("refresh", "invalid_token")
		return nil, errInvalidRefreshToken
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.repo.RotateRefreshToken(ctx, user.ID, refreshToken, refresh)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	if !rotated {
		s.metrics.RecordAuthEvent("refresh", "lost_race")
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	s.metrics.RecordAuthEvent("refresh", "success")
	return &models.RefreshTokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the access token and drops the caller's stored refresh token
// when the client presented it. Only the revocation is allowed to fail the request.
func (s *AuthService) Logout(ctx context.Context, userID, accessToken, refreshToken string) error {
	if err := s.revocations.Revoke(ctx, accessToken); err != nil {
		return err
	}

	if refreshToken != "" {
		if err := s.repo.ClearRefreshToken(ctx, userID, refreshToken); err != nil {
			s.logger.Warn("failed to clear refresh token on logout", zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.metrics.RecordAuthEvent("logout", "success")
	return nil
}

// Profile reloads the account by id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUserNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one. The
// stored refresh token is dropped so other sessions cannot renew.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := validation.Struct(s.validator, req, "invalid change password payload"); err != nil {
		return err
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "Current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.record(ctx, models.ActivityActionUpdate, user, user)
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// UpdateProfile changes the caller's display name and, for Nasabah accounts, email.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := validation.Struct(s.validator, req, "invalid profile payload"); err != nil {
		return nil, err
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := user.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}

	var email *string
	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		if user.Role != models.RoleNasabah {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid profile payload", []validation.FieldError{
				{Path: "email", Message: "email must not be supplied"},
			})
		}
		taken, err := s.repo.EmailTaken(ctx, trimmed, user.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Email already in use")
		}
		email = &trimmed
	}

	updatedAt := s.now().UTC()
	if err := s.repo.UpdateProfile(ctx, user.ID, name, email, updatedAt); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	user.Name = name
	if email != nil {
		user.Email = email
	}
	user.UpdatedAt = updatedAt

	s.record(ctx, models.ActivityActionUpdate, user, user)
	return user, nil
}

func (s *AuthService) issuePair(user *models.User) (string, string, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *AuthService) record(ctx context.Context, action string, target, actor *models.User) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, models.ActivityLog{
		Action:       action,
		Resource:     models.ActivityResourceUser,
		ResourceName: target.DisplayName(),
		ResourceID:   target.ID,
		UserID:       actor.ID,
		UserName:     actor.DisplayName(),
	})
}
