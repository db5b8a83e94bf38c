package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/repository"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// AuthSubject identifies the caller when changing password.
type AuthSubject struct {
	Type domain.SubjectType
	ID   string
}

// AuthService coordinates registration and login flows for citizens, staff
// and external maintainers.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	externals  repository.ExternalUserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	StaffRepo         repository.StaffRepository
	ExternalRepo      repository.ExternalUserRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		externals:  deps.ExternalRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterUser creates a new citizen account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return nil, "", time.Time{}, apperrors.NewValidationError(err.Error(), nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates a citizen.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff account inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, &staff.RoleName)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return staff, token, exp, nil
}

// LoginExternal authenticates a company maintainer.
func (s *AuthService) LoginExternal(ctx context.Context, email, password string) (*domain.ExternalUser, string, time.Time, error) {
	external, err := s.externals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !external.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("maintainer account inactive")
	}
	if err := auth.ComparePassword(external.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(external.ID, domain.SubjectTypeExternal, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return external, token, exp, nil
}

// RequestPasswordReset persists a reset token for any account type owning
// the email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	subjectType, subjectID, err := s.subjectByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		SubjectType: string(subjectType),
		SubjectID:   subjectID,
		Token:       uuid.NewString(),
		ExpiresAt:   time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *AuthService) subjectByEmail(ctx context.Context, email string) (domain.SubjectType, string, error) {
	if user, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.SubjectTypeUser, user.ID, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", "", err
	}
	if staff, err := s.staff.GetByEmail(ctx, email); err == nil {
		return domain.SubjectTypeStaff, staff.ID, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", "", err
	}
	external, err := s.externals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", apperrors.NewNotFound("account", map[string]any{"email": email})
		}
		return "", "", err
	}
	return domain.SubjectTypeExternal, external.ID, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("invalid reset token", nil)
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or already used", nil)
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.setPasswordHash(ctx, AuthSubject{Type: domain.SubjectType(token.SubjectType), ID: token.SubjectID}, hash); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies the current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject AuthSubject, currentPassword, newPassword string) error {
	current, err := s.currentPasswordHash(ctx, subject)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(current, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password does not match")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.setPasswordHash(ctx, subject, hash)
}

func (s *AuthService) currentPasswordHash(ctx context.Context, subject AuthSubject) (string, error) {
	switch subject.Type {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, subject.ID)
		if err != nil {
			return "", err
		}
		return user.PasswordHash, nil
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return "", err
		}
		return staff.PasswordHash, nil
	case domain.SubjectTypeExternal:
		external, err := s.externals.GetByID(ctx, subject.ID)
		if err != nil {
			return "", err
		}
		return external.PasswordHash, nil
	default:
		return "", errors.New("unknown subject")
	}
}

func (s *AuthService) setPasswordHash(ctx context.Context, subject AuthSubject, hash string) error {
	switch subject.Type {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, subject.ID)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		return s.users.Update(ctx, user)
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return err
		}
		staff.PasswordHash = hash
		return s.staff.Update(ctx, staff)
	case domain.SubjectTypeExternal:
		external, err := s.externals.GetByID(ctx, subject.ID)
		if err != nil {
			return err
		}
		external.PasswordHash = hash
		return s.externals.Update(ctx, external)
	default:
		return errors.New("unknown subject type")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
