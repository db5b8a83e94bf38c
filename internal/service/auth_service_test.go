package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/domain"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

type authEnv struct {
	svc       *AuthService
	users     *fakeUserRepo
	staff     *fakeStaffRepo
	externals *fakeExternalRepo
	resets    *fakeResetRepo
}

func newAuthEnv() *authEnv {
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 60
	cfg.Auth.PasswordResetTTLMinutes = 30
	cfg.Auth.BcryptCost = 4

	users := newFakeUserRepo()
	staff := &fakeStaffRepo{members: make(map[string]*domain.StaffMember)}
	externals := &fakeExternalRepo{users: make(map[string]*domain.ExternalUser)}
	resets := newFakeResetRepo()

	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		StaffRepo:         staff,
		ExternalRepo:      externals,
		PasswordResetRepo: resets,
	})
	return &authEnv{svc: svc, users: users, staff: staff, externals: externals, resets: resets}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	return hash
}

func TestRegisterUser(t *testing.T) {
	env := newAuthEnv()

	user, token, exp, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	// Password never stored in clear.
	stored, err := env.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)
	assert.NoError(t, auth.ComparePassword(stored.PasswordHash, "s3cret-pass"))
}

func TestRegisterUserRejectsShortPassword(t *testing.T) {
	env := newAuthEnv()

	_, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "short")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	env := newAuthEnv()

	_, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, _, err = env.svc.RegisterUser(context.Background(), "Maria", "mario@example.com", "other-pass")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestLoginUser(t *testing.T) {
	env := newAuthEnv()
	_, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "s3cret-pass")
	require.NoError(t, err)

	user, token, _, err := env.svc.LoginUser(context.Background(), "mario@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "mario@example.com", user.Email)
	assert.NotEmpty(t, token)

	_, _, _, err = env.svc.LoginUser(context.Background(), "mario@example.com", "wrong")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	_, _, _, err = env.svc.LoginUser(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestLoginStaff(t *testing.T) {
	env := newAuthEnv()
	env.staff.members["staff-1"] = &domain.StaffMember{
		ID:           "staff-1",
		Email:        "ops@city.example",
		PasswordHash: mustHash(t, "staff-pass"),
		RoleName:     "waste operator",
		Active:       true,
	}

	staff, token, _, err := env.svc.LoginStaff(context.Background(), "ops@city.example", "staff-pass")
	require.NoError(t, err)
	assert.Equal(t, "waste operator", staff.RoleName)

	claims, err := env.svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	require.NotNil(t, claims.Role)
	assert.Equal(t, "waste operator", *claims.Role)
}

func TestLoginStaffInactive(t *testing.T) {
	env := newAuthEnv()
	env.staff.members["staff-1"] = &domain.StaffMember{
		ID:           "staff-1",
		Email:        "ops@city.example",
		PasswordHash: mustHash(t, "staff-pass"),
		RoleName:     "waste operator",
		Active:       false,
	}

	_, _, _, err := env.svc.LoginStaff(context.Background(), "ops@city.example", "staff-pass")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestLoginExternal(t *testing.T) {
	env := newAuthEnv()
	env.externals.users["ext-1"] = &domain.ExternalUser{
		ID:           "ext-1",
		Email:        "crew@maintainer.example",
		PasswordHash: mustHash(t, "ext-pass"),
		CompanyID:    "company-1",
		Active:       true,
	}

	external, token, _, err := env.svc.LoginExternal(context.Background(), "crew@maintainer.example", "ext-pass")
	require.NoError(t, err)
	assert.Equal(t, "company-1", external.CompanyID)
	assert.NotEmpty(t, token)

	env.externals.users["ext-1"].Active = false
	_, _, _, err = env.svc.LoginExternal(context.Background(), "crew@maintainer.example", "ext-pass")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestPasswordResetFlow(t *testing.T) {
	env := newAuthEnv()
	_, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "old-pass")
	require.NoError(t, err)

	token, err := env.svc.RequestPasswordReset(context.Background(), "mario@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(domain.SubjectTypeUser), token.SubjectType)
	assert.NotEmpty(t, token.Token)

	require.NoError(t, env.svc.ConfirmPasswordReset(context.Background(), token.Token, "new-pass"))

	_, _, _, err = env.svc.LoginUser(context.Background(), "mario@example.com", "old-pass")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
	_, _, _, err = env.svc.LoginUser(context.Background(), "mario@example.com", "new-pass")
	assert.NoError(t, err)

	// Tokens are single use.
	err = env.svc.ConfirmPasswordReset(context.Background(), token.Token, "another-pass")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestPasswordResetSupersedesPriorToken(t *testing.T) {
	env := newAuthEnv()
	_, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "old-pass")
	require.NoError(t, err)

	first, err := env.svc.RequestPasswordReset(context.Background(), "mario@example.com")
	require.NoError(t, err)
	second, err := env.svc.RequestPasswordReset(context.Background(), "mario@example.com")
	require.NoError(t, err)

	err = env.svc.ConfirmPasswordReset(context.Background(), first.Token, "new-pass")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.NoError(t, env.svc.ConfirmPasswordReset(context.Background(), second.Token, "new-pass"))
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newAuthEnv()

	_, err := env.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestPasswordResetExpiredToken(t *testing.T) {
	env := newAuthEnv()
	_, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "old-pass")
	require.NoError(t, err)

	token, err := env.svc.RequestPasswordReset(context.Background(), "mario@example.com")
	require.NoError(t, err)
	env.resets.tokens[token.ID].ExpiresAt = time.Now().Add(-time.Minute)

	err = env.svc.ConfirmPasswordReset(context.Background(), token.Token, "new-pass")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestPasswordResetInvalidToken(t *testing.T) {
	env := newAuthEnv()

	err := env.svc.ConfirmPasswordReset(context.Background(), "no-such-token", "new-pass")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestChangePassword(t *testing.T) {
	env := newAuthEnv()
	user, _, _, err := env.svc.RegisterUser(context.Background(), "Mario", "mario@example.com", "old-pass")
	require.NoError(t, err)
	subject := AuthSubject{Type: domain.SubjectTypeUser, ID: user.ID}

	err = env.svc.ChangePassword(context.Background(), subject, "wrong", "new-pass")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	require.NoError(t, env.svc.ChangePassword(context.Background(), subject, "old-pass", "new-pass"))
	_, _, _, err = env.svc.LoginUser(context.Background(), "mario@example.com", "new-pass")
	assert.NoError(t, err)
}

func TestChangePasswordExternalSubject(t *testing.T) {
	env := newAuthEnv()
	env.externals.users["ext-1"] = &domain.ExternalUser{
		ID:           "ext-1",
		Email:        "crew@maintainer.example",
		PasswordHash: mustHash(t, "ext-pass"),
		Active:       true,
	}
	subject := AuthSubject{Type: domain.SubjectTypeExternal, ID: "ext-1"}

	require.NoError(t, env.svc.ChangePassword(context.Background(), subject, "ext-pass", "rotated-pass"))
}