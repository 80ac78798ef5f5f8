package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type mockAuthRepo struct {
	users     map[string]*models.User
	passwords map[string]string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.passwords == nil {
		m.passwords = map[string]string{}
	}
	m.passwords[id] = passwordHash
	return nil
}

func newAuthFixture(t *testing.T, devLogin bool) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	hashed := string(hash)
	email := "teacher@example.com"
	repo := &mockAuthRepo{users: map[string]*models.User{
		"tch-1": {
			ID:           "tch-1",
			Email:        &email,
			PasswordHash: &hashed,
			FirstName:    "Anna",
			LastName:     "Petrova",
			Role:         models.RoleTeacher,
		},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		DevLogin:   devLogin,
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "tch-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmailSameError(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceDevLoginDisabled(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	_, err := svc.DevLogin(context.Background(), models.DevLoginRequest{Email: "teacher@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceDevLoginEnabled(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	resp, err := svc.DevLogin(context.Background(), models.DevLoginRequest{Email: "teacher@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.Token + "x")
	require.Error(t, err)
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo := newAuthFixture(t, false)

	err := svc.ChangePassword(context.Background(), "tch-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "evenmoresecret",
	})
	require.NoError(t, err)
	require.Contains(t, repo.passwords, "tch-1")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwords["tch-1"]), []byte("evenmoresecret")))
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	svc, repo := newAuthFixture(t, false)

	err := svc.ChangePassword(context.Background(), "tch-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "evenmoresecret",
	})
	require.Error(t, err)
	assert.Empty(t, repo.passwords)
}
