package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	tokens        map[string]*models.RefreshToken
	revokedAll    []string
	revokedTokens []string
	audits        []*models.AuditLog
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (m *mockAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	m.revokedTokens = append(m.revokedTokens, id)
	for _, stored := range m.tokens {
		if stored.ID == id {
			stored.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func seedAuthUser(t *testing.T, repo *mockAuthRepo, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-1",
		Email:        "mahasiswa@kampus.ac.id",
		PasswordHash: string(hash),
		FullName:     "Budi Santoso",
		Role:         models.RoleStudent,
		RefID:        "2110511001",
		Active:       true,
	}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user
	return user
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test_secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "pengajuan-sa-api",
	})
}

func TestLoginIssuesTokensWithRefID(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "mahasiswa@kampus.ac.id",
		Password: "rahasia123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "2110511001", resp.User.RefID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "2110511001", claims.RefID)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "mahasiswa@kampus.ac.id",
		Password: "salah",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ghost@kampus.ac.id",
		Password: "apapun",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	user := seedAuthUser(t, repo, "rahasia123")
	user.Active = false
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "mahasiswa@kampus.ac.id",
		Password: "rahasia123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "mahasiswa@kampus.ac.id",
		Password: "rahasia123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token has been revoked; replaying it fails.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshExpiredToken(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	svc := newAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutChecksOwnership(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	repo.tokens["tok"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := newAuthService(repo)

	err := svc.Logout(context.Background(), "tok", "someone-else", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "tok", "user-1", models.LoginRequest{}))
	assert.Contains(t, repo.revokedTokens, "rt-1")
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "mahasiswa@kampus.ac.id",
		Password: "rahasia123",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different_secret",
		AccessTokenExpiry: time.Hour,
	})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLoginSingleSessionRevokesPrevious(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(t, repo, "rahasia123")
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test_secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		SingleSession:      true,
	})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "mahasiswa@kampus.ac.id",
		Password: "rahasia123",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, repo.revokedAll)
}
