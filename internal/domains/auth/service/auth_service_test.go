package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"loyalty-backend/internal/domains/audit"
	"loyalty-backend/internal/domains/auth/model"
	"loyalty-backend/internal/shared"
	"loyalty-backend/pkg/jwt"
)

type fakeStaffRepo struct {
	accounts map[uuid.UUID]*model.StaffAccount
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{accounts: map[uuid.UUID]*model.StaffAccount{}}
}

func (f *fakeStaffRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StaffAccount, error) {
	s, ok := f.accounts[id]
	if !ok {
		return nil, model.ErrStaffNotFound
	}
	return s, nil
}

func (f *fakeStaffRepo) FindByPhone(ctx context.Context, phone string) (*model.StaffAccount, error) {
	for _, s := range f.accounts {
		if s.Phone == phone {
			return s, nil
		}
	}
	return nil, model.ErrStaffNotFound
}

func (f *fakeStaffRepo) Insert(ctx context.Context, s *model.StaffAccount) error {
	for _, existing := range f.accounts {
		if existing.Phone == s.Phone {
			return model.ErrPhoneTaken
		}
	}
	cp := *s
	f.accounts[s.ID] = &cp
	return nil
}

func (f *fakeStaffRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	if s, ok := f.accounts[id]; ok {
		now := time.Now()
		s.LastLoginAt = &now
	}
	return nil
}

func (f *fakeStaffRepo) List(ctx context.Context) ([]model.StaffAccount, error) {
	var result []model.StaffAccount
	for _, s := range f.accounts {
		result = append(result, *s)
	}
	return result, nil
}

func newTestService(t *testing.T) (ServiceInterface, *fakeStaffRepo, *jwt.Manager) {
	t.Helper()
	repo := newFakeStaffRepo()
	manager := jwt.NewManager("test-secret", 15, 168)
	return NewAuthService(repo, manager, audit.NopSink{}), repo, manager
}

func seedStaff(t *testing.T, repo *fakeStaffRepo, phone, password, role string, active bool) *model.StaffAccount {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	staff := &model.StaffAccount{
		ID:           uuid.New(),
		Phone:        phone,
		Name:         "Test Staff",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, repo.Insert(context.Background(), staff))
	return staff
}

func TestLogin_Success(t *testing.T) {
	svc, repo, manager := newTestService(t)
	seedStaff(t, repo, "912345678", "secret-password", shared.RoleStaff, true)

	result, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "0912345678", // normalize về số đã lưu
		Password: "secret-password",
	})
	require.NoError(t, err)

	claims, err := manager.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, shared.RoleStaff, claims.Role)

	refreshClaims, err := manager.ValidateToken(result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
}

func TestLogin_ExpiresAtFollowsConfiguredExpiry(t *testing.T) {
	repo := newFakeStaffRepo()
	manager := jwt.NewManager("test-secret", 45, 168)
	svc := NewAuthService(repo, manager, audit.NopSink{})
	seedStaff(t, repo, "912345678", "secret-password", shared.RoleStaff, true)

	result, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "912345678",
		Password: "secret-password",
	})
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(45*time.Minute), result.ExpiresAt, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedStaff(t, repo, "912345678", "secret-password", shared.RoleStaff, true)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "912345678",
		Password: "not-the-password",
	})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestLogin_UnknownPhoneSameError(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "912345678",
		Password: "whatever",
	})
	// Không phân biệt với sai mật khẩu
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedStaff(t, repo, "912345678", "secret-password", shared.RoleStaff, false)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "912345678",
		Password: "secret-password",
	})
	assert.ErrorIs(t, err, model.ErrStaffInactive)
}

func TestRefreshToken_AccessTokenRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedStaff(t, repo, "912345678", "secret-password", shared.RoleStaff, true)

	result, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "912345678",
		Password: "secret-password",
	})
	require.NoError(t, err)

	// Access token không dùng được cho refresh
	_, err = svc.RefreshToken(context.Background(), &model.RefreshTokenRequest{
		RefreshToken: result.AccessToken,
	})
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestRefreshToken_IssuesNewPair(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedStaff(t, repo, "912345678", "secret-password", shared.RoleAdmin, true)

	login, err := svc.Login(context.Background(), &model.LoginRequest{
		Phone:    "912345678",
		Password: "secret-password",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), &model.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEmpty(t, refreshed.RefreshToken)
}

func TestCreateStaff_HashesPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	actor := shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}

	staff, err := svc.CreateStaff(context.Background(), &model.CreateStaffRequest{
		Phone:    "0987654321",
		Name:     "New Staff",
		Password: "strong-password",
		Role:     shared.RoleStaff,
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, "987654321", staff.Phone)
	assert.NotEqual(t, "strong-password", staff.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte("strong-password")))

	stored, err := repo.FindByPhone(context.Background(), "987654321")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}
