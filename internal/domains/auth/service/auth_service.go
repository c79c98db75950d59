package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"loyalty-backend/internal/domains/audit"
	"loyalty-backend/internal/domains/auth/model"
	"loyalty-backend/internal/domains/auth/repository"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
	"loyalty-backend/pkg/jwt"
)

// =============================================================================
// AUTH SERVICE
// =============================================================================

type ServiceInterface interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	RefreshToken(ctx context.Context, req *model.RefreshTokenRequest) (*model.LoginResponse, error)
	CreateStaff(ctx context.Context, req *model.CreateStaffRequest, actor shared.Actor) (*model.StaffAccount, error)
	ListStaff(ctx context.Context) ([]model.StaffAccount, error)
}

type authService struct {
	repo       repository.StaffRepository
	jwtManager *jwt.Manager
	audit      audit.Sink
}

func NewAuthService(repo repository.StaffRepository, jwtManager *jwt.Manager, auditSink audit.Sink) ServiceInterface {
	return &authService{repo: repo, jwtManager: jwtManager, audit: auditSink}
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Không phân biệt "phone không tồn tại" và "sai mật khẩu" trong
	// response - tránh lộ danh sách tài khoản.
	staff, err := s.repo.FindByPhone(ctx, utils.NormalizePhone(req.Phone))
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if !staff.IsActive {
		return nil, model.ErrStaffInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, staff)
}

func (s *authService) RefreshToken(ctx context.Context, req *model.RefreshTokenRequest) (*model.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil || claims.Type != "refresh" {
		return nil, model.ErrInvalidToken
	}

	staffID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, model.ErrInvalidToken
	}

	staff, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		return nil, model.ErrInvalidToken
	}
	if !staff.IsActive {
		return nil, model.ErrStaffInactive
	}

	return s.issueTokens(ctx, staff)
}

func (s *authService) issueTokens(ctx context.Context, staff *model.StaffAccount) (*model.LoginResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(staff.ID.String(), staff.Phone, staff.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(staff.ID.String())
	if err != nil {
		return nil, err
	}

	// Best-effort, login không fail vì cột last_login_at
	_ = s.repo.UpdateLastLogin(ctx, staff.ID)

	return &model.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.jwtManager.AccessExpiry()),
		Staff:        *staff,
	}, nil
}

func (s *authService) CreateStaff(ctx context.Context, req *model.CreateStaffRequest, actor shared.Actor) (*model.StaffAccount, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// bcrypt cost 12
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	staff := &model.StaffAccount{
		ID:           uuid.New(),
		Phone:        utils.NormalizePhone(req.Phone),
		Name:         req.Name,
		PasswordHash: string(passwordHash),
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, staff); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "auth.create_staff", map[string]interface{}{
		"staff_id": staff.ID.String(),
		"role":     staff.Role,
	}, actor)

	return staff, nil
}

func (s *authService) ListStaff(ctx context.Context) ([]model.StaffAccount, error) {
	return s.repo.List(ctx)
}
