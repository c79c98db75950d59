package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// StaffAccount là tài khoản nhân viên/admin vận hành chương trình.
// Khách hàng không có tài khoản - họ được định danh qua số điện thoại.
type StaffAccount struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Phone        string     `json:"phone" db:"phone"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// =====================================================
// ERROR DEFINITIONS
// =====================================================
const (
	ErrCodeInvalidCredentials = "AUTH001"
	ErrCodeStaffInactive      = "AUTH002"
	ErrCodeStaffNotFound      = "AUTH003"
	ErrCodePhoneTaken         = "AUTH004"
	ErrCodeInvalidToken       = "AUTH005"
	ErrCodeValidationFailed   = "AUTH006"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone or password")
	ErrStaffInactive      = errors.New("staff account is inactive")
	ErrStaffNotFound      = errors.New("staff account not found")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ========================================
// AUTH DTOs
// ========================================

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required.Error("phone is required")),
		validation.Field(&r.Password, validation.Required.Error("password is required")),
	)
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Staff        StaffAccount `json:"staff"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required.Error("refresh_token is required")),
	)
}

// CreateStaffRequest - admin tạo tài khoản nhân viên mới
type CreateStaffRequest struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r CreateStaffRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone,
			validation.Required.Error("phone is required"),
			validation.Length(8, 15),
		),
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 200),
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 72),
		),
		validation.Field(&r.Role,
			validation.Required.Error("role is required"),
			validation.In("admin", "staff").Error("role must be admin or staff"),
		),
	)
}
