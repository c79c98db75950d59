package model

import (
	"errors"
	"fmt"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeVoucherNotFound      = "VCH001"
	ErrCodeAlreadyClaimed       = "VCH002"
	ErrCodeNotActive            = "VCH003"
	ErrCodeNotAvailable         = "VCH004"
	ErrCodeCodeCollision        = "VCH005"
	ErrCodeInsufficientVouchers = "VCH006"
	ErrCodeValidationFailed     = "VCH007"
	ErrCodeVoucherExpired       = "VCH008"
	ErrCodeTemplateNotFound     = "VCH009"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrAlreadyClaimed  = errors.New("voucher already claimed")
	ErrNotActive       = errors.New("voucher is not active")
	ErrNotAvailable    = errors.New("voucher is not available for binding")
	ErrVoucherExpired  = errors.New("voucher has expired")
	// ErrCodeTaken: unique constraint trên code từ chối insert.
	// Caller nên retry issuance - benign race giữa hai request cùng chọn một code.
	ErrCodeTaken        = errors.New("voucher code already taken")
	ErrTemplateNotFound = errors.New("voucher template not found")
)

// InsufficientVouchersError báo bulk bind thiếu voucher available.
// Mang theo số lượng để caller hiển thị "cần N, chỉ còn M".
type InsufficientVouchersError struct {
	Requested int
	Available int
}

func (e *InsufficientVouchersError) Error() string {
	return fmt.Sprintf("not enough available vouchers: requested %d, only %d available",
		e.Requested, e.Available)
}

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================
type VoucherError struct {
	Code    string
	Message string
	Err     error
}

func (e *VoucherError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *VoucherError) Unwrap() error {
	return e.Err
}

// NewVoucherError creates a new VoucherError
func NewVoucherError(code, message string, err error) *VoucherError {
	return &VoucherError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
