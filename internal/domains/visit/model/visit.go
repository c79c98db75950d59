package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Visit là một ô trên stamp card của khách. Mỗi lần ghé cửa hàng được
// nhân viên ghi nhận một visit; đủ thẻ thì đổi thưởng, các visit tham
// gia thưởng bị đóng băng vĩnh viễn.
type Visit struct {
	ID            uuid.UUID `json:"id" db:"id"`
	CustomerPhone string    `json:"customer_phone" db:"customer_phone"`
	ProcessedBy   uuid.UUID `json:"processed_by" db:"processed_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Revocation - một visit ghi nhầm có thể bị thu hồi, trừ khi đã
	// tham gia vào một reward.
	RevokedAt        *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedBy        *uuid.UUID `json:"revoked_by,omitempty" db:"revoked_by"`
	RevocationReason *string    `json:"revocation_reason,omitempty" db:"revocation_reason"`

	// Reward consumption
	IsRewardGenerated bool       `json:"is_reward_generated" db:"is_reward_generated"`
	RewardVoucherID   *uuid.UUID `json:"reward_voucher_id,omitempty" db:"reward_voucher_id"`

	// Code của voucher thưởng, join từ bảng vouchers khi đọc -
	// không phải cột của visits.
	RewardVoucherCode *string `json:"reward_voucher_code,omitempty" db:"-"`
}

// IsActive - visit còn đếm vào thẻ hiện tại: chưa thu hồi, chưa đổi thưởng.
func (v *Visit) IsActive() bool {
	return v.RevokedAt == nil && !v.IsRewardGenerated
}

// Progress là trạng thái thẻ hiện tại của một khách.
type Progress struct {
	CustomerPhone string `json:"customer_phone"`
	ActiveVisits  int    `json:"active_visits"`
	CardSize      int    `json:"card_size"`
	RewardReady   bool   `json:"reward_ready"`

	// Voucher thưởng gần nhất (nếu có), để nhân viên đọc code cho khách.
	LastRewardVoucherID   *uuid.UUID `json:"last_reward_voucher_id,omitempty"`
	LastRewardVoucherCode *string    `json:"last_reward_voucher_code,omitempty"`

	// Toàn bộ lịch sử visit (kể cả đã thu hồi và đã đổi thưởng),
	// mới nhất trước, kèm code voucher thưởng nếu có.
	History []Visit `json:"history"`
}

// =====================================================
// ERROR DEFINITIONS
// =====================================================
const (
	ErrCodeVisitNotFound    = "VIS001"
	ErrCodeCardFull         = "VIS002"
	ErrCodeCardNotFull      = "VIS003"
	ErrCodeAlreadyRevoked   = "VIS004"
	ErrCodeVisitImmutable   = "VIS005"
	ErrCodeValidationFailed = "VIS006"
	ErrCodeRevokeForbidden  = "VIS007"
)

var (
	ErrVisitNotFound   = errors.New("visit not found")
	ErrCardFull        = errors.New("stamp card is full, issue the reward first")
	ErrCardNotFull     = errors.New("stamp card is not full yet")
	ErrAlreadyRevoked  = errors.New("visit already revoked")
	ErrVisitImmutable  = errors.New("visit already consumed by a reward")
	ErrRevokeForbidden = errors.New("only administrators can revoke visits")
)

type VisitError struct {
	Code    string
	Message string
	Err     error
}

func (e *VisitError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *VisitError) Unwrap() error {
	return e.Err
}

func NewVisitError(code, message string, err error) *VisitError {
	return &VisitError{Code: code, Message: message, Err: err}
}
