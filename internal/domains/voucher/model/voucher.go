package model

import (
	"time"

	"github.com/google/uuid"
)

// VoucherStatus represents the lifecycle state of a voucher
type VoucherStatus string

const (
	StatusAvailable VoucherStatus = "available" // đã phát hành, chưa gán cho khách
	StatusActive    VoucherStatus = "active"    // đã gán cho khách, có expiry, chưa dùng
	StatusClaimed   VoucherStatus = "claimed"   // đã dùng tại cửa hàng - terminal state
)

func (s VoucherStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusActive, StatusClaimed:
		return true
	}
	return false
}

// Voucher là một mã thưởng phát cho khách hàng.
//
// State machine: available → active → claimed, chỉ đi tới.
// Expiry không phải một status riêng - so sánh expiry_date với
// thời điểm đọc để biết voucher active còn dùng được hay không.
type Voucher struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Code       string     `json:"code" db:"code"`
	TemplateID *uuid.UUID `json:"template_id,omitempty" db:"template_id"`

	Status VoucherStatus `json:"status" db:"status"`

	// Số điện thoại khách được gán (đã normalize, bỏ số 0 đầu).
	// NULL khi status=available.
	BindedToPhone *string `json:"binded_to_phone_number,omitempty" db:"binded_to_phone_number"`

	ExpiryDate       *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy       *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	UsedAt           *time.Time `json:"used_at,omitempty" db:"used_at"`
	ClaimRequestedAt *time.Time `json:"claim_requested_at,omitempty" db:"claim_requested_at"`

	// Số tiền khách chi khi claim, đơn vị nhỏ nhất (đồng)
	SpentAmount int64 `json:"spent_amount" db:"spent_amount"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Redemption là một dòng ledger bất biến, ghi lại một lần claim
// có khách hàng gán kèm. Core không bao giờ update/delete dòng này.
type Redemption struct {
	ID            uuid.UUID `json:"id" db:"id"`
	VoucherID     uuid.UUID `json:"voucher_id" db:"voucher_id"`
	CustomerPhone string    `json:"customer_phone_number" db:"customer_phone_number"`
	Amount        int64     `json:"amount" db:"amount"`
	ProcessedBy   uuid.UUID `json:"processed_by" db:"processed_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IsDeleted reports whether the voucher has been soft-deleted
func (v *Voucher) IsDeleted() bool {
	return v.DeletedAt != nil
}

// IsExpired reports whether an active voucher has passed its expiry date.
// Vouchers without an expiry date never expire.
func (v *Voucher) IsExpired(now time.Time) bool {
	return v.ExpiryDate != nil && v.ExpiryDate.Before(now)
}

// IsLive reports whether the code of this voucher blocks new code generation.
// Chỉ available/active (chưa xóa) mới giữ chỗ trong code pool - code của
// voucher claimed/deleted được phép tái sử dụng.
func (v *Voucher) IsLive() bool {
	if v.IsDeleted() {
		return false
	}
	return v.Status == StatusAvailable || v.Status == StatusActive
}

// CanBind reports whether the voucher can transition available → active
func (v *Voucher) CanBind() bool {
	return !v.IsDeleted() && v.Status == StatusAvailable
}

// CanRequestClaim reports whether a customer may flag this voucher for claim
func (v *Voucher) CanRequestClaim(now time.Time) bool {
	return !v.IsDeleted() && v.Status == StatusActive && !v.IsExpired(now)
}

// CanClaim reports whether staff may redeem this voucher.
// Mọi status trừ claimed đều claim được (kể cả available - staff có thể
// redeem voucher chưa gán khách, khi đó không ghi ledger).
func (v *Voucher) CanClaim() bool {
	return !v.IsDeleted() && v.Status != StatusClaimed
}
