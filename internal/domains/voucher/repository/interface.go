package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/voucher/model"
	"loyalty-backend/internal/shared/utils"
)

// ClaimParams gom tham số cho thao tác claim atomic
type ClaimParams struct {
	VoucherID   uuid.UUID
	ApprovedBy  uuid.UUID
	SpentAmount int64
	UsedAt      time.Time
}

// BulkBindParams gom tham số cho bulk bind atomic
type BulkBindParams struct {
	VoucherName  string
	PhoneNumbers []string // đã normalize, match theo thứ tự
	ExpiryDate   time.Time
	ApprovedAt   time.Time
}

// VoucherRepository là data access cho voucher + redemption ledger.
// Các method nhiều write (Claim, BulkBind) tự chạy trong một transaction -
// hoặc commit trọn vẹn hoặc không ghi gì.
type VoucherRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	FindByCode(ctx context.Context, code string) (*model.Voucher, error)

	// LiveCodes trả về uniqueness set cho code generator: code của mọi
	// voucher chưa xóa ở status available/active.
	LiveCodes(ctx context.Context) (map[string]struct{}, error)

	Insert(ctx context.Context, v *model.Voucher) error
	// InsertBatch chèn cả lô trong một transaction - mọi code đã được
	// sinh trước khi gọi, tránh uniqueness violation giữa chừng.
	InsertBatch(ctx context.Context, vouchers []*model.Voucher) error

	// Bind chuyển available → active, guard bằng status trong SQL
	Bind(ctx context.Context, id uuid.UUID, phone string, expiry, approvedAt time.Time) error

	// BulkBind gán N voucher available cùng tên cho N số điện thoại,
	// all-or-nothing. Trả *model.InsufficientVouchersError khi thiếu.
	BulkBind(ctx context.Context, params BulkBindParams) ([]model.Voucher, error)

	RequestClaim(ctx context.Context, id uuid.UUID, at time.Time) error

	// Claim là atomic unit: update voucher → claimed, và nếu voucher có
	// khách gán thì insert redemption + cộng total_spending của khách.
	Claim(ctx context.Context, params ClaimParams) (*model.Voucher, error)

	UpdateExpiry(ctx context.Context, id uuid.UUID, expiry *time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	List(ctx context.Context, filter model.ListFilter, p utils.Pagination) ([]model.VoucherResponse, int, error)

	// ListRedemptions đọc ledger của một khách (mới nhất trước)
	ListRedemptions(ctx context.Context, customerPhone string, p utils.Pagination) ([]model.Redemption, int, error)

	// CountExpiredSince đếm voucher active có expiry_date rơi vào (since, now] -
	// dùng cho báo cáo định kỳ phía worker.
	CountExpiredSince(ctx context.Context, since, now time.Time) (int, error)
}
