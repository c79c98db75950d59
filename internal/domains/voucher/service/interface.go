package service

import (
	"context"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/voucher/model"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
)

// ServiceInterface là contract của voucher service.
// Actor luôn là tham số tường minh - không có ambient "current user".
type ServiceInterface interface {
	Create(ctx context.Context, actor shared.Actor, req *model.CreateVoucherRequest) (*model.VoucherResponse, error)
	CreateBatch(ctx context.Context, actor shared.Actor, req *model.CreateVoucherBatchRequest) ([]model.VoucherResponse, error)

	Bind(ctx context.Context, actor shared.Actor, req *model.BindVoucherRequest) (*model.Voucher, error)
	BulkBind(ctx context.Context, actor shared.Actor, req *model.BulkBindRequest) ([]model.Voucher, error)

	RequestClaim(ctx context.Context, actor shared.Actor, voucherID uuid.UUID) error
	Claim(ctx context.Context, actor shared.Actor, voucherID uuid.UUID, req *model.ClaimVoucherRequest) (*model.Voucher, error)

	Update(ctx context.Context, actor shared.Actor, voucherID uuid.UUID, req *model.UpdateVoucherRequest) error
	Delete(ctx context.Context, actor shared.Actor, voucherID uuid.UUID) error

	GetByID(ctx context.Context, voucherID uuid.UUID) (*model.Voucher, error)
	List(ctx context.Context, filter model.ListFilter, p utils.Pagination) ([]model.VoucherResponse, int, error)
	ListRedemptions(ctx context.Context, customerPhone string, p utils.Pagination) ([]model.Redemption, int, error)
}
