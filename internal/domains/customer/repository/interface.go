package repository

import (
	"context"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/customer/model"
	"loyalty-backend/internal/shared/utils"
)

// CustomerRepository là data access cho customer store.
// Mọi lookup đều filter soft-deleted rows.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*model.Customer, error)
	List(ctx context.Context, search string, p utils.Pagination) ([]model.Customer, int, error)

	Insert(ctx context.Context, c *model.Customer) error
	Update(ctx context.Context, c *model.Customer) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// RebindPhone là atomic unit của rebind coordinator: re-key mọi
	// voucher chưa xóa đang gán oldPhone sang newPhone, kèm update chính
	// customer record, trong một transaction.
	RebindPhone(ctx context.Context, c *model.Customer, oldPhone string) error
}
