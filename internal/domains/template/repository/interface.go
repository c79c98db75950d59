package repository

import (
	"context"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/template/model"
)

// TemplateRepository là data access cho voucher template
type TemplateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Template, error)
	FindByName(ctx context.Context, name string) (*model.Template, error)

	// FindDefault trả về template cũ nhất - dùng cho reward không chỉ
	// định template.
	FindDefault(ctx context.Context) (*model.Template, error)

	List(ctx context.Context) ([]model.Template, error)
	Insert(ctx context.Context, t *model.Template) error
	Update(ctx context.Context, t *model.Template) error
	Delete(ctx context.Context, id uuid.UUID) error
}
