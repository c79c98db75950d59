package repository

import (
	"context"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/auth/model"
)

// StaffRepository là data access cho staff account
type StaffRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.StaffAccount, error)
	FindByPhone(ctx context.Context, phone string) (*model.StaffAccount, error)
	Insert(ctx context.Context, s *model.StaffAccount) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.StaffAccount, error)
}
