package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/audit"
	"loyalty-backend/internal/domains/customer/model"
	"loyalty-backend/internal/domains/customer/repository"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
)

// =============================================================================
// CUSTOMER SERVICE
// =============================================================================

type ServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCustomerRequest, actor shared.Actor) (*model.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*model.Customer, error)
	List(ctx context.Context, search string, p utils.Pagination) ([]model.Customer, int, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateCustomerRequest, actor shared.Actor) (*model.Customer, error)
	Delete(ctx context.Context, id uuid.UUID, actor shared.Actor) error
}

type customerService struct {
	repo  repository.CustomerRepository
	audit audit.Sink
}

func NewCustomerService(repo repository.CustomerRepository, auditSink audit.Sink) ServiceInterface {
	return &customerService{repo: repo, audit: auditSink}
}

func (s *customerService) Create(ctx context.Context, req *model.CreateCustomerRequest, actor shared.Actor) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewCustomerError(model.ErrCodeValidationFailed, err.Error(), err)
	}

	phone := utils.NormalizePhone(req.PhoneNumber)

	now := time.Now()
	customer := &model.Customer{
		ID:          uuid.New(),
		PhoneNumber: phone,
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, customer); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "customer.create", map[string]interface{}{
		"customer_id":  customer.ID.String(),
		"phone_number": customer.PhoneNumber,
	}, actor)

	return customer, nil
}

func (s *customerService) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *customerService) GetByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	return s.repo.FindByPhone(ctx, utils.NormalizePhone(phone))
}

func (s *customerService) List(ctx context.Context, search string, p utils.Pagination) ([]model.Customer, int, error) {
	return s.repo.List(ctx, search, p)
}

// Update đổi thông tin khách hàng. Nếu số điện thoại (sau normalize) thay đổi
// thì chuyển qua rebind coordinator để re-key các voucher đang gán số cũ.
func (s *customerService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateCustomerRequest, actor shared.Actor) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewCustomerError(model.ErrCodeValidationFailed, err.Error(), err)
	}

	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPhone := customer.PhoneNumber

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.DateOfBirth != nil {
		customer.DateOfBirth = req.DateOfBirth
	}
	if req.PhoneNumber != nil {
		customer.PhoneNumber = utils.NormalizePhone(*req.PhoneNumber)
	}
	customer.UpdatedAt = time.Now()

	if customer.PhoneNumber != oldPhone {
		if err := s.repo.RebindPhone(ctx, customer, oldPhone); err != nil {
			return nil, err
		}
		s.audit.Record(ctx, "customer.rebind_phone", map[string]interface{}{
			"customer_id": customer.ID.String(),
			"old_phone":   oldPhone,
			"new_phone":   customer.PhoneNumber,
		}, actor)
		return customer, nil
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "customer.update", map[string]interface{}{
		"customer_id": customer.ID.String(),
	}, actor)

	return customer, nil
}

func (s *customerService) Delete(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, "customer.delete", map[string]interface{}{
		"customer_id": id.String(),
	}, actor)

	return nil
}
