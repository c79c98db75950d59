package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/audit"
	customerrepo "loyalty-backend/internal/domains/customer/repository"
	templatemodel "loyalty-backend/internal/domains/template/model"
	templaterepo "loyalty-backend/internal/domains/template/repository"
	"loyalty-backend/internal/domains/visit/model"
	"loyalty-backend/internal/domains/visit/repository"
	vouchermodel "loyalty-backend/internal/domains/voucher/model"
	voucherrepo "loyalty-backend/internal/domains/voucher/repository"
	voucherservice "loyalty-backend/internal/domains/voucher/service"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
)

// =============================================================================
// VISIT SERVICE (stamp card engine)
// =============================================================================

type ServiceInterface interface {
	RecordVisit(ctx context.Context, req *model.RecordVisitRequest, actor shared.Actor) (*model.Visit, error)
	IssueReward(ctx context.Context, req *model.IssueRewardRequest, actor shared.Actor) (*vouchermodel.Voucher, error)
	RevokeVisit(ctx context.Context, id uuid.UUID, req *model.RevokeVisitRequest, actor shared.Actor) error
	GetProgress(ctx context.Context, phone string) (*model.Progress, error)
	ListByPhone(ctx context.Context, phone string, p utils.Pagination) ([]model.Visit, int, error)
}

type visitService struct {
	repo         repository.VisitRepository
	customerRepo customerrepo.CustomerRepository
	voucherRepo  voucherrepo.VoucherRepository
	templateRepo templaterepo.TemplateRepository
	audit        audit.Sink

	cardSize   int
	expiryDays int
}

func NewVisitService(
	repo repository.VisitRepository,
	customerRepo customerrepo.CustomerRepository,
	voucherRepo voucherrepo.VoucherRepository,
	templateRepo templaterepo.TemplateRepository,
	auditSink audit.Sink,
	cardSize int,
	expiryDays int,
) ServiceInterface {
	return &visitService{
		repo:         repo,
		customerRepo: customerRepo,
		voucherRepo:  voucherRepo,
		templateRepo: templateRepo,
		audit:        auditSink,
		cardSize:     cardSize,
		expiryDays:   expiryDays,
	}
}

// RecordVisit ghi nhận một lần ghé cửa hàng. Thẻ đã đầy thì từ chối -
// nhân viên phải đổi thưởng trước khi tích tiếp.
func (s *visitService) RecordVisit(ctx context.Context, req *model.RecordVisitRequest, actor shared.Actor) (*model.Visit, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVisitError(model.ErrCodeValidationFailed, err.Error(), err)
	}

	phone := utils.NormalizePhone(req.PhoneNumber)

	customer, err := s.customerRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	// Pre-check cho error message sớm; invariant thật nằm trong
	// transaction của RecordVisit.
	count, err := s.repo.CountActive(ctx, phone)
	if err != nil {
		return nil, err
	}
	if count >= s.cardSize {
		return nil, model.ErrCardFull
	}

	visit := &model.Visit{
		ID:            uuid.New(),
		CustomerPhone: customer.PhoneNumber,
		ProcessedBy:   actor.ID,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.RecordVisit(ctx, visit, s.cardSize); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "visit.record", map[string]interface{}{
		"visit_id":       visit.ID.String(),
		"customer_phone": phone,
	}, actor)

	return visit, nil
}

// IssueReward đổi một thẻ đầy lấy voucher thưởng. Voucher được phát
// hành thẳng ở trạng thái active, gán vào khách; cardSize visit cũ nhất
// bị đóng băng và thẻ quay về không.
func (s *visitService) IssueReward(ctx context.Context, req *model.IssueRewardRequest, actor shared.Actor) (*vouchermodel.Voucher, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVisitError(model.ErrCodeValidationFailed, err.Error(), err)
	}

	phone := utils.NormalizePhone(req.PhoneNumber)

	if _, err := s.customerRepo.FindByPhone(ctx, phone); err != nil {
		return nil, err
	}

	count, err := s.repo.CountActive(ctx, phone)
	if err != nil {
		return nil, err
	}
	if count < s.cardSize {
		return nil, model.ErrCardNotFull
	}

	template, err := s.resolveTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	liveCodes, err := s.voucherRepo.LiveCodes(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiry := now.AddDate(0, 0, s.expiryDays)
	if req.ExpiryDate != nil {
		expiry = *req.ExpiryDate
	}

	params := repository.IssueRewardParams{
		CustomerPhone: phone,
		CardSize:      s.cardSize,
		VoucherID:     uuid.New(),
		Code:          voucherservice.NewVoucherCode(liveCodes),
		ExpiryDate:    expiry,
		ApprovedBy:    actor.ID,
		IssuedAt:      now,
	}
	if template != nil {
		params.TemplateID = &template.ID
	}

	visitIDs, err := s.repo.IssueReward(ctx, params)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "visit.issue_reward", map[string]interface{}{
		"customer_phone": phone,
		"voucher_id":     params.VoucherID.String(),
		"voucher_code":   params.Code,
		"visit_count":    len(visitIDs),
	}, actor)

	return s.voucherRepo.FindByID(ctx, params.VoucherID)
}

// resolveTemplate: chỉ định rõ thì phải tồn tại, không chỉ định thì
// dùng template mặc định (có thể không có template nào - reward vẫn
// phát hành được, voucher không mang template).
func (s *visitService) resolveTemplate(ctx context.Context, id *uuid.UUID) (*templatemodel.Template, error) {
	if id != nil {
		return s.templateRepo.FindByID(ctx, *id)
	}

	template, err := s.templateRepo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, templatemodel.ErrNoTemplates) {
			return nil, nil
		}
		return nil, err
	}
	return template, nil
}

// RevokeVisit thu hồi một visit ghi nhầm. Chỉ admin được thu hồi -
// nhân viên quầy ghi nhầm phải nhờ admin xử lý.
func (s *visitService) RevokeVisit(ctx context.Context, id uuid.UUID, req *model.RevokeVisitRequest, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return model.ErrRevokeForbidden
	}

	if err := req.Validate(); err != nil {
		return model.NewVisitError(model.ErrCodeValidationFailed, err.Error(), err)
	}

	if err := s.repo.Revoke(ctx, id, actor.ID, req.Reason); err != nil {
		return err
	}

	s.audit.Record(ctx, "visit.revoke", map[string]interface{}{
		"visit_id": id.String(),
		"reason":   req.Reason,
	}, actor)

	return nil
}

func (s *visitService) GetProgress(ctx context.Context, phone string) (*model.Progress, error) {
	normalized := utils.NormalizePhone(phone)

	if _, err := s.customerRepo.FindByPhone(ctx, normalized); err != nil {
		return nil, err
	}

	return s.repo.GetProgress(ctx, normalized, s.cardSize)
}

func (s *visitService) ListByPhone(ctx context.Context, phone string, p utils.Pagination) ([]model.Visit, int, error) {
	return s.repo.ListByPhone(ctx, utils.NormalizePhone(phone), p)
}
