package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/audit"
	templateModel "loyalty-backend/internal/domains/template/model"
	templateRepo "loyalty-backend/internal/domains/template/repository"
	"loyalty-backend/internal/domains/voucher/model"
	"loyalty-backend/internal/domains/voucher/repository"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
	"loyalty-backend/pkg/logger"
)

// insertRetries - số lần thử lại khi insert dính uniqueness violation
// (benign race: hai request cùng chọn một code trước khi commit)
const insertRetries = 3

// NewVoucherCode sinh code cho một lần phát hành đơn lẻ.
// Exported để stamp-card engine dùng chung generator khi mint reward.
func NewVoucherCode(existing map[string]struct{}) string {
	return generateCode(existing, singleMaxAttempts)
}

// =====================================================
// VOUCHER SERVICE IMPLEMENTATION
// =====================================================
type voucherService struct {
	repo         repository.VoucherRepository
	templateRepo templateRepo.TemplateRepository
	audit        audit.Sink
	expiryDays   int
}

func NewVoucherService(
	repo repository.VoucherRepository,
	templates templateRepo.TemplateRepository,
	auditSink audit.Sink,
	expiryDays int,
) ServiceInterface {
	return &voucherService{
		repo:         repo,
		templateRepo: templates,
		audit:        auditSink,
		expiryDays:   expiryDays,
	}
}

// -------------------------------------------------------------------
// CREATE
// -------------------------------------------------------------------

// resolveTemplate reuse template theo id/tên hoặc tạo inline
func (s *voucherService) resolveTemplate(ctx context.Context, req *model.CreateVoucherRequest) (*templateModel.Template, error) {
	if req.TemplateID != nil {
		t, err := s.templateRepo.FindByID(ctx, *req.TemplateID)
		if err != nil {
			return nil, model.NewVoucherError(model.ErrCodeTemplateNotFound, "Template not found", err)
		}
		return t, nil
	}

	// Reuse template trùng tên nếu đã có, tránh nhân bản presentation data
	if t, err := s.templateRepo.FindByName(ctx, req.Name); err == nil {
		return t, nil
	}

	now := time.Now()
	t := &templateModel.Template{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.templateRepo.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *voucherService) Create(ctx context.Context, actor shared.Actor, req *model.CreateVoucherRequest) (*model.VoucherResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "Invalid request", err)
	}

	tmpl, err := s.resolveTemplate(ctx, req)
	if err != nil {
		return nil, err
	}

	var created *model.Voucher
	for attempt := 0; attempt < insertRetries; attempt++ {
		// Uniqueness set tính lại mỗi lần thử - insert thua race sẽ thấy
		// code của đối thủ ở lần đọc sau
		liveCodes, err := s.repo.LiveCodes(ctx)
		if err != nil {
			return nil, err
		}

		v := &model.Voucher{
			ID:         uuid.New(),
			Code:       generateCode(liveCodes, singleMaxAttempts),
			TemplateID: &tmpl.ID,
			Status:     model.StatusAvailable,
			CreatedAt:  time.Now(),
		}

		err = s.repo.Insert(ctx, v)
		if err == nil {
			created = v
			break
		}
		if !errors.Is(err, model.ErrCodeTaken) {
			return nil, err
		}
		logger.Warn("voucher code collision, retrying", map[string]interface{}{
			"attempt": attempt + 1,
		})
	}
	if created == nil {
		return nil, model.NewVoucherError(model.ErrCodeCodeCollision, "Could not allocate a unique code", model.ErrCodeTaken)
	}

	s.audit.Record(ctx, "voucher.create", map[string]interface{}{
		"voucher_id": created.ID,
		"code":       created.Code,
		"template":   tmpl.Name,
	}, actor)

	return &model.VoucherResponse{
		Voucher:     *created,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		ImageURL:    tmpl.ImageURL,
	}, nil
}

func (s *voucherService) CreateBatch(ctx context.Context, actor shared.Actor, req *model.CreateVoucherBatchRequest) ([]model.VoucherResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "Invalid request", err)
	}

	tmpl, err := s.resolveTemplate(ctx, &req.CreateVoucherRequest)
	if err != nil {
		return nil, err
	}

	var vouchers []*model.Voucher
	for attempt := 0; attempt < insertRetries; attempt++ {
		liveCodes, err := s.repo.LiveCodes(ctx)
		if err != nil {
			return nil, err
		}

		// Sinh đủ N code trước khi insert bất kỳ voucher nào -
		// không bao giờ insert nửa chừng rồi vướng code trùng trong batch
		codes := generateBatchCodes(liveCodes, req.Quantity)

		now := time.Now()
		batch := make([]*model.Voucher, 0, req.Quantity)
		for _, code := range codes {
			batch = append(batch, &model.Voucher{
				ID:         uuid.New(),
				Code:       code,
				TemplateID: &tmpl.ID,
				Status:     model.StatusAvailable,
				CreatedAt:  now,
			})
		}

		err = s.repo.InsertBatch(ctx, batch)
		if err == nil {
			vouchers = batch
			break
		}
		if !errors.Is(err, model.ErrCodeTaken) {
			return nil, err
		}
		logger.Warn("batch code collision, retrying whole batch", map[string]interface{}{
			"attempt":  attempt + 1,
			"quantity": req.Quantity,
		})
	}
	if vouchers == nil {
		return nil, model.NewVoucherError(model.ErrCodeCodeCollision, "Could not allocate unique codes for batch", model.ErrCodeTaken)
	}

	s.audit.Record(ctx, "voucher.create_batch", map[string]interface{}{
		"template": tmpl.Name,
		"quantity": req.Quantity,
	}, actor)

	result := make([]model.VoucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		result = append(result, model.VoucherResponse{
			Voucher:     *v,
			Name:        tmpl.Name,
			Description: tmpl.Description,
			ImageURL:    tmpl.ImageURL,
		})
	}
	return result, nil
}

// -------------------------------------------------------------------
// BIND
// -------------------------------------------------------------------

// expiryOrDefault lấy expiry caller cung cấp, không có thì now + expiryDays
func (s *voucherService) expiryOrDefault(supplied *time.Time, now time.Time) time.Time {
	if supplied != nil {
		return *supplied
	}
	return now.AddDate(0, 0, s.expiryDays)
}

func (s *voucherService) Bind(ctx context.Context, actor shared.Actor, req *model.BindVoucherRequest) (*model.Voucher, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "Invalid request", err)
	}

	v, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if !v.CanBind() {
		return nil, model.NewVoucherError(model.ErrCodeNotAvailable, "Voucher is not available for binding", model.ErrNotAvailable)
	}

	now := time.Now()
	phone := utils.NormalizePhone(req.PhoneNumber)
	expiry := s.expiryOrDefault(req.ExpiryDate, now)

	if err := s.repo.Bind(ctx, v.ID, phone, expiry, now); err != nil {
		return nil, err
	}

	v.Status = model.StatusActive
	v.BindedToPhone = &phone
	v.ExpiryDate = &expiry
	v.ApprovedAt = &now

	s.audit.Record(ctx, "voucher.bind", map[string]interface{}{
		"voucher_id": v.ID,
		"code":       v.Code,
		"phone":      phone,
	}, actor)

	return v, nil
}

func (s *voucherService) BulkBind(ctx context.Context, actor shared.Actor, req *model.BulkBindRequest) ([]model.Voucher, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "Invalid request", err)
	}

	now := time.Now()
	phones := make([]string, 0, len(req.PhoneNumbers))
	for _, p := range req.PhoneNumbers {
		phones = append(phones, utils.NormalizePhone(p))
	}

	bound, err := s.repo.BulkBind(ctx, repository.BulkBindParams{
		VoucherName:  req.VoucherName,
		PhoneNumbers: phones,
		ExpiryDate:   s.expiryOrDefault(req.ExpiryDate, now),
		ApprovedAt:   now,
	})
	if err != nil {
		var insufficient *model.InsufficientVouchersError
		if errors.As(err, &insufficient) {
			return nil, model.NewVoucherError(model.ErrCodeInsufficientVouchers, insufficient.Error(), insufficient)
		}
		return nil, err
	}

	s.audit.Record(ctx, "voucher.bulk_bind", map[string]interface{}{
		"voucher_name": req.VoucherName,
		"count":        len(bound),
	}, actor)

	return bound, nil
}

// -------------------------------------------------------------------
// CLAIM
// -------------------------------------------------------------------

func (s *voucherService) RequestClaim(ctx context.Context, actor shared.Actor, voucherID uuid.UUID) error {
	v, err := s.repo.FindByID(ctx, voucherID)
	if err != nil {
		return err
	}

	now := time.Now()
	if !v.CanRequestClaim(now) {
		if v.Status == model.StatusActive && v.IsExpired(now) {
			return model.NewVoucherError(model.ErrCodeVoucherExpired, "Voucher has expired", model.ErrVoucherExpired)
		}
		return model.NewVoucherError(model.ErrCodeNotActive, "Voucher is not active", model.ErrNotActive)
	}

	if err := s.repo.RequestClaim(ctx, voucherID, now); err != nil {
		return err
	}

	s.audit.Record(ctx, "voucher.request_claim", map[string]interface{}{
		"voucher_id": voucherID,
	}, actor)
	return nil
}

func (s *voucherService) Claim(ctx context.Context, actor shared.Actor, voucherID uuid.UUID, req *model.ClaimVoucherRequest) (*model.Voucher, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "Invalid request", err)
	}

	// Spend amount đến dạng string từ form nhập tay tại quầy -
	// chỉ nhận chữ số (cho phép dấu âm, sẽ bị clamp về 0)
	raw := strings.TrimSpace(req.SpentAmount)
	if !utils.IsDigits(strings.TrimPrefix(raw, "-")) {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "spent_amount must be a number", nil)
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, model.NewVoucherError(model.ErrCodeValidationFailed, "spent_amount must be a number", err)
	}
	if amount < 0 {
		amount = 0
	}

	v, err := s.repo.FindByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	if !v.CanClaim() {
		return nil, model.NewVoucherError(model.ErrCodeAlreadyClaimed, "Voucher already claimed", model.ErrAlreadyClaimed)
	}

	claimed, err := s.repo.Claim(ctx, repository.ClaimParams{
		VoucherID:   voucherID,
		ApprovedBy:  actor.ID,
		SpentAmount: amount,
		UsedAt:      time.Now(),
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyClaimed) {
			return nil, model.NewVoucherError(model.ErrCodeAlreadyClaimed, "Voucher already claimed", err)
		}
		return nil, err
	}

	s.audit.Record(ctx, "voucher.claim", map[string]interface{}{
		"voucher_id":   claimed.ID,
		"code":         claimed.Code,
		"spent_amount": amount,
	}, actor)

	return claimed, nil
}

// -------------------------------------------------------------------
// UPDATE / DELETE
// -------------------------------------------------------------------

// Update patch metadata. Name/description/image nằm trên template (dùng
// chung cho cả nhóm voucher), expiry nằm trên chính voucher.
// Không nhận status - chuyển trạng thái chỉ đi qua bind/claim.
func (s *voucherService) Update(ctx context.Context, actor shared.Actor, voucherID uuid.UUID, req *model.UpdateVoucherRequest) error {
	if err := req.Validate(); err != nil {
		return model.NewVoucherError(model.ErrCodeValidationFailed, "Invalid request", err)
	}

	v, err := s.repo.FindByID(ctx, voucherID)
	if err != nil {
		return err
	}

	if req.Name != nil || req.Description != nil || req.ImageURL != nil {
		if v.TemplateID == nil {
			return model.NewVoucherError(model.ErrCodeTemplateNotFound, "Voucher has no template to update", model.ErrTemplateNotFound)
		}
		tmpl, err := s.templateRepo.FindByID(ctx, *v.TemplateID)
		if err != nil {
			return model.NewVoucherError(model.ErrCodeTemplateNotFound, "Template not found", err)
		}
		if req.Name != nil {
			tmpl.Name = *req.Name
		}
		if req.Description != nil {
			tmpl.Description = *req.Description
		}
		if req.ImageURL != nil {
			tmpl.ImageURL = *req.ImageURL
		}
		tmpl.UpdatedAt = time.Now()
		if err := s.templateRepo.Update(ctx, tmpl); err != nil {
			return err
		}
	}

	if req.ExpiryDate != nil {
		if err := s.repo.UpdateExpiry(ctx, voucherID, req.ExpiryDate); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, "voucher.update", map[string]interface{}{
		"voucher_id": voucherID,
	}, actor)
	return nil
}

func (s *voucherService) Delete(ctx context.Context, actor shared.Actor, voucherID uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, voucherID, time.Now()); err != nil {
		return err
	}

	s.audit.Record(ctx, "voucher.delete", map[string]interface{}{
		"voucher_id": voucherID,
	}, actor)
	return nil
}

// -------------------------------------------------------------------
// QUERIES
// -------------------------------------------------------------------

func (s *voucherService) GetByID(ctx context.Context, voucherID uuid.UUID) (*model.Voucher, error) {
	return s.repo.FindByID(ctx, voucherID)
}

func (s *voucherService) List(ctx context.Context, filter model.ListFilter, p utils.Pagination) ([]model.VoucherResponse, int, error) {
	if filter.BoundPhone != "" {
		filter.BoundPhone = utils.NormalizePhone(filter.BoundPhone)
	}
	return s.repo.List(ctx, filter, p)
}

func (s *voucherService) ListRedemptions(ctx context.Context, customerPhone string, p utils.Pagination) ([]model.Redemption, int, error) {
	return s.repo.ListRedemptions(ctx, utils.NormalizePhone(customerPhone), p)
}
