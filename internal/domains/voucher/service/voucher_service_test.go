package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-backend/internal/domains/audit"
	templateModel "loyalty-backend/internal/domains/template/model"
	"loyalty-backend/internal/domains/voucher/model"
	"loyalty-backend/internal/domains/voucher/repository"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
)

// =====================================================
// IN-MEMORY FAKES
// =====================================================

type fakeVoucherRepo struct {
	vouchers    map[uuid.UUID]*model.Voucher
	redemptions []model.Redemption

	// insertFailures giả lập uniqueness violation N lần đầu
	insertFailures int
}

func newFakeVoucherRepo() *fakeVoucherRepo {
	return &fakeVoucherRepo{vouchers: map[uuid.UUID]*model.Voucher{}}
}

func (f *fakeVoucherRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	v, ok := f.vouchers[id]
	if !ok || v.IsDeleted() {
		return nil, model.ErrVoucherNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVoucherRepo) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	// Ưu tiên voucher live, giống câu query thật
	var fallback *model.Voucher
	for _, v := range f.vouchers {
		if v.Code != code || v.IsDeleted() {
			continue
		}
		if v.IsLive() {
			cp := *v
			return &cp, nil
		}
		fallback = v
	}
	if fallback != nil {
		cp := *fallback
		return &cp, nil
	}
	return nil, model.ErrVoucherNotFound
}

func (f *fakeVoucherRepo) LiveCodes(ctx context.Context) (map[string]struct{}, error) {
	codes := map[string]struct{}{}
	for _, v := range f.vouchers {
		if v.IsLive() {
			codes[v.Code] = struct{}{}
		}
	}
	return codes, nil
}

func (f *fakeVoucherRepo) Insert(ctx context.Context, v *model.Voucher) error {
	if f.insertFailures > 0 {
		f.insertFailures--
		return model.ErrCodeTaken
	}
	cp := *v
	f.vouchers[v.ID] = &cp
	return nil
}

func (f *fakeVoucherRepo) InsertBatch(ctx context.Context, vouchers []*model.Voucher) error {
	if f.insertFailures > 0 {
		f.insertFailures--
		return model.ErrCodeTaken
	}
	for _, v := range vouchers {
		cp := *v
		f.vouchers[v.ID] = &cp
	}
	return nil
}

func (f *fakeVoucherRepo) Bind(ctx context.Context, id uuid.UUID, phone string, expiry, approvedAt time.Time) error {
	v, ok := f.vouchers[id]
	if !ok {
		return model.ErrVoucherNotFound
	}
	v.Status = model.StatusActive
	v.BindedToPhone = &phone
	v.ExpiryDate = &expiry
	v.ApprovedAt = &approvedAt
	return nil
}

func (f *fakeVoucherRepo) BulkBind(ctx context.Context, params repository.BulkBindParams) ([]model.Voucher, error) {
	var available []*model.Voucher
	for _, v := range f.vouchers {
		if v.Status == model.StatusAvailable && !v.IsDeleted() {
			available = append(available, v)
		}
	}
	if len(available) < len(params.PhoneNumbers) {
		return nil, &model.InsufficientVouchersError{
			Requested: len(params.PhoneNumbers),
			Available: len(available),
		}
	}

	var bound []model.Voucher
	for i, phone := range params.PhoneNumbers {
		v := available[i]
		p := phone
		expiry := params.ExpiryDate
		at := params.ApprovedAt
		v.Status = model.StatusActive
		v.BindedToPhone = &p
		v.ExpiryDate = &expiry
		v.ApprovedAt = &at
		bound = append(bound, *v)
	}
	return bound, nil
}

func (f *fakeVoucherRepo) RequestClaim(ctx context.Context, id uuid.UUID, at time.Time) error {
	v, ok := f.vouchers[id]
	if !ok {
		return model.ErrVoucherNotFound
	}
	v.ClaimRequestedAt = &at
	return nil
}

func (f *fakeVoucherRepo) Claim(ctx context.Context, params repository.ClaimParams) (*model.Voucher, error) {
	v, ok := f.vouchers[params.VoucherID]
	if !ok {
		return nil, model.ErrVoucherNotFound
	}
	if v.Status == model.StatusClaimed {
		return nil, model.ErrAlreadyClaimed
	}
	v.Status = model.StatusClaimed
	v.SpentAmount = params.SpentAmount
	v.UsedAt = &params.UsedAt
	v.ApprovedBy = &params.ApprovedBy
	if v.BindedToPhone != nil {
		f.redemptions = append(f.redemptions, model.Redemption{
			ID:            uuid.New(),
			VoucherID:     v.ID,
			CustomerPhone: *v.BindedToPhone,
			Amount:        params.SpentAmount,
			ProcessedBy:   params.ApprovedBy,
			CreatedAt:     params.UsedAt,
		})
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVoucherRepo) UpdateExpiry(ctx context.Context, id uuid.UUID, expiry *time.Time) error {
	v, ok := f.vouchers[id]
	if !ok {
		return model.ErrVoucherNotFound
	}
	v.ExpiryDate = expiry
	return nil
}

func (f *fakeVoucherRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	v, ok := f.vouchers[id]
	if !ok || v.IsDeleted() {
		return model.ErrVoucherNotFound
	}
	v.DeletedAt = &at
	return nil
}

func (f *fakeVoucherRepo) List(ctx context.Context, filter model.ListFilter, p utils.Pagination) ([]model.VoucherResponse, int, error) {
	var result []model.VoucherResponse
	for _, v := range f.vouchers {
		if v.IsDeleted() {
			continue
		}
		result = append(result, model.VoucherResponse{Voucher: *v})
	}
	return result, len(result), nil
}

func (f *fakeVoucherRepo) ListRedemptions(ctx context.Context, customerPhone string, p utils.Pagination) ([]model.Redemption, int, error) {
	var result []model.Redemption
	for _, r := range f.redemptions {
		if r.CustomerPhone == customerPhone {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (f *fakeVoucherRepo) CountExpiredSince(ctx context.Context, since, now time.Time) (int, error) {
	count := 0
	for _, v := range f.vouchers {
		if v.Status == model.StatusActive && !v.IsDeleted() &&
			v.ExpiryDate != nil && v.ExpiryDate.After(since) && !v.ExpiryDate.After(now) {
			count++
		}
	}
	return count, nil
}

type fakeTemplateRepo struct {
	templates map[uuid.UUID]*templateModel.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[uuid.UUID]*templateModel.Template{}}
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, id uuid.UUID) (*templateModel.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, templateModel.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplateRepo) FindByName(ctx context.Context, name string) (*templateModel.Template, error) {
	for _, t := range f.templates {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, templateModel.ErrTemplateNotFound
}

func (f *fakeTemplateRepo) FindDefault(ctx context.Context) (*templateModel.Template, error) {
	var oldest *templateModel.Template
	for _, t := range f.templates {
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, templateModel.ErrNoTemplates
	}
	cp := *oldest
	return &cp, nil
}

func (f *fakeTemplateRepo) List(ctx context.Context) ([]templateModel.Template, error) {
	var result []templateModel.Template
	for _, t := range f.templates {
		result = append(result, *t)
	}
	return result, nil
}

func (f *fakeTemplateRepo) Insert(ctx context.Context, t *templateModel.Template) error {
	cp := *t
	f.templates[t.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *templateModel.Template) error {
	if _, ok := f.templates[t.ID]; !ok {
		return templateModel.ErrTemplateNotFound
	}
	cp := *t
	f.templates[t.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.templates, id)
	return nil
}

// =====================================================
// TEST SETUP
// =====================================================

const testExpiryDays = 30

func newTestService(t *testing.T) (ServiceInterface, *fakeVoucherRepo, *fakeTemplateRepo) {
	t.Helper()
	vouchers := newFakeVoucherRepo()
	templates := newFakeTemplateRepo()
	svc := NewVoucherService(vouchers, templates, audit.NopSink{}, testExpiryDays)
	return svc, vouchers, templates
}

func staffActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Phone: "912345678", Role: shared.RoleStaff}
}

func mustCreate(t *testing.T, svc ServiceInterface, name string) *model.VoucherResponse {
	t.Helper()
	v, err := svc.Create(context.Background(), staffActor(), &model.CreateVoucherRequest{Name: name})
	require.NoError(t, err)
	return v
}

// =====================================================
// CREATE
// =====================================================

func TestCreate_NewVoucherIsAvailableWithShortCode(t *testing.T) {
	svc, _, templates := newTestService(t)

	v := mustCreate(t, svc, "Free Coffee")

	assert.Equal(t, model.StatusAvailable, v.Status)
	assert.Len(t, v.Code, CodeLength)
	assert.Nil(t, v.BindedToPhone)
	assert.Nil(t, v.ExpiryDate)
	assert.Equal(t, "Free Coffee", v.Name)

	// Template được tạo inline
	tmpl, err := templates.FindByName(context.Background(), "Free Coffee")
	require.NoError(t, err)
	require.NotNil(t, v.TemplateID)
	assert.Equal(t, tmpl.ID, *v.TemplateID)
}

func TestCreate_ReusesTemplateWithSameName(t *testing.T) {
	svc, _, _ := newTestService(t)

	first := mustCreate(t, svc, "Free Coffee")
	second := mustCreate(t, svc, "Free Coffee")

	assert.Equal(t, *first.TemplateID, *second.TemplateID)
}

func TestCreate_RetriesOnCodeCollision(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	vouchers.insertFailures = 2 // hai lần đầu dính unique violation

	v := mustCreate(t, svc, "Free Coffee")

	assert.Len(t, v.Code, CodeLength)
	assert.Len(t, vouchers.vouchers, 1)
}

func TestCreate_GivesUpAfterRetriesExhausted(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	vouchers.insertFailures = insertRetries + 1

	_, err := svc.Create(context.Background(), staffActor(), &model.CreateVoucherRequest{Name: "Free Coffee"})

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeCodeCollision, vErr.Code)
}

func TestCreate_UnknownTemplateRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	missing := uuid.New()

	_, err := svc.Create(context.Background(), staffActor(), &model.CreateVoucherRequest{TemplateID: &missing})

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeTemplateNotFound, vErr.Code)
}

func TestCreateBatch_AllCodesUnique(t *testing.T) {
	svc, _, _ := newTestService(t)

	batch, err := svc.CreateBatch(context.Background(), staffActor(), &model.CreateVoucherBatchRequest{
		CreateVoucherRequest: model.CreateVoucherRequest{Name: "Free Coffee"},
		Quantity:             100,
	})
	require.NoError(t, err)
	require.Len(t, batch, 100)

	seen := map[string]struct{}{}
	for _, v := range batch {
		_, dup := seen[v.Code]
		require.False(t, dup, "duplicate code %q in batch", v.Code)
		seen[v.Code] = struct{}{}
		assert.Equal(t, model.StatusAvailable, v.Status)
	}
}

func TestCreateBatch_QuantityBounds(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, quantity := range []int{0, 501} {
		_, err := svc.CreateBatch(context.Background(), staffActor(), &model.CreateVoucherBatchRequest{
			CreateVoucherRequest: model.CreateVoucherRequest{Name: "Free Coffee"},
			Quantity:             quantity,
		})

		var vErr *model.VoucherError
		require.ErrorAs(t, err, &vErr, "quantity %d should be rejected", quantity)
		assert.Equal(t, model.ErrCodeValidationFailed, vErr.Code)
	}
}

// =====================================================
// BIND
// =====================================================

func TestBind_NormalizesPhoneAndDefaultsExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	before := time.Now()
	bound, err := svc.Bind(context.Background(), staffActor(), &model.BindVoucherRequest{
		Code:        created.Code,
		PhoneNumber: "0912 345 678",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, bound.Status)
	require.NotNil(t, bound.BindedToPhone)
	assert.Equal(t, "912345678", *bound.BindedToPhone, "leading zero must be stripped")

	require.NotNil(t, bound.ExpiryDate)
	wantExpiry := before.AddDate(0, 0, testExpiryDays)
	assert.WithinDuration(t, wantExpiry, *bound.ExpiryDate, time.Minute)
}

func TestBind_ExplicitExpiryWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	expiry := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	bound, err := svc.Bind(context.Background(), staffActor(), &model.BindVoucherRequest{
		Code:        created.Code,
		PhoneNumber: "0912345678",
		ExpiryDate:  &expiry,
	})
	require.NoError(t, err)
	require.NotNil(t, bound.ExpiryDate)
	assert.True(t, expiry.Equal(*bound.ExpiryDate))
}

func TestBind_RejectsNonAvailableVoucher(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	_, err := svc.Bind(context.Background(), staffActor(), &model.BindVoucherRequest{
		Code:        created.Code,
		PhoneNumber: "0912345678",
	})
	require.NoError(t, err)

	// Bind lần hai: voucher đã active
	_, err = svc.Bind(context.Background(), staffActor(), &model.BindVoucherRequest{
		Code:        created.Code,
		PhoneNumber: "0987654321",
	})

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeNotAvailable, vErr.Code)
}

func TestBulkBind_InsufficientVouchers(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCreate(t, svc, "Free Coffee")

	_, err := svc.BulkBind(context.Background(), staffActor(), &model.BulkBindRequest{
		VoucherName:  "Free Coffee",
		PhoneNumbers: []string{"0911111111", "0922222222", "0933333333"},
	})

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeInsufficientVouchers, vErr.Code)

	var insufficient *model.InsufficientVouchersError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 1, insufficient.Available)
}

func TestBulkBind_BindsAllPhones(t *testing.T) {
	svc, _, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		mustCreate(t, svc, "Free Coffee")
	}

	bound, err := svc.BulkBind(context.Background(), staffActor(), &model.BulkBindRequest{
		VoucherName:  "Free Coffee",
		PhoneNumbers: []string{"0911111111", "0922222222", "0933333333"},
	})
	require.NoError(t, err)
	require.Len(t, bound, 3)

	for _, v := range bound {
		assert.Equal(t, model.StatusActive, v.Status)
		require.NotNil(t, v.BindedToPhone)
		assert.NotEqual(t, "0", (*v.BindedToPhone)[:1])
	}
}

// =====================================================
// CLAIM
// =====================================================

func bindTo(t *testing.T, svc ServiceInterface, code, phone string, expiry *time.Time) *model.Voucher {
	t.Helper()
	bound, err := svc.Bind(context.Background(), staffActor(), &model.BindVoucherRequest{
		Code:        code,
		PhoneNumber: phone,
		ExpiryDate:  expiry,
	})
	require.NoError(t, err)
	return bound
}

func TestRequestClaim_ExpiredVoucherRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")
	past := time.Now().Add(-time.Hour)
	bound := bindTo(t, svc, created.Code, "0912345678", &past)

	err := svc.RequestClaim(context.Background(), staffActor(), bound.ID)

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeVoucherExpired, vErr.Code)
}

func TestRequestClaim_AvailableVoucherRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	err := svc.RequestClaim(context.Background(), staffActor(), created.ID)

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeNotActive, vErr.Code)
}

func TestRequestClaim_ActiveVoucherAccepted(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")
	bound := bindTo(t, svc, created.Code, "0912345678", nil)

	require.NoError(t, svc.RequestClaim(context.Background(), staffActor(), bound.ID))

	stored, err := vouchers.FindByID(context.Background(), bound.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ClaimRequestedAt)
}

func TestClaim_WritesLedgerForBoundVoucher(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	actor := staffActor()
	created := mustCreate(t, svc, "Free Coffee")
	bound := bindTo(t, svc, created.Code, "0912345678", nil)

	claimed, err := svc.Claim(context.Background(), actor, bound.ID, &model.ClaimVoucherRequest{
		SpentAmount: "150000",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusClaimed, claimed.Status)
	assert.Equal(t, int64(150000), claimed.SpentAmount)
	require.NotNil(t, claimed.ApprovedBy)
	assert.Equal(t, actor.ID, *claimed.ApprovedBy)

	require.Len(t, vouchers.redemptions, 1)
	assert.Equal(t, "912345678", vouchers.redemptions[0].CustomerPhone)
	assert.Equal(t, int64(150000), vouchers.redemptions[0].Amount)
}

func TestClaim_UnboundVoucherSkipsLedger(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	claimed, err := svc.Claim(context.Background(), staffActor(), created.ID, &model.ClaimVoucherRequest{
		SpentAmount: "50000",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusClaimed, claimed.Status)
	assert.Empty(t, vouchers.redemptions)
}

func TestClaim_NonNumericAmountRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	for _, amount := range []string{"abc", "12.50", "1e3", "50 000"} {
		_, err := svc.Claim(context.Background(), staffActor(), created.ID, &model.ClaimVoucherRequest{
			SpentAmount: amount,
		})

		var vErr *model.VoucherError
		require.ErrorAs(t, err, &vErr, "amount %q must be rejected", amount)
		assert.Equal(t, model.ErrCodeValidationFailed, vErr.Code)
	}
}

func TestClaim_NegativeAmountClampedToZero(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	claimed, err := svc.Claim(context.Background(), staffActor(), created.ID, &model.ClaimVoucherRequest{
		SpentAmount: "-5000",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), claimed.SpentAmount)
}

func TestClaim_SecondClaimRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	_, err := svc.Claim(context.Background(), staffActor(), created.ID, &model.ClaimVoucherRequest{SpentAmount: "1000"})
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), staffActor(), created.ID, &model.ClaimVoucherRequest{SpentAmount: "1000"})

	var vErr *model.VoucherError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.ErrCodeAlreadyClaimed, vErr.Code)
}

func TestClaimedCode_IsReusableForNewVouchers(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	_, err := svc.Claim(context.Background(), staffActor(), created.ID, &model.ClaimVoucherRequest{SpentAmount: "0"})
	require.NoError(t, err)

	// Code của voucher claimed rời khỏi uniqueness set
	liveCodes, err := vouchers.LiveCodes(context.Background())
	require.NoError(t, err)
	_, live := liveCodes[created.Code]
	assert.False(t, live)
}

// =====================================================
// UPDATE / DELETE
// =====================================================

func TestUpdate_ChangesTemplateMetadata(t *testing.T) {
	svc, _, templates := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	newName := "Free Tea"
	err := svc.Update(context.Background(), staffActor(), created.ID, &model.UpdateVoucherRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	tmpl, err := templates.FindByID(context.Background(), *created.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "Free Tea", tmpl.Name)
}

func TestUpdate_ChangesExpiryOnly(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	expiry := time.Now().AddDate(0, 1, 0)
	err := svc.Update(context.Background(), staffActor(), created.ID, &model.UpdateVoucherRequest{
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	stored, err := vouchers.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExpiryDate)
	assert.True(t, expiry.Equal(*stored.ExpiryDate))
	// Update không đụng vào status
	assert.Equal(t, model.StatusAvailable, stored.Status)
}

func TestDelete_SoftDeletesAndFreesCode(t *testing.T) {
	svc, vouchers, _ := newTestService(t)
	created := mustCreate(t, svc, "Free Coffee")

	require.NoError(t, svc.Delete(context.Background(), staffActor(), created.ID))

	_, err := svc.GetByID(context.Background(), created.ID)
	assert.True(t, errors.Is(err, model.ErrVoucherNotFound))

	liveCodes, err := vouchers.LiveCodes(context.Background())
	require.NoError(t, err)
	_, live := liveCodes[created.Code]
	assert.False(t, live, "deleted voucher code should be reusable")
}
