package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-backend/internal/domains/audit"
	customermodel "loyalty-backend/internal/domains/customer/model"
	customerrepo "loyalty-backend/internal/domains/customer/repository"
	templatemodel "loyalty-backend/internal/domains/template/model"
	templaterepo "loyalty-backend/internal/domains/template/repository"
	"loyalty-backend/internal/domains/visit/model"
	"loyalty-backend/internal/domains/visit/repository"
	vouchermodel "loyalty-backend/internal/domains/voucher/model"
	voucherrepo "loyalty-backend/internal/domains/voucher/repository"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
)

const testCardSize = 10

// =====================================================
// IN-MEMORY FAKES
// =====================================================

type fakeVisitRepo struct {
	visits   map[uuid.UUID]*model.Visit
	vouchers map[uuid.UUID]*vouchermodel.Voucher // reward vouchers minted by IssueReward
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{
		visits:   map[uuid.UUID]*model.Visit{},
		vouchers: map[uuid.UUID]*vouchermodel.Voucher{},
	}
}

func (f *fakeVisitRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	v, ok := f.visits[id]
	if !ok {
		return nil, model.ErrVisitNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVisitRepo) activeByPhone(phone string) []*model.Visit {
	var result []*model.Visit
	for _, v := range f.visits {
		if v.CustomerPhone == phone && v.IsActive() {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (f *fakeVisitRepo) CountActive(ctx context.Context, phone string) (int, error) {
	return len(f.activeByPhone(phone)), nil
}

func (f *fakeVisitRepo) RecordVisit(ctx context.Context, v *model.Visit, cardSize int) error {
	cp := *v
	f.visits[v.ID] = &cp
	if len(f.activeByPhone(v.CustomerPhone)) > cardSize {
		delete(f.visits, v.ID) // rollback
		return model.ErrCardFull
	}
	return nil
}

func (f *fakeVisitRepo) IssueReward(ctx context.Context, params repository.IssueRewardParams) ([]uuid.UUID, error) {
	active := f.activeByPhone(params.CustomerPhone)
	if len(active) < params.CardSize {
		return nil, model.ErrCardNotFull
	}

	phone := params.CustomerPhone
	f.vouchers[params.VoucherID] = &vouchermodel.Voucher{
		ID:            params.VoucherID,
		Code:          params.Code,
		TemplateID:    params.TemplateID,
		Status:        vouchermodel.StatusActive,
		BindedToPhone: &phone,
		ExpiryDate:    &params.ExpiryDate,
		ApprovedAt:    &params.IssuedAt,
		ApprovedBy:    &params.ApprovedBy,
		CreatedAt:     params.IssuedAt,
	}

	var ids []uuid.UUID
	for _, v := range active[:params.CardSize] {
		v.IsRewardGenerated = true
		v.RewardVoucherID = &params.VoucherID
		ids = append(ids, v.ID)
	}
	return ids, nil
}

func (f *fakeVisitRepo) Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error {
	v, ok := f.visits[id]
	if !ok {
		return model.ErrVisitNotFound
	}
	if v.IsRewardGenerated {
		return model.ErrVisitImmutable
	}
	if v.RevokedAt != nil {
		return model.ErrAlreadyRevoked
	}
	now := time.Now()
	v.RevokedAt = &now
	v.RevokedBy = &revokedBy
	v.RevocationReason = &reason
	return nil
}

// historyByPhone: toàn bộ visit của khách (mới nhất trước), join code
// voucher thưởng như query thật.
func (f *fakeVisitRepo) historyByPhone(phone string) []model.Visit {
	var result []model.Visit
	for _, v := range f.visits {
		if v.CustomerPhone != phone {
			continue
		}
		cp := *v
		if cp.RewardVoucherID != nil {
			if voucher, ok := f.vouchers[*cp.RewardVoucherID]; ok {
				code := voucher.Code
				cp.RewardVoucherCode = &code
			}
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (f *fakeVisitRepo) ListByPhone(ctx context.Context, phone string, p utils.Pagination) ([]model.Visit, int, error) {
	result := f.historyByPhone(phone)
	return result, len(result), nil
}

func (f *fakeVisitRepo) GetProgress(ctx context.Context, phone string, cardSize int) (*model.Progress, error) {
	progress := &model.Progress{
		CustomerPhone: phone,
		CardSize:      cardSize,
		History:       f.historyByPhone(phone),
	}
	for _, v := range progress.History {
		if v.IsActive() {
			progress.ActiveVisits++
		}
		if v.IsRewardGenerated && progress.LastRewardVoucherID == nil {
			progress.LastRewardVoucherID = v.RewardVoucherID
			progress.LastRewardVoucherCode = v.RewardVoucherCode
		}
	}
	progress.RewardReady = progress.ActiveVisits >= cardSize
	return progress, nil
}

// fakeCustomerRepo chỉ cần FindByPhone cho visit service
type fakeCustomerRepo struct {
	customerrepo.CustomerRepository
	phones map[string]*customermodel.Customer
}

func (f *fakeCustomerRepo) FindByPhone(ctx context.Context, phone string) (*customermodel.Customer, error) {
	c, ok := f.phones[phone]
	if !ok {
		return nil, customermodel.ErrCustomerNotFound
	}
	return c, nil
}

// fakeVoucherRepo: stamp engine chỉ dùng LiveCodes và FindByID
type fakeVoucherRepo struct {
	voucherrepo.VoucherRepository
	visitRepo *fakeVisitRepo
}

func (f *fakeVoucherRepo) LiveCodes(ctx context.Context) (map[string]struct{}, error) {
	codes := map[string]struct{}{}
	for _, v := range f.visitRepo.vouchers {
		if v.IsLive() {
			codes[v.Code] = struct{}{}
		}
	}
	return codes, nil
}

func (f *fakeVoucherRepo) FindByID(ctx context.Context, id uuid.UUID) (*vouchermodel.Voucher, error) {
	v, ok := f.visitRepo.vouchers[id]
	if !ok {
		return nil, vouchermodel.ErrVoucherNotFound
	}
	cp := *v
	return &cp, nil
}

type fakeTemplateRepo struct {
	templaterepo.TemplateRepository
	templates []*templatemodel.Template
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, id uuid.UUID) (*templatemodel.Template, error) {
	for _, t := range f.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, templatemodel.ErrTemplateNotFound
}

func (f *fakeTemplateRepo) FindDefault(ctx context.Context) (*templatemodel.Template, error) {
	if len(f.templates) == 0 {
		return nil, templatemodel.ErrNoTemplates
	}
	return f.templates[0], nil
}

// =====================================================
// TEST SETUP
// =====================================================

func newTestService(t *testing.T) (ServiceInterface, *fakeVisitRepo) {
	t.Helper()

	visits := newFakeVisitRepo()
	customers := &fakeCustomerRepo{phones: map[string]*customermodel.Customer{
		"912345678": {ID: uuid.New(), PhoneNumber: "912345678", Name: "Nguyen Van A"},
	}}
	vouchers := &fakeVoucherRepo{visitRepo: visits}
	templates := &fakeTemplateRepo{}

	svc := NewVisitService(visits, customers, vouchers, templates, audit.NopSink{}, testCardSize, 30)
	return svc, visits
}

func staffActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Phone: "900000000", Role: shared.RoleStaff}
}

func adminActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Phone: "911111111", Role: shared.RoleAdmin}
}

func recordVisits(t *testing.T, svc ServiceInterface, n int) []*model.Visit {
	t.Helper()
	visits := make([]*model.Visit, 0, n)
	for i := 0; i < n; i++ {
		v, err := svc.RecordVisit(context.Background(), &model.RecordVisitRequest{
			PhoneNumber: "0912345678",
		}, staffActor())
		require.NoError(t, err)
		visits = append(visits, v)
	}
	return visits
}

// =====================================================
// RECORD VISIT
// =====================================================

func TestRecordVisit_StampsCard(t *testing.T) {
	svc, _ := newTestService(t)

	visit, err := svc.RecordVisit(context.Background(), &model.RecordVisitRequest{
		PhoneNumber: "0912 345 678",
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "912345678", visit.CustomerPhone, "phone must be normalized")
	assert.True(t, visit.IsActive())

	progress, err := svc.GetProgress(context.Background(), "0912345678")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.ActiveVisits)
	assert.False(t, progress.RewardReady)
}

func TestRecordVisit_UnknownCustomerRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RecordVisit(context.Background(), &model.RecordVisitRequest{
		PhoneNumber: "0999999999",
	}, staffActor())

	assert.ErrorIs(t, err, customermodel.ErrCustomerNotFound)
}

func TestRecordVisit_EleventhVisitRejectedUntilReward(t *testing.T) {
	svc, _ := newTestService(t)
	recordVisits(t, svc, testCardSize)

	_, err := svc.RecordVisit(context.Background(), &model.RecordVisitRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	assert.ErrorIs(t, err, model.ErrCardFull)

	// Sau khi đổi thưởng, thẻ quay về không và tích tiếp được
	_, err = svc.IssueReward(context.Background(), &model.IssueRewardRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	require.NoError(t, err)

	_, err = svc.RecordVisit(context.Background(), &model.RecordVisitRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	assert.NoError(t, err)
}

// =====================================================
// ISSUE REWARD
// =====================================================

func TestIssueReward_BelowCardSizeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	recordVisits(t, svc, testCardSize-1)

	_, err := svc.IssueReward(context.Background(), &model.IssueRewardRequest{
		PhoneNumber: "0912345678",
	}, staffActor())

	assert.ErrorIs(t, err, model.ErrCardNotFull)
}

func TestIssueReward_MintsActiveBoundVoucher(t *testing.T) {
	svc, _ := newTestService(t)
	recordVisits(t, svc, testCardSize)

	voucher, err := svc.IssueReward(context.Background(), &model.IssueRewardRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, vouchermodel.StatusActive, voucher.Status)
	require.NotNil(t, voucher.BindedToPhone)
	assert.Equal(t, "912345678", *voucher.BindedToPhone)
	assert.NotEmpty(t, voucher.Code)
	require.NotNil(t, voucher.ExpiryDate)
	assert.True(t, voucher.ExpiryDate.After(time.Now()))
}

func TestIssueReward_ConsumesOldestVisitsFIFO(t *testing.T) {
	svc, visits := newTestService(t)

	// 10 visit đầu + 2 visit sẽ không được tích vì thẻ đầy - ghi nhận
	// đủ 10, đổi thưởng, rồi tích thêm 2
	first := recordVisits(t, svc, testCardSize)

	_, err := svc.IssueReward(context.Background(), &model.IssueRewardRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	require.NoError(t, err)

	for _, v := range first {
		stored, err := visits.FindByID(context.Background(), v.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsRewardGenerated, "all ten oldest visits must be consumed")
		assert.NotNil(t, stored.RewardVoucherID)
	}

	progress, err := svc.GetProgress(context.Background(), "0912345678")
	require.NoError(t, err)
	assert.Equal(t, 0, progress.ActiveVisits)
}

// =====================================================
// PROGRESS
// =====================================================

func TestGetProgress_HistoryIncludesRevokedAndRewarded(t *testing.T) {
	svc, _ := newTestService(t)

	recordVisits(t, svc, testCardSize)
	voucher, err := svc.IssueReward(context.Background(), &model.IssueRewardRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	require.NoError(t, err)

	after := recordVisits(t, svc, 3)
	require.NoError(t, svc.RevokeVisit(context.Background(), after[0].ID, &model.RevokeVisitRequest{
		Reason: "duplicate entry",
	}, adminActor()))

	progress, err := svc.GetProgress(context.Background(), "0912345678")
	require.NoError(t, err)

	// Lịch sử đầy đủ: 10 đã đổi thưởng + 1 đã thu hồi + 2 active
	assert.Len(t, progress.History, testCardSize+3)
	assert.Equal(t, 2, progress.ActiveVisits)
	assert.False(t, progress.RewardReady)

	var rewarded, revoked int
	for _, v := range progress.History {
		if v.IsRewardGenerated {
			rewarded++
			require.NotNil(t, v.RewardVoucherCode)
			assert.Equal(t, voucher.Code, *v.RewardVoucherCode)
		}
		if v.RevokedAt != nil {
			revoked++
		}
	}
	assert.Equal(t, testCardSize, rewarded)
	assert.Equal(t, 1, revoked)

	require.NotNil(t, progress.LastRewardVoucherID)
	assert.Equal(t, voucher.ID, *progress.LastRewardVoucherID)
	require.NotNil(t, progress.LastRewardVoucherCode)
	assert.Equal(t, voucher.Code, *progress.LastRewardVoucherCode)
}

// =====================================================
// REVOKE
// =====================================================

func TestRevokeVisit_RemovesStamp(t *testing.T) {
	svc, _ := newTestService(t)
	visits := recordVisits(t, svc, 3)

	err := svc.RevokeVisit(context.Background(), visits[0].ID, &model.RevokeVisitRequest{
		Reason: "duplicate entry",
	}, adminActor())
	require.NoError(t, err)

	progress, err := svc.GetProgress(context.Background(), "0912345678")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.ActiveVisits)
}

func TestRevokeVisit_TwiceRejected(t *testing.T) {
	svc, _ := newTestService(t)
	visits := recordVisits(t, svc, 1)

	req := &model.RevokeVisitRequest{Reason: "mistake"}
	require.NoError(t, svc.RevokeVisit(context.Background(), visits[0].ID, req, adminActor()))

	err := svc.RevokeVisit(context.Background(), visits[0].ID, req, adminActor())
	assert.ErrorIs(t, err, model.ErrAlreadyRevoked)
}

func TestRevokeVisit_RewardedVisitImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	visits := recordVisits(t, svc, testCardSize)

	_, err := svc.IssueReward(context.Background(), &model.IssueRewardRequest{
		PhoneNumber: "0912345678",
	}, staffActor())
	require.NoError(t, err)

	err = svc.RevokeVisit(context.Background(), visits[0].ID, &model.RevokeVisitRequest{
		Reason: "too late",
	}, adminActor())
	assert.ErrorIs(t, err, model.ErrVisitImmutable)
}

func TestRevokeVisit_StaffForbidden(t *testing.T) {
	svc, repo := newTestService(t)
	visits := recordVisits(t, svc, 1)

	err := svc.RevokeVisit(context.Background(), visits[0].ID, &model.RevokeVisitRequest{
		Reason: "duplicate entry",
	}, staffActor())
	assert.ErrorIs(t, err, model.ErrRevokeForbidden)

	// Visit không bị đụng tới
	stored, err := repo.FindByID(context.Background(), visits[0].ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RevokedAt)
}

func TestRevokeVisit_RequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	visits := recordVisits(t, svc, 1)

	err := svc.RevokeVisit(context.Background(), visits[0].ID, &model.RevokeVisitRequest{}, adminActor())

	var visitErr *model.VisitError
	require.ErrorAs(t, err, &visitErr)
	assert.Equal(t, model.ErrCodeValidationFailed, visitErr.Code)
}
