package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-backend/internal/domains/audit"
	"loyalty-backend/internal/domains/customer/model"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/utils"
)

// =====================================================
// IN-MEMORY FAKE
// =====================================================

type fakeCustomerRepo struct {
	customers map[uuid.UUID]*model.Customer

	// rebinds ghi lại các lần RebindPhone được gọi (oldPhone → newPhone)
	rebinds [][2]string
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: map[uuid.UUID]*model.Customer{}}
}

func (f *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok || c.DeletedAt != nil {
		return nil, model.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomerRepo) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.PhoneNumber == phone && c.DeletedAt == nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, model.ErrCustomerNotFound
}

func (f *fakeCustomerRepo) List(ctx context.Context, search string, p utils.Pagination) ([]model.Customer, int, error) {
	var result []model.Customer
	for _, c := range f.customers {
		if c.DeletedAt == nil {
			result = append(result, *c)
		}
	}
	return result, len(result), nil
}

func (f *fakeCustomerRepo) Insert(ctx context.Context, c *model.Customer) error {
	for _, existing := range f.customers {
		if existing.PhoneNumber == c.PhoneNumber && existing.DeletedAt == nil {
			return model.ErrPhoneTaken
		}
	}
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeCustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	if _, ok := f.customers[c.ID]; !ok {
		return model.ErrCustomerNotFound
	}
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeCustomerRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, ok := f.customers[id]
	if !ok || c.DeletedAt != nil {
		return model.ErrCustomerNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (f *fakeCustomerRepo) RebindPhone(ctx context.Context, c *model.Customer, oldPhone string) error {
	f.rebinds = append(f.rebinds, [2]string{oldPhone, c.PhoneNumber})
	return f.Update(ctx, c)
}

// =====================================================
// TESTS
// =====================================================

func newTestService(t *testing.T) (ServiceInterface, *fakeCustomerRepo) {
	t.Helper()
	repo := newFakeCustomerRepo()
	return NewCustomerService(repo, audit.NopSink{}), repo
}

func staffActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Phone: "912345678", Role: shared.RoleStaff}
}

func TestCreate_StoresNormalizedPhone(t *testing.T) {
	svc, _ := newTestService(t)

	customer, err := svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "0912 345 678",
		Name:        "Nguyen Van A",
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "912345678", customer.PhoneNumber)
	assert.Equal(t, int64(0), customer.TotalSpending)
}

func TestCreate_DuplicatePhoneRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "0912345678",
		Name:        "Nguyen Van A",
	}, staffActor())
	require.NoError(t, err)

	// Cùng số sau normalize, dù format khác
	_, err = svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "912-345-678",
		Name:        "Nguyen Van B",
	}, staffActor())
	assert.ErrorIs(t, err, model.ErrPhoneTaken)
}

func TestUpdate_NameOnlyDoesNotRebind(t *testing.T) {
	svc, repo := newTestService(t)
	customer, err := svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "0912345678",
		Name:        "Nguyen Van A",
	}, staffActor())
	require.NoError(t, err)

	newName := "Nguyen Van B"
	updated, err := svc.Update(context.Background(), customer.ID, &model.UpdateCustomerRequest{
		Name: &newName,
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "Nguyen Van B", updated.Name)
	assert.Empty(t, repo.rebinds, "no phone change, rebind coordinator must not run")
}

func TestUpdate_SamePhoneDifferentFormatDoesNotRebind(t *testing.T) {
	svc, repo := newTestService(t)
	customer, err := svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "0912345678",
		Name:        "Nguyen Van A",
	}, staffActor())
	require.NoError(t, err)

	// "0912 345 678" normalize về đúng số đang lưu
	samePhone := "0912 345 678"
	_, err = svc.Update(context.Background(), customer.ID, &model.UpdateCustomerRequest{
		PhoneNumber: &samePhone,
	}, staffActor())
	require.NoError(t, err)

	assert.Empty(t, repo.rebinds)
}

func TestUpdate_PhoneChangeTriggersRebind(t *testing.T) {
	svc, repo := newTestService(t)
	customer, err := svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "0912345678",
		Name:        "Nguyen Van A",
	}, staffActor())
	require.NoError(t, err)

	newPhone := "0987654321"
	updated, err := svc.Update(context.Background(), customer.ID, &model.UpdateCustomerRequest{
		PhoneNumber: &newPhone,
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "987654321", updated.PhoneNumber)
	require.Len(t, repo.rebinds, 1)
	assert.Equal(t, [2]string{"912345678", "987654321"}, repo.rebinds[0])
}

func TestDelete_RemovedCustomerNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	customer, err := svc.Create(context.Background(), &model.CreateCustomerRequest{
		PhoneNumber: "0912345678",
		Name:        "Nguyen Van A",
	}, staffActor())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), customer.ID, staffActor()))

	_, err = svc.GetByID(context.Background(), customer.ID)
	assert.ErrorIs(t, err, model.ErrCustomerNotFound)
}
