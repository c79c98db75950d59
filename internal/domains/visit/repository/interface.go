package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/visit/model"
	"loyalty-backend/internal/shared/utils"
)

// IssueRewardParams mô tả voucher thưởng sẽ được phát hành cùng lúc với
// việc đóng băng các visit tham gia thưởng.
type IssueRewardParams struct {
	CustomerPhone string
	CardSize      int

	VoucherID  uuid.UUID
	Code       string
	TemplateID *uuid.UUID
	ExpiryDate time.Time
	ApprovedBy uuid.UUID
	IssuedAt   time.Time
}

// VisitRepository persist stamp card. RecordVisit và IssueReward là các
// atomic unit - chúng tự mở transaction để invariant về card size và
// FIFO consumption không phụ thuộc caller.
type VisitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Visit, error)

	// CountActive đếm số visit đang đếm vào thẻ hiện tại của một khách.
	CountActive(ctx context.Context, phone string) (int, error)

	// RecordVisit insert một visit mới, giữ advisory lock theo khách để
	// serialize các lần ghi đồng thời. Nếu sau insert số visit active
	// vượt cardSize thì rollback và trả ErrCardFull - chặn cả race hai
	// nhân viên cùng ghi nhận visit thứ mười.
	RecordVisit(ctx context.Context, v *model.Visit, cardSize int) error

	// IssueReward phát hành voucher thưởng và đóng băng cardSize visit
	// active cũ nhất (FIFO theo created_at) trong một transaction.
	// Trả về id các visit đã đóng băng.
	IssueReward(ctx context.Context, params IssueRewardParams) ([]uuid.UUID, error)

	// Revoke thu hồi một visit chưa đổi thưởng. Guard revoked/immutable
	// nằm ngay trong câu UPDATE để không phụ thuộc read-then-write.
	Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error

	ListByPhone(ctx context.Context, phone string, p utils.Pagination) ([]model.Visit, int, error)

	// GetProgress trả về trạng thái thẻ hiện tại kèm toàn bộ lịch sử
	// visit (kể cả đã thu hồi/đã đổi thưởng, join code voucher thưởng).
	GetProgress(ctx context.Context, phone string, cardSize int) (*model.Progress, error)
}
