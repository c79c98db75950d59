package job

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"loyalty-backend/internal/domains/voucher/repository"
	"loyalty-backend/pkg/logger"
)

// ExpiryReportHandler chạy theo lịch (cron phía scheduler): đếm voucher
// active đã quá hạn trong 24h vừa rồi và log báo cáo cho vận hành.
// Voucher hết hạn KHÔNG bị đổi status - hết hạn là thuộc tính dẫn xuất
// từ expiry_date, báo cáo này chỉ để theo dõi.
type ExpiryReportHandler struct {
	repo repository.VoucherRepository
}

func NewExpiryReportHandler(repo repository.VoucherRepository) *ExpiryReportHandler {
	return &ExpiryReportHandler{repo: repo}
}

func (h *ExpiryReportHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	count, err := h.repo.CountExpiredSince(ctx, since, now)
	if err != nil {
		logger.Error("voucher expiry report failed", err)
		return err
	}

	log.Info().
		Int("expired_count", count).
		Time("window_start", since).
		Time("window_end", now).
		Msg("Daily voucher expiry report")
	return nil
}
