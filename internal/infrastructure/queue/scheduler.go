package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"loyalty-backend/internal/shared"
	"loyalty-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisAddress string) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

// RegisterMaintenanceJobs đăng ký các cron job định kỳ
func (s *Scheduler) RegisterMaintenanceJobs() error {
	return s.registerVoucherExpiryReportJob()
}

// ================================================
// JOB: Voucher Expiry Report (Daily at 2 AM)
// ================================================
// Báo cáo số voucher active đã quá expiry_date trong ngày.
// Chỉ đọc và log - expiry vẫn là so sánh tại read time, không đổi status.
func (s *Scheduler) registerVoucherExpiryReportJob() error {
	payload, err := json.Marshal(struct{}{})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeVoucherExpiryRun, payload)

	_, err = s.scheduler.Register(
		"0 2 * * *", // Daily at 2 AM
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register VoucherExpiryReport job", err)
		return err
	}

	logger.Info("Registered VoucherExpiryReport job", map[string]interface{}{
		"schedule": "0 2 * * *",
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
