package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"loyalty-backend/internal/domains/audit/model"
	"loyalty-backend/internal/shared"
	"loyalty-backend/internal/shared/middleware"
	"loyalty-backend/pkg/logger"
)

// Sink nhận action record, fire-and-forget.
// Core gọi Record sau khi transaction chính đã commit và không bao giờ
// fail vì audit - mọi lỗi enqueue chỉ được log rồi nuốt.
type Sink interface {
	Record(ctx context.Context, action string, details map[string]interface{}, actor shared.Actor)
}

type asynqSink struct {
	client *asynq.Client
}

func NewAsynqSink(client *asynq.Client) Sink {
	return &asynqSink{client: client}
}

func (s *asynqSink) Record(ctx context.Context, action string, details map[string]interface{}, actor shared.Actor) {
	payload := model.RecordPayload{
		Action:    action,
		Details:   details,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		SourceIP:  middleware.ClientIPFromContext(ctx),
		At:        time.Now(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("audit: marshal payload failed", err)
		return
	}

	task := asynq.NewTask(shared.TypeAuditRecord, raw)
	if _, err := s.client.Enqueue(task, asynq.Queue(shared.QueueAudit), asynq.MaxRetry(3)); err != nil {
		logger.Error("audit: enqueue failed", err)
	}
}

// NopSink dùng trong test hoặc khi không có queue
type NopSink struct{}

func (NopSink) Record(context.Context, string, map[string]interface{}, shared.Actor) {}
