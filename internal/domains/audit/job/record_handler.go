package job

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"loyalty-backend/internal/domains/audit/model"
	"loyalty-backend/internal/domains/audit/repository"
	"loyalty-backend/pkg/logger"
)

// RecordHandler consume task audit:record và persist xuống audit_logs
type RecordHandler struct {
	repo repository.AuditRepository
}

func NewRecordHandler(repo repository.AuditRepository) *RecordHandler {
	return &RecordHandler{repo: repo}
}

func (h *RecordHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload model.RecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Error("audit record: unmarshal failed", err)
		return err
	}

	entry := &model.AuditLog{
		ID:        uuid.New(),
		Action:    payload.Action,
		Details:   payload.Details,
		ActorID:   payload.ActorID,
		ActorRole: payload.ActorRole,
		SourceIP:  payload.SourceIP,
		CreatedAt: payload.At,
	}

	if err := h.repo.Insert(ctx, entry); err != nil {
		logger.Error("audit record: insert failed", err)
		return err
	}

	log.Debug().
		Str("action", payload.Action).
		Str("actor_id", payload.ActorID.String()).
		Msg("Audit record persisted")
	return nil
}
