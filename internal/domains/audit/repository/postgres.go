package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"loyalty-backend/internal/domains/audit/model"
)

// AuditRepository ghi audit log - chỉ append, không update/delete
type AuditRepository interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
}

type postgresAuditRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &postgresAuditRepository{pool: pool}
}

func (r *postgresAuditRepository) Insert(ctx context.Context, entry *model.AuditLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, action, details, actor_id, actor_role, source_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.Action, details, entry.ActorID, entry.ActorRole, entry.SourceIP, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
