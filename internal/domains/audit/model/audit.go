package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog là một action record bất đồng bộ. Ghi qua worker,
// core không chờ và không phụ thuộc vào kết quả ghi.
type AuditLog struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	Action    string                 `json:"action" db:"action"`
	Details   map[string]interface{} `json:"details" db:"details"`
	ActorID   uuid.UUID              `json:"actor_id" db:"actor_id"`
	ActorRole string                 `json:"actor_role" db:"actor_role"`
	SourceIP  string                 `json:"source_ip" db:"source_ip"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// RecordPayload là payload của task audit:record trên queue
type RecordPayload struct {
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details"`
	ActorID   uuid.UUID              `json:"actor_id"`
	ActorRole string                 `json:"actor_role"`
	SourceIP  string                 `json:"source_ip"`
	At        time.Time              `json:"at"`
}
