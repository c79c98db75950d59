package shared

import "github.com/google/uuid"

// Actor roles
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Asynq task types
const (
	TypeAuditRecord      = "audit:record"
	TypeVoucherExpiryRun = "voucher:expiry_report"
)

// Asynq queue names
const (
	QueueAudit       = "audit"
	QueueMaintenance = "maintenance"
	QueueDefault     = "default"
)

// Actor là identity của người đang thực hiện request (staff/admin/customer).
// Luôn được truyền vào service layer như một tham số tường minh,
// không đi qua global state.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Phone string    `json:"phone"`
	Role  string    `json:"role"`
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsStaff reports whether the actor can perform staff-side operations
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}
