package main

import (
	"github.com/hibiken/asynq"

	auditJob "loyalty-backend/internal/domains/audit/job"
	voucherJob "loyalty-backend/internal/domains/voucher/job"
	"loyalty-backend/internal/shared"
	"loyalty-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	auditRecord  *auditJob.RecordHandler
	expiryReport *voucherJob.ExpiryReportHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		auditRecord:  auditJob.NewRecordHandler(c.AuditRepo),
		expiryReport: voucherJob.NewExpiryReportHandler(c.VoucherRepo),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeAuditRecord, h.auditRecord.ProcessTask)
	mux.HandleFunc(shared.TypeVoucherExpiryRun, h.expiryReport.ProcessTask)
}
