package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// ========================================
// VISIT DTOs
// ========================================

type RecordVisitRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (r RecordVisitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber,
			validation.Required.Error("phone_number is required"),
			validation.Length(8, 15),
		),
	)
}

// IssueRewardRequest đổi một thẻ đầy lấy voucher thưởng.
// TemplateID nil thì dùng template mặc định của chương trình.
type IssueRewardRequest struct {
	PhoneNumber string     `json:"phone_number"`
	TemplateID  *uuid.UUID `json:"template_id,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

func (r IssueRewardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber,
			validation.Required.Error("phone_number is required"),
			validation.Length(8, 15),
		),
	)
}

type RevokeVisitRequest struct {
	Reason string `json:"reason"`
}

func (r RevokeVisitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason,
			validation.Required.Error("reason is required"),
			validation.Length(1, 500),
		),
	)
}
