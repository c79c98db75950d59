package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Template là presentation data dùng chung cho một nhóm voucher:
// tên, mô tả, ảnh. Voucher trỏ về template qua template_id.
type Template struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

const (
	ErrCodeTemplateNotFound = "TPL001"
	ErrCodeNoTemplates      = "TPL002"
	ErrCodeValidationFailed = "TPL003"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrNoTemplates      = errors.New("no voucher templates exist")
)

// CreateTemplateRequest tạo template mới
type CreateTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

func (r CreateTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 200),
		),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

// UpdateTemplateRequest patch từng field của template
type UpdateTemplateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

func (r UpdateTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.When(r.Name != nil, validation.Length(1, 200))),
		validation.Field(&r.Description, validation.When(r.Description != nil, validation.Length(0, 1000))),
	)
}
