package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// ========================================
// VOUCHER DTOs
// ========================================

// CreateVoucherRequest tạo một voucher mới.
// Hoặc reuse template có sẵn (template_id), hoặc tạo template inline
// từ name/description/image_url.
type CreateVoucherRequest struct {
	TemplateID  *uuid.UUID `json:"template_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
}

func (r CreateVoucherRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.When(r.TemplateID == nil,
				validation.Required.Error("name is required when no template is given"),
				validation.Length(1, 200),
			),
		),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

// CreateVoucherBatchRequest tạo N voucher cùng template một lượt
type CreateVoucherBatchRequest struct {
	CreateVoucherRequest
	Quantity int `json:"quantity"`
}

func (r CreateVoucherBatchRequest) Validate() error {
	if err := r.CreateVoucherRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be at least 1"),
			validation.Max(500).Error("quantity cannot exceed 500"),
		),
	)
}

// BindVoucherRequest gán một voucher available cho khách theo code
type BindVoucherRequest struct {
	Code        string     `json:"code"`
	PhoneNumber string     `json:"phone_number"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

func (r BindVoucherRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required.Error("code is required")),
		validation.Field(&r.PhoneNumber,
			validation.Required.Error("phone_number is required"),
			validation.Length(8, 15),
		),
	)
}

// BulkBindRequest gán N voucher available cùng tên cho N số điện thoại
// theo thứ tự trong list. Fail toàn bộ nếu không đủ voucher.
type BulkBindRequest struct {
	VoucherName  string     `json:"voucher_name"`
	PhoneNumbers []string   `json:"phone_numbers"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
}

func (r BulkBindRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.VoucherName, validation.Required.Error("voucher_name is required")),
		validation.Field(&r.PhoneNumbers,
			validation.Required.Error("phone_numbers is required"),
			validation.Length(1, 0).Error("at least one phone number is required"),
			validation.Each(validation.Required, validation.Length(8, 15)),
		),
	)
}

// ClaimVoucherRequest - staff redeem voucher tại quầy.
// SpentAmount nhận dạng string từ form input, service parse và clamp về >= 0.
type ClaimVoucherRequest struct {
	SpentAmount string `json:"spent_amount"`
}

func (r ClaimVoucherRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SpentAmount, validation.Required.Error("spent_amount is required")),
	)
}

// UpdateVoucherRequest patch metadata của voucher.
// Cố ý không có field status - mọi chuyển trạng thái phải đi qua
// bind/claim, không cho admin set status trực tiếp.
type UpdateVoucherRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

func (r UpdateVoucherRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.When(r.Name != nil, validation.Length(1, 200))),
		validation.Field(&r.Description, validation.When(r.Description != nil, validation.Length(0, 1000))),
	)
}

// ========================================
// LIST / FILTER DTOs
// ========================================

// ListFilter lọc voucher cho listing.
// Status nhận các giá trị exact (available/claimed) cộng hai filter dẫn xuất:
// "active" = active chưa hết hạn, "expired" = active đã quá expiry_date.
type ListFilter struct {
	Statuses   []string
	BoundPhone string
	Search     string // match theo code hoặc tên template
	TemplateID *uuid.UUID
}

// VoucherResponse là voucher kèm presentation data từ template
type VoucherResponse struct {
	Voucher
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}
