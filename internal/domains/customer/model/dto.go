package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ========================================
// CUSTOMER DTOs
// ========================================

type CreateCustomerRequest struct {
	PhoneNumber string     `json:"phone_number"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

func (r CreateCustomerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber,
			validation.Required.Error("phone_number is required"),
			validation.Length(8, 15),
		),
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 200),
		),
	)
}

// UpdateCustomerRequest patch thông tin khách hàng.
// Đổi phone_number sẽ kéo theo rebind toàn bộ voucher đang gán số cũ.
type UpdateCustomerRequest struct {
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Name        *string    `json:"name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

func (r UpdateCustomerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber,
			validation.When(r.PhoneNumber != nil, validation.Length(8, 15)),
		),
		validation.Field(&r.Name,
			validation.When(r.Name != nil, validation.Length(1, 200)),
		),
	)
}
