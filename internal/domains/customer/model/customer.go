package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Customer là một user của chương trình loyalty.
// PhoneNumber là identifying key: unique, đã normalize (bỏ số 0 đầu),
// và là cột mà voucher/visit tham chiếu tới.
type Customer struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PhoneNumber string     `json:"phone_number" db:"phone_number"`
	Name        string     `json:"name" db:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`

	// Aggregate chi tiêu, đơn vị nhỏ nhất. Chỉ tăng, không bao giờ giảm -
	// mỗi lần claim voucher có gán khách sẽ cộng vào đây.
	TotalSpending int64 `json:"total_spending" db:"total_spending"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// =====================================================
// ERROR DEFINITIONS
// =====================================================
const (
	ErrCodeCustomerNotFound = "CUS001"
	ErrCodePhoneTaken       = "CUS002"
	ErrCodeValidationFailed = "CUS003"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrPhoneTaken       = errors.New("phone number already exists")
)

type CustomerError struct {
	Code    string
	Message string
	Err     error
}

func (e *CustomerError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomerError) Unwrap() error {
	return e.Err
}

func NewCustomerError(code, message string, err error) *CustomerError {
	return &CustomerError{Code: code, Message: message, Err: err}
}
