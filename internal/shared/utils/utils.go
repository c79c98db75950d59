package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnvVariable lấy environment variable với fallback default value
func GetEnvVariable(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt lấy environment variable dạng int với fallback default value
func GetEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// NormalizePhone chuẩn hóa số điện thoại trước khi lưu/lookup.
// Bỏ whitespace và dấu gạch, rồi bỏ số "0" đứng đầu.
// "0912 345 678" và "912345678" đều map về "912345678".
func NormalizePhone(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	return strings.TrimPrefix(cleaned, "0")
}

// IsDigits reports whether s is non-empty and contains only ASCII digits
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
