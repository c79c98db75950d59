package service

import (
	"math/rand"
	"strconv"
	"strings"
)

// Bảng chữ cái 32 ký tự cho voucher code: chữ hoa + số, bỏ các ký tự
// dễ nhầm lẫn khi đọc tại quầy (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	// CodeLength là độ dài chuẩn của voucher code
	CodeLength = 4

	// singleMaxAttempts - số lần thử tối đa khi phát hành một voucher
	singleMaxAttempts = 100
	// batchMaxAttempts - số lần thử tối đa cho mỗi code trong batch
	batchMaxAttempts = 50
)

// generateCode chọn một code 4 ký tự chưa nằm trong existing.
// existing là uniqueness set tính tại thời điểm request: code của mọi
// voucher chưa xóa đang ở status available/active. Code của voucher
// claimed/deleted KHÔNG nằm trong set - chúng được phép tái sử dụng.
//
// Khi hết maxAttempts (pool gần cạn), fallback sang một chuỗi alnum
// lowercase dài hơn thay vì loop vô hạn.
//
// Race giữa hai request cùng chọn một code được unique constraint trên
// cột code xử lý - caller retry khi insert trả về uniqueness violation.
func generateCode(existing map[string]struct{}, maxAttempts int) string {
	buf := make([]byte, CodeLength)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		for i := range buf {
			buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := existing[code]; !taken {
			return code
		}
	}

	return fallbackCode()
}

// fallbackCode sinh chuỗi pseudo-random dài hơn khi short pool cạn
func fallbackCode() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(rand.Uint64(), 36))
	sb.WriteString(strconv.FormatUint(rand.Uint64(), 36))
	return sb.String()
}

// generateBatchCodes sinh n code không trùng nhau và không trùng existing.
// Set được mutate in-memory sau mỗi code để các code trong cùng batch
// không collide với nhau trước khi insert.
func generateBatchCodes(existing map[string]struct{}, n int) []string {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		code := generateCode(existing, batchMaxAttempts)
		existing[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}
