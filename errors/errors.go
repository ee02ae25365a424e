package errors

import (
	"errors"
	"fmt"
)

// ErrorCode định nghĩa mã lỗi
type ErrorCode string

const (
	// Auth errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeInvalidRole  ErrorCode = "INVALID_ROLE"

	// Booking errors
	ErrCodeBookingNotFound    ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeRoomUnavailable    ErrorCode = "ROOM_UNAVAILABLE"
	ErrCodeNotCancellable     ErrorCode = "BOOKING_NOT_CANCELLABLE"
	ErrCodeCancellationLocked ErrorCode = "CANCELLATION_LOCKED"

	// Voucher errors
	ErrCodeVoucherNotFound      ErrorCode = "VOUCHER_NOT_FOUND"
	ErrCodeVoucherInactive      ErrorCode = "VOUCHER_INACTIVE"
	ErrCodeVoucherUsageExceeded ErrorCode = "VOUCHER_USAGE_LIMIT_EXCEEDED"
	ErrCodeVoucherMinOrder      ErrorCode = "INVALID_MIN_ORDER_VALUE"
	ErrCodeVoucherInvalidDate   ErrorCode = "VOUCHER_INVALID_DATE"

	// Payment errors
	ErrCodePaymentNotFound ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidMac      ErrorCode = "INVALID_MAC"
	ErrCodeNotRefundable   ErrorCode = "NOT_REFUNDABLE"
	ErrCodeGatewayError    ErrorCode = "GATEWAY_ERROR"

	// Database errors
	ErrCodeDBError    ErrorCode = "DB_ERROR"
	ErrCodeDBNotFound ErrorCode = "DB_NOT_FOUND"

	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeRequiredField ErrorCode = "REQUIRED_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	ErrCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"
)

// AppError định nghĩa lỗi của ứng dụng
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewAppError tạo một AppError mới
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetAppError lấy AppError từ error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

var (
	// Booking errors
	ErrBookingNotFound   = errors.New("booking not found")
	ErrBookingCancelled  = errors.New("booking already cancelled")
	ErrBookingCompleted  = errors.New("booking already completed")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomNotAvailable  = errors.New("room not available")
	ErrCancellationLock  = errors.New("too close to check-in to cancel")
	ErrNotCancellable    = errors.New("cannot cancel in current state")
	ErrForbidden         = errors.New("not allowed on this booking")

	// Payment errors
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNotRefundable   = errors.New("booking not refundable")
	ErrRefundFailed    = errors.New("refund failed")
	ErrInvalidMac      = errors.New("invalid mac")
	ErrGateway         = errors.New("payment gateway error")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
