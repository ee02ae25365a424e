package validator

import (
	"regexp"
	"time"

	"gostay/constants"
	"gostay/dto"
	"gostay/errors"
)

// isValidEmail kiểm tra email hợp lệ
func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// isValidPhone kiểm tra số điện thoại hợp lệ
func isValidPhone(phone string) bool {
	phoneRegex := regexp.MustCompile(`^[0-9]{10}$`)
	return phoneRegex.MatchString(phone)
}

// ValidateCreateBooking kiểm tra dữ liệu đầu vào khi tạo booking.
// Thông tin liên hệ luôn bắt buộc; thông tin khách lưu trú chỉ bắt buộc
// khi đặt hộ người khác.
func ValidateCreateBooking(req *dto.CreateBookingRequest) error {
	if req.RoomID == 0 {
		return errors.NewAppError(errors.ErrCodeRequiredField, "ID phòng không được để trống", nil)
	}

	if req.ContactInfo.Name == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Tên liên hệ không được để trống", nil)
	}
	if req.ContactInfo.Email == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Email liên hệ không được để trống", nil)
	}
	if !isValidEmail(req.ContactInfo.Email) {
		return errors.NewAppError(errors.ErrCodeInvalidFormat, "Email liên hệ không hợp lệ", nil)
	}
	if req.ContactInfo.Phone == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Số điện thoại liên hệ không được để trống", nil)
	}
	if !isValidPhone(req.ContactInfo.Phone) {
		return errors.NewAppError(errors.ErrCodeInvalidFormat, "Số điện thoại liên hệ không hợp lệ", nil)
	}

	if req.BookingFor == "other" {
		if req.GuestInfo == nil || req.GuestInfo.Name == "" {
			return errors.NewAppError(errors.ErrCodeRequiredField, "Tên khách lưu trú không được để trống", nil)
		}
		if req.GuestInfo.Phone == "" {
			return errors.NewAppError(errors.ErrCodeRequiredField, "Số điện thoại khách lưu trú không được để trống", nil)
		}
		if !isValidPhone(req.GuestInfo.Phone) {
			return errors.NewAppError(errors.ErrCodeInvalidFormat, "Số điện thoại khách lưu trú không hợp lệ", nil)
		}
		if req.GuestInfo.Email != "" && !isValidEmail(req.GuestInfo.Email) {
			return errors.NewAppError(errors.ErrCodeInvalidFormat, "Email khách lưu trú không hợp lệ", nil)
		}
	}

	switch req.PaymentMethod {
	case constants.PaymentMethodZaloPay, constants.PaymentMethodVNPay,
		constants.PaymentMethodCreditCard, constants.PaymentMethodPayPal:
	default:
		return errors.NewAppError(errors.ErrCodeValidation, "Phương thức thanh toán không hợp lệ", nil)
	}

	return nil
}

// ValidateBookingDates kiểm tra khoảng ngày đặt phòng:
// checkIn không được trước hôm nay (so sánh theo ngày), checkOut phải sau checkIn.
func ValidateBookingDates(checkIn, checkOut, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	checkInDay := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, now.Location())

	if checkInDay.Before(today) {
		return errors.NewAppError(errors.ErrCodeValidation, "Ngày nhận phòng không được nhỏ hơn ngày hiện tại", nil)
	}
	if !checkOut.After(checkIn) {
		return errors.NewAppError(errors.ErrCodeValidation, "Ngày trả phòng phải sau ngày nhận phòng", nil)
	}
	return nil
}

// ValidateVoucherInput kiểm tra dữ liệu khi tạo voucher
func ValidateVoucherInput(req *dto.CreateVoucherRequest) error {
	if req.Code == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Mã giảm giá không được để trống", nil)
	}
	if req.Discount < 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "Mức giảm giá không được âm", nil)
	}
	if req.DiscountType != constants.DiscountTypeFixed && req.DiscountType != constants.DiscountTypePercentage {
		return errors.NewAppError(errors.ErrCodeValidation, "Loại giảm giá không hợp lệ", nil)
	}
	if req.MinOrderValue < 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "Giá trị đơn tối thiểu không được âm", nil)
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "Giới hạn lượt dùng phải lớn hơn 0", nil)
	}

	if _, err := time.Parse("02/01/2006", req.StartDate); err != nil {
		return errors.NewAppError(errors.ErrCodeInvalidFormat, "Định dạng ngày bắt đầu không hợp lệ", err)
	}
	if _, err := time.Parse("02/01/2006", req.ExpiryDate); err != nil {
		return errors.NewAppError(errors.ErrCodeInvalidFormat, "Định dạng ngày hết hạn không hợp lệ", err)
	}

	return nil
}
