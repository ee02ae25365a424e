package services

import (
	"errors"
	"strings"
	"time"

	"gostay/constants"
	apperrors "gostay/errors"
	"gostay/models"

	"gorm.io/gorm"
)

// VoucherResult kết quả đánh giá voucher
type VoucherResult struct {
	Success        bool
	DiscountAmount float64
	Voucher        *models.Voucher
	ErrorCode      apperrors.ErrorCode
	Message        string
}

// VoucherService đánh giá và tiêu thụ voucher
type VoucherService struct {
	db *gorm.DB
}

func NewVoucherService(db *gorm.DB) *VoucherService {
	return &VoucherService{db: db}
}

func voucherFailure(code apperrors.ErrorCode, message string) *VoucherResult {
	return &VoucherResult{Success: false, ErrorCode: code, Message: message}
}

// ValidateVoucher kiểm tra voucher theo mã và tính số tiền giảm cho đơn.
// So sánh ngày theo lịch để voucher còn dùng được trọn ngày hết hạn.
func (s *VoucherService) ValidateVoucher(code string, orderValue float64, now time.Time) (*VoucherResult, error) {
	return s.ValidateVoucherTx(s.db, code, orderValue, now)
}

// ValidateVoucherTx như ValidateVoucher nhưng chạy trong transaction của
// caller để lượt dùng đọc được là lượt dùng sẽ bị tăng.
func (s *VoucherService) ValidateVoucherTx(tx *gorm.DB, code string, orderValue float64, now time.Time) (*VoucherResult, error) {
	var voucher models.Voucher
	err := tx.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&voucher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return voucherFailure(apperrors.ErrCodeVoucherNotFound, "Không tìm thấy mã giảm giá"), nil
	}
	if err != nil {
		return nil, err
	}

	// Voucher chạm giới hạn lượt dùng bị ApplyVoucher tự tắt, nên phải
	// kiểm tra giới hạn trước khi kiểm tra trạng thái để báo đúng lý do
	if voucher.UsageLimit != nil && voucher.UsageCount >= *voucher.UsageLimit {
		return voucherFailure(apperrors.ErrCodeVoucherUsageExceeded, "Mã giảm giá đã hết lượt sử dụng"), nil
	}

	if voucher.Status != constants.VoucherStatusActive {
		return voucherFailure(apperrors.ErrCodeVoucherInactive, "Mã giảm giá không còn hiệu lực"), nil
	}

	start := time.Date(voucher.StartDate.Year(), voucher.StartDate.Month(), voucher.StartDate.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(voucher.ExpiryDate.Year(), voucher.ExpiryDate.Month(), voucher.ExpiryDate.Day(), 23, 59, 59, 0, now.Location())
	if now.Before(start) || now.After(end) {
		return voucherFailure(apperrors.ErrCodeVoucherInvalidDate, "Mã giảm giá ngoài thời gian áp dụng"), nil
	}

	if orderValue < voucher.MinOrderValue {
		return voucherFailure(apperrors.ErrCodeVoucherMinOrder, "Đơn hàng chưa đạt giá trị tối thiểu của mã giảm giá"), nil
	}

	return &VoucherResult{
		Success:        true,
		DiscountAmount: voucher.CalculateDiscount(orderValue),
		Voucher:        &voucher,
	}, nil
}

// ApplyVoucher tăng lượt dùng và tự tắt voucher khi chạm giới hạn.
// Gọi trong cùng transaction với tạo booking; hủy booking sau đó
// không hoàn lại lượt dùng.
func (s *VoucherService) ApplyVoucher(tx *gorm.DB, voucher *models.Voucher) error {
	voucher.UsageCount++
	if voucher.UsageLimit != nil && voucher.UsageCount >= *voucher.UsageLimit {
		voucher.Status = constants.VoucherStatusInactive
	}
	return tx.Save(voucher).Error
}

// GetVouchers liệt kê voucher cho trang quản trị
func (s *VoucherService) GetVouchers() ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := s.db.Order("created_at DESC").Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// CreateVoucher tạo voucher mới (hook BeforeSave của model tự chuẩn hóa)
func (s *VoucherService) CreateVoucher(voucher *models.Voucher) error {
	return s.db.Create(voucher).Error
}
