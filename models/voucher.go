package models

import (
	"strings"
	"time"

	"gostay/constants"

	"gorm.io/gorm"
)

type Voucher struct {
	ID            uint     `json:"id" gorm:"primaryKey"`
	Code          string   `json:"code" gorm:"unique;size:20"`       // Mã giảm giá, luôn in hoa
	Discount      float64  `json:"discount"`                         // Mức giảm (tiền hoặc %)
	DiscountType  int      `json:"discountType" gorm:"default:0"`    // 0: fixed, 1: percentage
	MaxDiscount   *float64 `json:"maxDiscount,omitempty"`            // Trần giảm, chỉ cho loại %
	MinOrderValue float64  `json:"minOrderValue"`                    // Giá trị đơn tối thiểu
	UsageLimit    *int     `json:"usageLimit,omitempty"`             // nil = không giới hạn
	UsageCount    int      `json:"usageCount" gorm:"default:0"`
	StartDate     time.Time `json:"startDate"`
	ExpiryDate    time.Time `json:"expiryDate"`
	Status        int       `json:"status" gorm:"default:1"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// BeforeSave chuẩn hóa dữ liệu voucher trước khi ghi:
// giảm % kẹp về tối đa 100, loại fixed không có maxDiscount,
// startDate không được sau expiryDate.
func (v *Voucher) BeforeSave(tx *gorm.DB) error {
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))

	if v.DiscountType == constants.DiscountTypePercentage && v.Discount > 100 {
		v.Discount = 100
	}
	if v.DiscountType == constants.DiscountTypeFixed {
		v.MaxDiscount = nil
	}
	if v.StartDate.After(v.ExpiryDate) {
		v.StartDate = v.ExpiryDate
	}
	return nil
}

// CalculateDiscount tính số tiền giảm cho một đơn giá
func (v *Voucher) CalculateDiscount(price float64) float64 {
	if v.DiscountType == constants.DiscountTypeFixed {
		return v.Discount
	}

	discount := price * v.Discount / 100
	if v.MaxDiscount != nil && discount > *v.MaxDiscount {
		discount = *v.MaxDiscount
	}
	return discount
}

// IsValid kiểm tra voucher còn áp dụng được cho đơn hàng hay không.
// So sánh ngày theo lịch: voucher còn hiệu lực trọn ngày hết hạn.
func (v *Voucher) IsValid(orderValue float64, now time.Time) bool {
	if v.Status != constants.VoucherStatusActive {
		return false
	}

	start := time.Date(v.StartDate.Year(), v.StartDate.Month(), v.StartDate.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(v.ExpiryDate.Year(), v.ExpiryDate.Month(), v.ExpiryDate.Day(), 23, 59, 59, 0, now.Location())
	if now.Before(start) || now.After(end) {
		return false
	}

	if v.UsageLimit != nil && v.UsageCount >= *v.UsageLimit {
		return false
	}

	return orderValue >= v.MinOrderValue
}
