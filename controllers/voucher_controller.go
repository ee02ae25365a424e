package controllers

import (
	"time"

	"gostay/dto"
	apperrors "gostay/errors"
	"gostay/models"
	"gostay/response"
	"gostay/services"
	"gostay/validator"

	"github.com/gin-gonic/gin"
)

type VoucherController struct {
	vouchers *services.VoucherService
}

func NewVoucherController(vouchers *services.VoucherService) *VoucherController {
	return &VoucherController{vouchers: vouchers}
}

func toVoucherResponse(v *models.Voucher) dto.VoucherResponse {
	return dto.VoucherResponse{
		ID:            v.ID,
		Code:          v.Code,
		Discount:      v.Discount,
		DiscountType:  v.DiscountType,
		MaxDiscount:   v.MaxDiscount,
		MinOrderValue: v.MinOrderValue,
		UsageLimit:    v.UsageLimit,
		UsageCount:    v.UsageCount,
		Status:        v.Status,
	}
}

// CreateVoucher tạo voucher mới (chỉ quản trị)
func (ctl *VoucherController) CreateVoucher(c *gin.Context) {
	var req dto.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Dữ liệu không hợp lệ")
		return
	}

	if err := validator.ValidateVoucherInput(&req); err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil {
			response.BadRequest(c, appErr.Message)
			return
		}
		response.BadRequest(c, "Dữ liệu không hợp lệ")
		return
	}

	startDate, _ := time.Parse("02/01/2006", req.StartDate)
	expiryDate, _ := time.Parse("02/01/2006", req.ExpiryDate)

	voucher := models.Voucher{
		Code:          req.Code,
		Discount:      req.Discount,
		DiscountType:  req.DiscountType,
		MaxDiscount:   req.MaxDiscount,
		MinOrderValue: req.MinOrderValue,
		UsageLimit:    req.UsageLimit,
		StartDate:     startDate,
		ExpiryDate:    expiryDate,
	}
	if err := ctl.vouchers.CreateVoucher(&voucher); err != nil {
		response.Conflict(c, "Mã giảm giá đã tồn tại")
		return
	}

	response.Success(c, toVoucherResponse(&voucher))
}

// GetVouchers liệt kê voucher (chỉ quản trị)
func (ctl *VoucherController) GetVouchers(c *gin.Context) {
	vouchers, err := ctl.vouchers.GetVouchers()
	if err != nil {
		response.ServerError(c)
		return
	}

	out := make([]dto.VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, toVoucherResponse(&vouchers[i]))
	}
	response.Success(c, out)
}

// ValidateVoucher cho client kiểm tra trước số tiền giảm của một mã.
// Chỉ đánh giá, không tiêu thụ lượt dùng.
func (ctl *VoucherController) ValidateVoucher(c *gin.Context) {
	var req dto.ValidateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Dữ liệu không hợp lệ")
		return
	}

	result, err := ctl.vouchers.ValidateVoucher(req.Code, req.OrderValue, time.Now())
	if err != nil {
		response.ServerError(c)
		return
	}
	if !result.Success {
		response.BadRequest(c, result.Message)
		return
	}

	response.Success(c, gin.H{
		"discountAmount": result.DiscountAmount,
		"voucher":        toVoucherResponse(result.Voucher),
	})
}
