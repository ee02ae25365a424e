package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"gostay/dto"
	apperrors "gostay/errors"
	"gostay/models"
	"gostay/response"
	"gostay/services"
	"gostay/services/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaymentController struct {
	db       *gorm.DB
	bookings *services.BookingService
	zalopay  *payment.ZaloPayService
	vnpay    *payment.VNPayService
}

func NewPaymentController(db *gorm.DB, bookings *services.BookingService,
	zalopay *payment.ZaloPayService, vnpay *payment.VNPayService) *PaymentController {
	return &PaymentController{db: db, bookings: bookings, zalopay: zalopay, vnpay: vnpay}
}

// ZaloPayCallback nhận callback server-to-server của ZaloPay.
// Envelope trả lời theo quy ước của cổng, không dùng envelope chung.
func (ctl *PaymentController) ZaloPayCallback(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, payment.CallbackAck{ReturnCode: 0, ReturnMessage: "cannot read body"})
		return
	}
	c.JSON(http.StatusOK, ctl.zalopay.HandleCallback(raw))
}

// ZaloPayReturn nhận trình duyệt quay về từ trang thanh toán ZaloPay
func (ctl *PaymentController) ZaloPayReturn(c *gin.Context) {
	target := ctl.zalopay.HandleRedirect(c.Request.URL.Query())
	c.Redirect(http.StatusFound, target)
}

// VNPayIPN nhận IPN server-to-server của VNPay
func (ctl *PaymentController) VNPayIPN(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.vnpay.HandleIPN(c.Request.URL.Query()))
}

// VNPayReturn nhận trình duyệt quay về từ trang thanh toán VNPay
func (ctl *PaymentController) VNPayReturn(c *gin.Context) {
	target := ctl.vnpay.HandleRedirect(c.Request.URL.Query())
	c.Redirect(http.StatusFound, target)
}

// RetryPayment tạo lại lượt thanh toán cho booking pending chưa trả tiền
func (ctl *PaymentController) RetryPayment(c *gin.Context) {
	var req dto.RetryPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Dữ liệu không hợp lệ")
		return
	}

	userID, role := currentUser(c)
	booking, payURL, err := ctl.bookings.RetryPayment(req.BookingID, userID, isAdminRole(role), req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBookingNotFound):
			response.NotFound(c)
		case errors.Is(err, apperrors.ErrForbidden):
			response.Forbidden(c)
		case errors.Is(err, apperrors.ErrNotCancellable):
			response.Conflict(c, "Đơn này không còn chờ thanh toán")
		case errors.Is(err, apperrors.ErrGateway):
			response.ServerErrorWithData(c, "Chưa tạo được thanh toán, vui lòng thử lại",
				services.ToBookingResponse(booking, ""))
		default:
			if appErr := apperrors.GetAppError(err); appErr != nil {
				response.BadRequest(c, appErr.Message)
				return
			}
			response.ServerError(c)
		}
		return
	}

	response.Success(c, dto.RetryPaymentResponse{
		BookingID: booking.ID,
		PayURL:    payURL,
	})
}

// GetPaymentsByBooking xem lịch sử các lượt thanh toán của một đơn.
// Chỉ chủ đơn hoặc quản trị xem được.
func (ctl *PaymentController) GetPaymentsByBooking(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "ID không hợp lệ")
		return
	}

	booking, err := ctl.bookings.GetBookingByID(uint(bookingID))
	if err != nil {
		response.NotFound(c)
		return
	}

	userID, role := currentUser(c)
	if !isAdminRole(role) {
		if booking.UserID == nil || userID == nil || *booking.UserID != *userID {
			response.Forbidden(c)
			return
		}
	}

	var payments []models.Payment
	if err := ctl.db.Where("booking_id = ?", booking.ID).
		Order("created_at ASC").Find(&payments).Error; err != nil {
		response.ServerError(c)
		return
	}

	out := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, dto.PaymentResponse{
			ID:                  p.ID,
			BookingID:           p.BookingID,
			TransactionID:       p.TransactionID,
			Amount:              p.Amount,
			PaymentMethod:       p.PaymentMethod,
			Status:              p.Status,
			GatewayTransID:      p.GatewayTransID,
			RefundTransactionID: p.RefundTransactionID,
			RefundAmount:        p.RefundAmount,
			RefundFailReason:    p.RefundFailReason,
		})
	}
	response.Success(c, out)
}
