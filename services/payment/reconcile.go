package payment

import (
	"time"

	"gostay/constants"
	"gostay/models"
	"gostay/services/logger"

	"gorm.io/gorm"
)

// Reconciler áp kết quả từ cổng thanh toán vào ledger và booking.
// Dùng chung cho callback, redirect và refund của cả hai adapter;
// mọi chuyển trạng thái đi qua Transition có điều kiện nên gọi lặp
// lại (gateway retry, browser đua với callback) là no-op an toàn.
type Reconciler struct {
	db       *gorm.DB
	ledger   *Ledger
	notifier Notifier
	mailer   Mailer
	cache    Cache
	logger   logger.Logger
}

func NewReconciler(db *gorm.DB, ledger *Ledger, notifier Notifier, mailer Mailer, cache Cache, lg logger.Logger) *Reconciler {
	return &Reconciler{db: db, ledger: ledger, notifier: notifier, mailer: mailer, cache: cache, logger: lg}
}

// invalidateCache xóa cache danh sách booking của chủ booking;
// booking của khách vãng lai không có cache để xóa
func (r *Reconciler) invalidateCache(booking *models.Booking) {
	if r.cache != nil && booking.UserID != nil {
		r.cache.InvalidateUserBookings(*booking.UserID)
	}
}

// ApplySuccess ghi nhận cổng báo thanh toán thành công.
// Chỉ lần chuyển pending→completed đầu tiên được gửi hóa đơn và thông báo;
// các lần sau chỉ vá mã đối soát còn thiếu.
func (r *Reconciler) ApplySuccess(payment *models.Payment, gatewayTransID string) error {
	swapped, err := r.ledger.Transition(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusCompleted,
		map[string]interface{}{"gateway_trans_id": gatewayTransID})
	if err != nil {
		return err
	}

	if !swapped {
		// Callback lặp lại hoặc redirect về sau: không gửi lại mail/thông báo
		return r.ledger.PatchGatewayTransID(payment.ID, gatewayTransID)
	}

	if err := r.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", payment.BookingID, constants.BookingStatusPending).
		Updates(map[string]interface{}{
			"status":         constants.BookingStatusConfirmed,
			"payment_status": constants.PayStatusPaid,
		}).Error; err != nil {
		return err
	}

	var booking models.Booking
	if err := r.db.Preload("Room").First(&booking, payment.BookingID).Error; err != nil {
		return err
	}

	now := time.Now()
	invoice := models.Invoice{
		BookingID:   booking.ID,
		TotalAmount: booking.FinalPrice,
		PaidAmount:  payment.Amount,
		PaymentType: payment.PaymentMethod,
		PaymentDate: &now,
	}
	if err := r.db.Create(&invoice).Error; err != nil {
		r.logger.Error("Không tạo được hóa đơn cho booking %d: %v", booking.ID, err)
	}

	if r.mailer != nil {
		if err := r.mailer.SendInvoiceEmail(&booking, payment); err != nil {
			r.logger.Error("Gửi email hóa đơn không thành công: %v", err)
		}
	}
	if r.notifier != nil {
		r.notifier.PaymentConfirmed(&booking)
	}
	r.invalidateCache(&booking)
	return nil
}

// ApplyFailure ghi nhận cổng báo thanh toán thất bại.
// Booking vẫn pending để khách thanh toán lại, chỉ paymentStatus đổi.
func (r *Reconciler) ApplyFailure(payment *models.Payment) error {
	swapped, err := r.ledger.Transition(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, nil)
	if err != nil {
		return err
	}
	if !swapped {
		return nil
	}

	if err := r.db.Model(&models.Booking{}).
		Where("id = ?", payment.BookingID).
		Update("payment_status", constants.PayStatusFailed).Error; err != nil {
		return err
	}

	var booking models.Booking
	if err := r.db.Select("id", "user_id").First(&booking, payment.BookingID).Error; err == nil {
		r.invalidateCache(&booking)
	}
	return nil
}

// FinishRefundSuccess chốt hoàn tiền thành công: payment → refunded,
// booking → cancelled, sau đó bắn thông báo và email hoàn tiền.
func (r *Reconciler) FinishRefundSuccess(payment *models.Payment, fromStatus int, refundTransID string, refundAmount float64) error {
	now := time.Now()
	swapped, err := r.ledger.Transition(payment.ID, fromStatus, constants.PaymentStatusRefunded,
		map[string]interface{}{
			"refund_transaction_id": refundTransID,
			"refund_amount":         refundAmount,
			"refunded_at":           &now,
		})
	if err != nil {
		return err
	}
	if !swapped {
		return nil
	}

	if err := r.db.Model(&models.Booking{}).
		Where("id = ? AND status IN ?", payment.BookingID,
			[]int{constants.BookingStatusPending, constants.BookingStatusConfirmed}).
		Updates(map[string]interface{}{
			"status":              constants.BookingStatusCancelled,
			"cancelled_at":        &now,
			"cancellation_reason": constants.CancelReasonUserRequested,
		}).Error; err != nil {
		return err
	}

	var booking models.Booking
	if err := r.db.Preload("Room").First(&booking, payment.BookingID).Error; err != nil {
		return err
	}

	if r.notifier != nil {
		r.notifier.RefundIssued(&booking, refundAmount)
	}
	if r.mailer != nil {
		if err := r.mailer.SendRefundEmail(&booking, refundAmount); err != nil {
			r.logger.Error("Gửi email hoàn tiền không thành công: %v", err)
		}
	}
	r.invalidateCache(&booking)
	return nil
}

// FinishRefundFailure ghi nhận hoàn tiền thất bại; booking giữ nguyên
// để khách hủy lại hoặc vận hành xử lý tay.
func (r *Reconciler) FinishRefundFailure(payment *models.Payment, fromStatus int, reason string) error {
	_, err := r.ledger.Transition(payment.ID, fromStatus, constants.PaymentStatusRefundFailed,
		map[string]interface{}{"refund_fail_reason": reason})
	return err
}
