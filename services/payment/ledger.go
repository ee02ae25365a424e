package payment

import (
	"errors"

	"gostay/constants"
	apperrors "gostay/errors"
	"gostay/models"

	"gorm.io/gorm"
)

// Ledger là nguồn sự thật cho đối soát: mỗi lượt thanh toán một dòng,
// chỉ adapter (callback/redirect/refund) và bước thay thế lượt cũ được
// ghi vào đây, không bao giờ xóa.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// NewAttempt tạo lượt thanh toán mới cho booking. Mọi lượt pending/failed
// cũ của booking bị đánh dấu cancelled trước, đảm bảo mỗi booking chỉ có
// đúng một lượt pending — transactionId cũ không thể đối soát nhầm.
func (l *Ledger) NewAttempt(bookingID uint, amount float64, method int, transactionID string) (*models.Payment, error) {
	var payment *models.Payment

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payment{}).
			Where("booking_id = ? AND status IN ?", bookingID,
				[]int{constants.PaymentStatusPending, constants.PaymentStatusFailed}).
			Update("status", constants.PaymentStatusCancelled).Error; err != nil {
			return err
		}

		payment = &models.Payment{
			BookingID:     bookingID,
			TransactionID: transactionID,
			Amount:        amount,
			PaymentMethod: method,
			Status:        constants.PaymentStatusPending,
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByTransactionID tìm lượt thanh toán theo mã giao dịch
func (l *Ledger) FindByTransactionID(transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := l.db.Where("transaction_id = ?", transactionID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CompletedForBooking tìm lượt thanh toán đã hoàn tất của booking
func (l *Ledger) CompletedForBooking(bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	err := l.db.Where("booking_id = ? AND status = ?", bookingID, constants.PaymentStatusCompleted).
		Order("created_at DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Transition đổi trạng thái có điều kiện (UPDATE ... WHERE status = from).
// Callback và redirect có thể chạy đua trên cùng giao dịch; chỉ một bên
// thắng RowsAffected, bên kia coi như no-op.
func (l *Ledger) Transition(paymentID uint, from, to int, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := l.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// PatchGatewayTransID bổ sung mã đối soát phía cổng nếu còn thiếu
// (redirect về sau callback chỉ được vá thông tin, không đổi trạng thái)
func (l *Ledger) PatchGatewayTransID(paymentID uint, gatewayTransID string) error {
	if gatewayTransID == "" {
		return nil
	}
	return l.db.Model(&models.Payment{}).
		Where("id = ? AND (gateway_trans_id = '' OR gateway_trans_id IS NULL)", paymentID).
		Update("gateway_trans_id", gatewayTransID).Error
}
