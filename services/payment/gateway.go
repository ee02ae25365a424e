package payment

import (
	"gostay/models"
)

// CreateResult kết quả tạo lượt thanh toán mới
type CreateResult struct {
	PayURL        string
	TransactionID string
}

// RefundOutcome kết quả gọi hoàn tiền đồng bộ
type RefundOutcome int

const (
	RefundDone RefundOutcome = iota
	RefundFailed
	RefundProcessing
)

// TransactionStatus kết quả truy vấn chủ động trạng thái giao dịch phía cổng
type TransactionStatus struct {
	Success        bool
	Processing     bool
	GatewayTransID string
	Amount         float64
}

// Gateway trừu tượng hóa một cổng thanh toán. Hai cổng ZaloPay/VNPay
// chỉ khác nhau ở cách ký và đặt tên trường; BookingService chọn
// gateway theo paymentMethod lúc chạy.
type Gateway interface {
	Method() int
	CreatePaymentURL(booking *models.Booking) (*CreateResult, error)
	RefundPayment(booking *models.Booking, percent int) (RefundOutcome, error)
	VerifyTransaction(transactionID string) (*TransactionStatus, error)
}

// Notifier bắn thông báo trong ứng dụng khi trạng thái thanh toán đổi
type Notifier interface {
	PaymentConfirmed(booking *models.Booking)
	BookingCancelled(booking *models.Booking)
	RefundIssued(booking *models.Booking, amount float64)
}

// Cache xóa cache danh sách booking của user khi callback/refund đổi
// trạng thái ngoài luồng request, để GET /bookings không trả dữ liệu cũ
type Cache interface {
	InvalidateUserBookings(userID uint)
}

// Mailer gửi email cho khách; lỗi gửi mail không bao giờ làm hỏng giao dịch
type Mailer interface {
	SendInvoiceEmail(booking *models.Booking, payment *models.Payment) error
	SendRefundEmail(booking *models.Booking, amount float64) error
}
