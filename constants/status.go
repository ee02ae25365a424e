package constants

import "time"

// User status
const (
	UserStatusActive   = 1
	UserStatusInactive = 0
)

// Booking status
const (
	BookingStatusPending   = 0
	BookingStatusConfirmed = 1
	BookingStatusCompleted = 2
	BookingStatusCancelled = 3
)

// Trạng thái thanh toán gắn trên booking
const (
	PayStatusUnpaid = 0
	PayStatusPaid   = 1
	PayStatusFailed = 2
)

// Trạng thái của bản ghi payment (ledger)
const (
	PaymentStatusPending      = 0
	PaymentStatusCompleted    = 1
	PaymentStatusFailed       = 2
	PaymentStatusCancelled    = 3
	PaymentStatusRefunding    = 4
	PaymentStatusRefunded     = 5
	PaymentStatusRefundFailed = 6
)

// Phương thức thanh toán
const (
	PaymentMethodZaloPay    = 0
	PaymentMethodVNPay      = 1
	PaymentMethodCreditCard = 2
	PaymentMethodPayPal     = 3
)

// Room status
const (
	RoomStatusAvailable   = 1
	RoomStatusOccupied    = 2
	RoomStatusMaintenance = 3
)

// Voucher status
const (
	VoucherStatusInactive = 0
	VoucherStatusActive   = 1
)

// Voucher discount type
const (
	DiscountTypeFixed      = 0
	DiscountTypePercentage = 1
)

// Giờ nhận/trả phòng cố định (giờ địa phương)
const (
	CheckInHour  = 14
	CheckOutHour = 12
)

// Chính sách hủy phòng: trong vòng 24h trước check-in thì không cho hủy.
// Bảng hoàn tiền 72h/48h/24h chỉ áp dụng cho vùng >= 24h, nên mức 0%
// không bao giờ chạm tới qua đường hủy của người dùng.
const (
	CancellationLockout = 24 * time.Hour

	RefundFullBefore = 72 * time.Hour // hoàn 100%
	RefundHighBefore = 48 * time.Hour // hoàn 70%
	RefundHalfBefore = 24 * time.Hour // hoàn 50%

	RefundFullPercent = 100
	RefundHighPercent = 70
	RefundHalfPercent = 50
)

// Cửa sổ thanh toán cho booking pending; janitor quét theo chu kỳ
const (
	PaymentWindow       = 15 * time.Minute
	JanitorInterval     = "*/10 * * * *"
	RefundRecheckDelay  = 60 * time.Second
	GatewayHTTPTimeout  = 10 * time.Second
	JanitorLockKey      = "janitor:expired-bookings:lock"
	JanitorLockDuration = 5 * time.Minute
)

// Lý do hủy
const (
	CancelReasonUserRequested  = "user_requested"
	CancelReasonPaymentExpired = "payment_expired"
)
