package dto

// PaymentResponse trạng thái một lượt thanh toán trong ledger
type PaymentResponse struct {
	ID                  uint    `json:"id"`
	BookingID           uint    `json:"bookingId"`
	TransactionID       string  `json:"transactionId"`
	Amount              float64 `json:"amount"`
	PaymentMethod       int     `json:"paymentMethod"`
	Status              int     `json:"status"`
	GatewayTransID      string  `json:"gatewayTransId,omitempty"`
	RefundTransactionID string  `json:"refundTransactionId,omitempty"`
	RefundAmount        float64 `json:"refundAmount,omitempty"`
	RefundFailReason    string  `json:"refundFailReason,omitempty"`
}

// RetryPaymentRequest tạo lại lượt thanh toán cho booking pending
type RetryPaymentRequest struct {
	BookingID     uint `json:"bookingId"`
	PaymentMethod int  `json:"paymentMethod"`
}

// RetryPaymentResponse chứa URL thanh toán mới
type RetryPaymentResponse struct {
	BookingID     uint   `json:"bookingId"`
	TransactionID string `json:"transactionId"`
	PayURL        string `json:"payUrl"`
}
